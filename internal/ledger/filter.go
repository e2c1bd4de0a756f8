package ledger

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pagamentos/internal/core"
)

const (
	FilterAll     StatusFilter = "all"
	FilterPaid    StatusFilter = "paid"
	FilterOpen    StatusFilter = "open"
	FilterOverdue StatusFilter = "overdue"
)

const (
	SortNone     SortField = "none"
	SortDueDate  SortField = "due_date"
	SortCategory SortField = "category"
	SortAccount  SortField = "account"
	SortBank     SortField = "bank"
	SortAmount   SortField = "amount"
)

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type (
	StatusFilter string
	SortField    string
	Direction    string

	// Filter selects records. Empty Bank/Category/Search match everything.
	Filter struct {
		Status   StatusFilter
		Bank     string
		Category string
		Search   string
	}

	Sort struct {
		Field     SortField
		Direction Direction
	}
)

// undatedSentinel orders records without a due date after every real date.
var undatedSentinel = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseStatusFilter accepts the English names and their pt-BR equivalents.
func ParseStatusFilter(s string) StatusFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "pagos":
		return FilterPaid
	case "open", "abertos":
		return FilterOpen
	case "overdue", "vencidos":
		return FilterOverdue
	default:
		return FilterAll
	}
}

func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "due_date", "duedate", "vencimento":
		return SortDueDate
	case "category", "categoria":
		return SortCategory
	case "account", "conta":
		return SortAccount
	case "bank", "banco":
		return SortBank
	case "amount", "valor":
		return SortAmount
	default:
		return SortNone
	}
}

func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Select filters then sorts records. The input slice is never reordered.
func Select(records []*core.BillRecord, f Filter, s Sort, ref time.Time) []*core.BillRecord {
	return SortRecords(FilterRecords(records, f, ref), s)
}

func FilterRecords(records []*core.BillRecord, f Filter, ref time.Time) []*core.BillRecord {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*core.BillRecord, 0, len(records))
	for _, r := range records {
		st := Classify(r, ref).Kind
		switch f.Status {
		case FilterPaid:
			if st != StatusPaid {
				continue
			}
		case FilterOpen:
			if st == StatusPaid {
				continue
			}
		case FilterOverdue:
			if st != StatusOverdue {
				continue
			}
		}
		if f.Bank != "" && r.Bank != f.Bank {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if search != "" {
			text := strings.ToLower(strings.Join([]string{r.Account, r.Category, r.Bank}, " "))
			if !strings.Contains(text, search) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SortRecords returns a stably sorted copy of records.
func SortRecords(records []*core.BillRecord, s Sort) []*core.BillRecord {
	out := slices.Clone(records)
	if s.Field == "" || s.Field == SortNone {
		return out
	}
	dir := 1
	if s.Direction == Desc {
		dir = -1
	}

	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	text := func(a, b string) int { return col.CompareString(a, b) }

	slices.SortStableFunc(out, func(a, b *core.BillRecord) int {
		var c int
		switch s.Field {
		case SortDueDate:
			c = dueOrSentinel(a).Compare(dueOrSentinel(b))
		case SortCategory:
			c = text(a.Category, b.Category)
		case SortAccount:
			c = text(a.Account, b.Account)
		case SortBank:
			c = text(a.Bank, b.Bank)
		case SortAmount:
			c = a.Amount.Cmp(b.Amount)
		}
		return c * dir
	})
	return out
}

func dueOrSentinel(r *core.BillRecord) time.Time {
	if r.DueDate.IsEmpty() {
		return undatedSentinel
	}
	return r.DueDate.Time
}
