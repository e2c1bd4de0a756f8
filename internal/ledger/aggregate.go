package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pagamentos/internal/core"
)

const (
	// TopLimit caps the top-accounts and top-categories rankings.
	TopLimit = 5

	// MultipleBanks is shown when an account was paid from more than one bank.
	MultipleBanks = "Vários"

	// Uncategorized labels records without a category in chart series.
	Uncategorized = "Sem categoria"
)

type (
	MonthSummary struct {
		Total decimal.Decimal `json:"total"`
		Paid  decimal.Decimal `json:"paid"`
		Open  decimal.Decimal `json:"open"`
	}

	BankSummary struct {
		Bank    string          `json:"bank"`
		Opening decimal.Decimal `json:"opening"`
		Paid    decimal.Decimal `json:"paid"`
		Open    decimal.Decimal `json:"open"`
		Closing decimal.Decimal `json:"closing"`
	}

	BankReport struct {
		Rows       []BankSummary   `json:"rows"`
		GrandTotal decimal.Decimal `json:"grand_total"`
	}

	CategorySummary struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
		Paid     decimal.Decimal `json:"paid"`
		Open     decimal.Decimal `json:"open"`
	}

	TopAccount struct {
		Account  string          `json:"account"`
		Category string          `json:"category"`
		Banks    []string        `json:"banks"`
		Total    decimal.Decimal `json:"total"`
		Status   StatusKind      `json:"status"`
	}

	// NamedAmount is one point of a chart series or ranking.
	NamedAmount struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}

	TrendPoint struct {
		Key   Key             `json:"-"`
		Label string          `json:"label"`
		Paid  decimal.Decimal `json:"paid"`
	}

	Trend struct {
		Points        []TrendPoint  `json:"points"`
		TopCategories []NamedAmount `json:"top_categories"`
	}
)

// SummarizeMonth totals every record, the paid ones, and the open remainder (never negative).
func SummarizeMonth(records []*core.BillRecord) MonthSummary {
	var s MonthSummary
	for _, r := range records {
		s.Total = s.Total.Add(r.Amount)
		if r.Paid {
			s.Paid = s.Paid.Add(r.Amount)
		}
	}
	s.Open = decimal.Max(decimal.Zero, s.Total.Sub(s.Paid))
	return s
}

// SummarizeBanks emits one row per bank in banks order. Closing is opening minus paid.
func SummarizeBanks(l *Ledger, banks []string) BankReport {
	report := BankReport{Rows: make([]BankSummary, 0, len(banks))}
	for _, b := range banks {
		row := BankSummary{Bank: b, Opening: l.Opening(b)}
		for _, r := range l.Records {
			if r.Bank != b {
				continue
			}
			if r.Paid {
				row.Paid = row.Paid.Add(r.Amount)
			} else {
				row.Open = row.Open.Add(r.Amount)
			}
		}
		row.Closing = row.Opening.Sub(row.Paid)
		report.GrandTotal = report.GrandTotal.Add(row.Closing)
		report.Rows = append(report.Rows, row)
	}
	return report
}

// SummarizeCategories groups records with a category, sorted by pt-BR collation.
func SummarizeCategories(records []*core.BillRecord) []CategorySummary {
	byName := make(map[string]*CategorySummary)
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		cs, ok := byName[r.Category]
		if !ok {
			cs = &CategorySummary{Category: r.Category}
			byName[r.Category] = cs
		}
		cs.Total = cs.Total.Add(r.Amount)
		if r.Paid {
			cs.Paid = cs.Paid.Add(r.Amount)
		} else {
			cs.Open = cs.Open.Add(r.Amount)
		}
	}

	out := make([]CategorySummary, 0, len(byName))
	for _, cs := range byName {
		out = append(out, *cs)
	}
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	slices.SortFunc(out, func(a, b CategorySummary) int {
		return col.CompareString(a.Category, b.Category)
	})
	return out
}

// TopAccounts ranks accounts (grouped case-insensitively) by total amount.
func TopAccounts(records []*core.BillRecord, ref time.Time) []TopAccount {
	type group struct {
		acc      TopAccount
		seen     map[string]struct{}
		statuses []StatusKind
	}
	var order []*group
	byKey := make(map[string]*group)

	for _, r := range records {
		if r.Account == "" {
			continue
		}
		k := strings.ToLower(r.Account)
		g, ok := byKey[k]
		if !ok {
			g = &group{acc: TopAccount{Account: r.Account}, seen: map[string]struct{}{}}
			byKey[k] = g
			order = append(order, g)
		}
		g.acc.Total = g.acc.Total.Add(r.Amount)
		if r.Bank != "" {
			if _, dup := g.seen[r.Bank]; !dup {
				g.seen[r.Bank] = struct{}{}
				g.acc.Banks = append(g.acc.Banks, r.Bank)
			}
		}
		if g.acc.Category == "" {
			g.acc.Category = r.Category
		}
		g.statuses = append(g.statuses, Classify(r, ref).Kind)
	}

	out := make([]TopAccount, 0, len(order))
	for _, g := range order {
		if !g.acc.Total.IsPositive() {
			continue
		}
		g.acc.Status = combineStatuses(g.statuses)
		out = append(out, g.acc)
	}
	slices.SortStableFunc(out, func(a, b TopAccount) int { return b.Total.Cmp(a.Total) })
	if len(out) > TopLimit {
		out = out[:TopLimit]
	}
	return out
}

// combineStatuses applies the precedence paid (all) > overdue (any) > due soon (any) > open.
// DueToday members count as due soon.
func combineStatuses(statuses []StatusKind) StatusKind {
	allPaid, overdue, soon := true, false, false
	for _, s := range statuses {
		if s != StatusPaid {
			allPaid = false
		}
		switch s {
		case StatusOverdue:
			overdue = true
		case StatusDueSoon, StatusDueToday:
			soon = true
		}
	}
	switch {
	case allPaid:
		return StatusPaid
	case overdue:
		return StatusOverdue
	case soon:
		return StatusDueSoon
	default:
		return StatusOpen
	}
}

// BankLabel is the single bank used, MultipleBanks, or empty.
func (a TopAccount) BankLabel() string {
	switch len(a.Banks) {
	case 0:
		return ""
	case 1:
		return a.Banks[0]
	default:
		return MultipleBanks
	}
}

// RollingTrend reports paid totals for the months window of known ledgers ending at
// current, plus the top paid categories over that window. Unknown current yields an
// empty trend.
func RollingTrend(s *Store, current Key, months int) Trend {
	trend := Trend{Points: []TrendPoint{}, TopCategories: []NamedAmount{}}
	if months < 1 {
		months = 1
	}
	keys := s.Keys()
	idx := slices.Index(keys, current)
	if idx < 0 {
		return trend
	}
	start := max(0, idx-(months-1))

	var catOrder []string
	byCat := make(map[string]decimal.Decimal)
	for _, k := range keys[start : idx+1] {
		l := s.ledgers[k]
		point := TrendPoint{Key: k, Label: k.Label()}
		for _, r := range l.Records {
			if !r.Paid {
				continue
			}
			point.Paid = point.Paid.Add(r.Amount)
			if r.Category == "" {
				continue
			}
			if _, ok := byCat[r.Category]; !ok {
				catOrder = append(catOrder, r.Category)
			}
			byCat[r.Category] = byCat[r.Category].Add(r.Amount)
		}
		trend.Points = append(trend.Points, point)
	}

	for _, c := range catOrder {
		trend.TopCategories = append(trend.TopCategories, NamedAmount{Name: c, Amount: byCat[c]})
	}
	slices.SortStableFunc(trend.TopCategories, func(a, b NamedAmount) int { return b.Amount.Cmp(a.Amount) })
	if len(trend.TopCategories) > TopLimit {
		trend.TopCategories = trend.TopCategories[:TopLimit]
	}
	return trend
}

// PaidByBank is the bar-chart series: paid totals per bank in first-seen order.
func PaidByBank(records []*core.BillRecord) []NamedAmount {
	return series(records, func(r *core.BillRecord) (string, bool) {
		return r.Bank, r.Paid && r.Bank != ""
	})
}

// TotalsByCategory is the pie-chart series over all records; empty categories are
// grouped under Uncategorized.
func TotalsByCategory(records []*core.BillRecord) []NamedAmount {
	return series(records, func(r *core.BillRecord) (string, bool) {
		if r.Category == "" {
			return Uncategorized, true
		}
		return r.Category, true
	})
}

func series(records []*core.BillRecord, pick func(*core.BillRecord) (string, bool)) []NamedAmount {
	out := []NamedAmount{}
	pos := make(map[string]int)
	for _, r := range records {
		name, ok := pick(r)
		if !ok {
			continue
		}
		i, seen := pos[name]
		if !seen {
			i = len(out)
			pos[name] = i
			out = append(out, NamedAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}
