package services

import (
	"context"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/transfer"
)

type (
	// RecordView is a record as shown to clients, with its derived status.
	RecordView struct {
		ID          string          `json:"id"`
		Account     string          `json:"account"`
		Category    string          `json:"category"`
		Kind        core.Kind       `json:"kind"`
		DueDate     core.Date       `json:"due_date"`
		Amount      decimal.Decimal `json:"amount"`
		AmountLabel string          `json:"amount_label"`
		Bank        string          `json:"bank"`
		Paid        bool            `json:"paid"`
		Status      ledger.Status   `json:"status"`
		StatusLabel string          `json:"status_label"`
	}

	MonthView struct {
		Key      string                     `json:"key"`
		Year     int                        `json:"year"`
		Month    int                        `json:"month"`
		Label    string                     `json:"label"`
		Records  []RecordView               `json:"records"`
		Balances map[string]decimal.Decimal `json:"balances"`
		Summary  ledger.MonthSummary        `json:"summary"`
	}

	Charts struct {
		PaidByBank       []ledger.NamedAmount `json:"paid_by_bank"`
		TotalsByCategory []ledger.NamedAmount `json:"totals_by_category"`
	}

	SummaryView struct {
		Key         string                   `json:"key"`
		Month       ledger.MonthSummary      `json:"month"`
		Banks       ledger.BankReport        `json:"banks"`
		Categories  []ledger.CategorySummary `json:"categories"`
		TopAccounts []TopAccountView         `json:"top_accounts"`
		Charts      Charts                   `json:"charts"`
	}

	TopAccountView struct {
		ledger.TopAccount
		BankLabel string `json:"bank_label"`
	}
)

func (s *LedgerService) recordView(r *core.BillRecord) RecordView {
	st := ledger.Classify(r, s.now())
	return RecordView{
		ID:          r.ID,
		Account:     r.Account,
		Category:    r.Category,
		Kind:        r.Kind,
		DueDate:     r.DueDate,
		Amount:      r.Amount,
		AmountLabel: core.FormatAmount(r.Amount),
		Bank:        r.Bank,
		Paid:        r.Paid,
		Status:      st,
		StatusLabel: st.Label(),
	}
}

func (s *LedgerService) monthView(l *ledger.Ledger, f ledger.Filter, o ledger.Sort) MonthView {
	ref := s.now()
	selected := ledger.Select(l.Records, f, o, ref)
	v := MonthView{
		Key:      l.Key.String(),
		Year:     l.Key.Year,
		Month:    l.Key.Month,
		Label:    l.Key.Label(),
		Records:  make([]RecordView, 0, len(selected)),
		Balances: make(map[string]decimal.Decimal, len(l.Balances)),
		Summary:  ledger.SummarizeMonth(l.Records),
	}
	for _, r := range selected {
		v.Records = append(v.Records, s.recordView(r))
	}
	for b, amt := range l.Balances {
		v.Balances[b] = amt
	}
	return v
}

// Summary aggregates the month: totals, per bank, per category, top accounts and chart series.
func (s *LedgerService) Summary(ctx context.Context, k ledger.Key) (SummaryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.open(ctx, k)
	if err != nil {
		return SummaryView{}, err
	}

	top := ledger.TopAccounts(l.Records, s.now())
	v := SummaryView{
		Key:         k.String(),
		Month:       ledger.SummarizeMonth(l.Records),
		Banks:       ledger.SummarizeBanks(l, s.store.Banks()),
		Categories:  ledger.SummarizeCategories(l.Records),
		TopAccounts: make([]TopAccountView, 0, len(top)),
		Charts: Charts{
			PaidByBank:       ledger.PaidByBank(l.Records),
			TotalsByCategory: ledger.TotalsByCategory(l.Records),
		},
	}
	for _, a := range top {
		v.TopAccounts = append(v.TopAccounts, TopAccountView{TopAccount: a, BankLabel: a.BankLabel()})
	}
	return v, nil
}

// Trend reports the rolling paid trend ending at k. months < 1 uses the configured default.
func (s *LedgerService) Trend(ctx context.Context, k ledger.Key, months int) (ledger.Trend, error) {
	if months < 1 {
		months = s.trendMonths
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.open(ctx, k); err != nil {
		return ledger.Trend{}, err
	}
	return ledger.RollingTrend(s.store, k, months), nil
}

// Import parses data and adds the records to k. A malformed batch is rejected whole.
func (s *LedgerService) Import(ctx context.Context, k ledger.Key, data []byte, mode ledger.ImportMode) (int, error) {
	records, err := transfer.Parse(data)
	if err != nil {
		return 0, err
	}
	change, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		return s.store.ImportRecords(k, records, mode)
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Imported records",
		log.FieldOperation, log.OpImport,
		log.FieldYear, k.Year,
		log.FieldMonth, k.Month,
		log.FieldRecords, len(change.RecordIDs),
		"mode", mode)
	return len(change.RecordIDs), nil
}

// Export renders the records of k in ledger order.
func (s *LedgerService) Export(ctx context.Context, k ledger.Key, f transfer.Format) (body []byte, contentType, filename string, err error) {
	s.mu.Lock()
	l, err := s.open(ctx, k)
	if err != nil {
		s.mu.Unlock()
		return nil, "", "", err
	}
	records := l.Snapshot().Records
	s.mu.Unlock()

	body, contentType, err = transfer.Export(records, f)
	if err != nil {
		return nil, "", "", err
	}
	return body, contentType, transfer.Filename(k.String(), f), nil
}

// Months lists the locally known months, oldest first.
func (s *LedgerService) Months() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.store.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
