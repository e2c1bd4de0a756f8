package ledger

import (
	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
)

// Rollover builds the ledger of target from prior, the ledger of target.Prev().
//
// Records keep their order. Due dates move to the target month on the same day (day 1
// when absent), clamped to the month length. Fixed amounts carry over, Variable amounts
// reset to zero, and every record starts unpaid. Each bank in banks opens with its prior
// opening balance minus what was paid from it in the prior month. A nil prior yields an
// empty ledger. prior is never modified.
func Rollover(target Key, prior *Ledger, banks []string) *Ledger {
	next := newLedger(target)
	if prior == nil {
		return next
	}

	next.Records = make([]*core.BillRecord, 0, len(prior.Records))
	for _, p := range prior.Records {
		kind := p.Kind
		if kind == "" {
			kind = core.Variable
		}
		day := 1
		if !p.DueDate.IsEmpty() {
			day = p.DueDate.Day()
		}
		amount := decimal.Zero
		if kind == core.Fixed {
			amount = p.Amount
		}
		next.Records = append(next.Records, &core.BillRecord{
			ID:       core.NewRecordID(),
			Account:  p.Account,
			Category: p.Category,
			Kind:     kind,
			DueDate:  core.DueDateIn(target.Year, target.Month, day),
			Amount:   amount,
			Bank:     p.Bank,
		})
	}

	paid := paidByBank(prior.Records)
	for _, b := range banks {
		next.Balances[b] = prior.Opening(b).Sub(paid[b])
	}
	return next
}

func paidByBank(records []*core.BillRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		if r.Paid && r.Bank != "" {
			out[r.Bank] = out[r.Bank].Add(r.Amount)
		}
	}
	return out
}
