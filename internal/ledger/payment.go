package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
)

// RegisterPayment marks rec as paid from bank.
//
// When amountNow covers the bill (within core.Tolerance) the record is paid in full and
// keeps its amount. Otherwise rec becomes the paid portion and an unpaid remainder,
// cloned from rec, is inserted right after it in l. The remainder is returned, nil for
// full payments. Validation failures leave rec and l untouched.
func RegisterPayment(l *Ledger, rec *core.BillRecord, bank string, amountNow decimal.Decimal) (*core.BillRecord, error) {
	bank = strings.TrimSpace(bank)
	switch {
	case bank == "":
		return nil, &core.ValidationError{Field: "bank", Err: core.ErrEmptyBank}
	case !rec.Amount.IsPositive():
		return nil, &core.ValidationError{Field: "amount", Err: core.ErrNonPositiveAmount}
	case !amountNow.IsPositive():
		return nil, &core.ValidationError{Field: "amount_paid", Err: core.ErrNonPositivePayment}
	case rec.Paid:
		return nil, &core.ValidationError{Field: "paid", Err: core.ErrAlreadyPaid}
	}

	if amountNow.GreaterThan(rec.Amount) || core.NearlyEqual(amountNow, rec.Amount) {
		rec.Bank = bank
		rec.Paid = true
		return nil, nil
	}

	remainder := &core.BillRecord{
		ID:       core.NewRecordID(),
		Account:  rec.Account,
		Category: rec.Category,
		Kind:     rec.Kind,
		DueDate:  rec.DueDate,
		Amount:   rec.Amount.Sub(amountNow),
	}
	rec.Bank = bank
	rec.Amount = amountNow
	rec.Paid = true
	l.insertAfter(rec.ID, remainder)
	return remainder, nil
}

// ReversePayment returns a paid record to unpaid. Bank and amount are kept and a
// remainder created by an earlier partial payment is not merged back.
func ReversePayment(rec *core.BillRecord) error {
	if !rec.Paid {
		return &core.ValidationError{Field: "paid", Err: core.ErrNotPaid}
	}
	rec.Paid = false
	return nil
}
