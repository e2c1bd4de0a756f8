package ledger

import (
	"errors"
	"testing"

	"pagamentos/internal/core"
)

func TestRegisterPayment_PartialSplitsRecord(t *testing.T) {
	luz := newRecord("Luz", "150")
	other := newRecord("Água", "80")
	l := ledgerWith(Key{2025, 11}, luz, other)

	remainder, err := RegisterPayment(l, luz, "Nubank", dec("100"))
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	if remainder == nil {
		t.Fatal("expected a remainder record")
	}

	if len(l.Records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(l.Records))
	}
	if l.Records[0] != luz || l.Records[1] != remainder || l.Records[2] != other {
		t.Fatal("remainder must sit right after the paid record")
	}

	assertAmount(t, "paid amount", luz.Amount, "100")
	if !luz.Paid || luz.Bank != "Nubank" {
		t.Errorf("paid portion = %+v", luz)
	}
	assertAmount(t, "remainder amount", remainder.Amount, "50")
	if remainder.Paid || remainder.Bank != "" || remainder.Account != "Luz" {
		t.Errorf("remainder = %+v", remainder)
	}
	if remainder.ID == luz.ID {
		t.Error("remainder must have its own ID")
	}
}

func TestRegisterPayment_FullWithinTolerance(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		paying string
	}{
		{"exact", "150", "150"},
		{"one cent short", "150", "149.99"},
		{"overpaid", "150", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecord("Luz", tt.amount)
			l := ledgerWith(Key{2025, 11}, rec)

			remainder, err := RegisterPayment(l, rec, "Itaú", dec(tt.paying))
			if err != nil {
				t.Fatalf("RegisterPayment: %v", err)
			}
			if remainder != nil || len(l.Records) != 1 {
				t.Fatal("full payment must not split")
			}
			if !rec.Paid || rec.Bank != "Itaú" {
				t.Errorf("record = %+v", rec)
			}
			assertAmount(t, "amount", rec.Amount, tt.amount)
		})
	}
}

func TestRegisterPayment_Rejections(t *testing.T) {
	paid := newRecord("Luz", "150")
	paid.Paid, paid.Bank = true, "Nubank"

	tests := []struct {
		name    string
		rec     *core.BillRecord
		bank    string
		paying  string
		wantErr error
	}{
		{"empty bank", newRecord("Luz", "150"), "  ", "100", core.ErrEmptyBank},
		{"zero bill", newRecord("Luz", "0"), "Nubank", "100", core.ErrNonPositiveAmount},
		{"zero payment", newRecord("Luz", "150"), "Nubank", "0", core.ErrNonPositivePayment},
		{"already paid", paid, "Nubank", "10", core.ErrAlreadyPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.rec
			l := ledgerWith(Key{2025, 11}, tt.rec)

			_, err := RegisterPayment(l, tt.rec, tt.bank, dec(tt.paying))
			if !core.IsValidation(err) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want validation error %v", err, tt.wantErr)
			}
			if len(l.Records) != 1 || !tt.rec.Amount.Equal(before.Amount) || tt.rec.Paid != before.Paid || tt.rec.Bank != before.Bank {
				t.Error("rejected payment must not mutate anything")
			}
		})
	}
}

func TestReversePayment(t *testing.T) {
	rec := newRecord("Luz", "150")
	l := ledgerWith(Key{2025, 11}, rec)
	if _, err := RegisterPayment(l, rec, "Nubank", dec("100")); err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}

	if err := ReversePayment(rec); err != nil {
		t.Fatalf("ReversePayment: %v", err)
	}
	if rec.Paid || rec.Bank != "Nubank" {
		t.Errorf("reversed record = %+v", rec)
	}
	assertAmount(t, "amount", rec.Amount, "100")

	// The remainder of the earlier split stays a separate record.
	if len(l.Records) != 2 {
		t.Errorf("len(records) = %d, want 2 (split is not merged back)", len(l.Records))
	}

	if err := ReversePayment(rec); !errors.Is(err, core.ErrNotPaid) {
		t.Errorf("reversing an unpaid record: err = %v", err)
	}
}

func TestRegisterPayment_TwoCentsShortSplits(t *testing.T) {
	rec := newRecord("Luz", "150")
	l := ledgerWith(Key{2025, 11}, rec)

	remainder, err := RegisterPayment(l, rec, "Itaú", dec("149.98"))
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	if remainder == nil || len(l.Records) != 2 {
		t.Fatal("payment outside the tolerance must split")
	}
	assertAmount(t, "remainder", remainder.Amount, "0.02")
}
