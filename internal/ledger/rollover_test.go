package ledger

import (
	"testing"

	"pagamentos/internal/core"
)

func TestRollover(t *testing.T) {
	rent := &core.BillRecord{ID: "a", Account: "Aluguel", Category: "Moradia", Kind: core.Fixed,
		DueDate: core.NewDate(2025, 1, 31), Amount: dec("1200"), Bank: "Itaú", Paid: true}
	power := &core.BillRecord{ID: "b", Account: "Luz", Kind: core.Variable,
		DueDate: core.NewDate(2025, 1, 15), Amount: dec("150"), Bank: "Nubank", Paid: true}
	undated := &core.BillRecord{ID: "c", Account: "Gás", Amount: dec("40")}

	prior := ledgerWith(Key{2025, 1}, rent, power, undated)
	prior.Balances["Itaú"] = dec("5000")

	next := Rollover(Key{2025, 2}, prior, []string{"Itaú", "Nubank", "C6"})

	if len(next.Records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(next.Records))
	}

	got := next.Records[0]
	if got.ID == rent.ID || got.Paid || got.Bank != "Itaú" || got.Category != "Moradia" {
		t.Errorf("carried fixed record = %+v", got)
	}
	assertAmount(t, "fixed amount", got.Amount, "1200")
	if got.DueDate != core.NewDate(2025, 2, 28) {
		t.Errorf("due date = %v, want clamped to 2025-02-28", got.DueDate)
	}

	assertAmount(t, "variable amount", next.Records[1].Amount, "0")
	if next.Records[1].DueDate != core.NewDate(2025, 2, 15) {
		t.Errorf("due date = %v", next.Records[1].DueDate)
	}

	if next.Records[2].Kind != core.Variable || next.Records[2].DueDate != core.NewDate(2025, 2, 1) {
		t.Errorf("undated record = %+v, want variable due on day 1", next.Records[2])
	}

	assertAmount(t, "Itaú opening", next.Opening("Itaú"), "3800")
	assertAmount(t, "Nubank opening", next.Opening("Nubank"), "-150")
	if _, ok := next.Balances["C6"]; !ok {
		t.Error("every known bank gets an opening balance")
	}
	assertAmount(t, "C6 opening", next.Opening("C6"), "0")

	if !rent.Paid || !rent.Amount.Equal(dec("1200")) || len(prior.Records) != 3 {
		t.Error("prior ledger must not be modified")
	}
}

func TestRollover_NoPrior(t *testing.T) {
	next := Rollover(Key{2026, 1}, nil, []string{"Itaú"})
	if len(next.Records) != 0 || len(next.Balances) != 0 {
		t.Errorf("expected empty ledger, got %+v", next)
	}
	if next.Key != (Key{2026, 1}) {
		t.Errorf("key = %v", next.Key)
	}
}
