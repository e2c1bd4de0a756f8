package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func newRecord(account string, amount string) *core.BillRecord {
	return &core.BillRecord{
		ID:      core.NewRecordID(),
		Account: account,
		Kind:    core.Variable,
		Amount:  dec(amount),
	}
}

func ledgerWith(k Key, records ...*core.BillRecord) *Ledger {
	l := newLedger(k)
	l.Records = records
	return l
}
