package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-11-05", "2025-11-05", true},
		{"2025-11-05T10:00:00Z", "2025-11-05", true},
		{"", "", false},
		{"05/11/2025", "", false},
		{"2025-02-30", "", false},
	}
	for _, tc := range cases {
		d, ok := ParseDate(tc.in)
		if ok != tc.ok || d.String() != tc.want {
			t.Fatalf("ParseDate(%q) = %q,%v want %q,%v", tc.in, d.String(), ok, tc.want, tc.ok)
		}
	}
}

func TestDueDateInClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             string
	}{
		{2024, 2, 31, "2024-02-29"},
		{2025, 2, 31, "2025-02-28"},
		{2025, 4, 31, "2025-04-30"},
		{2025, 3, 15, "2025-03-15"},
		{2025, 3, 0, "2025-03-01"},
	}
	for _, tc := range cases {
		if got := DueDateIn(tc.year, tc.month, tc.day).String(); got != tc.want {
			t.Fatalf("DueDateIn(%d,%d,%d) = %s, want %s", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
		E Date `json:"e"`
	}{D: NewDate(2025, 1, 31)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"d":"2025-01-31","e":null}` {
		t.Fatalf("unexpected json %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2025-13-01"`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.IsEmpty() {
		t.Fatalf("unparseable date should decode as empty, got %s", d)
	}
}

func TestBillRecordValidate(t *testing.T) {
	good := BillRecord{Account: "Luz", Kind: Fixed, Amount: decimal.NewFromInt(150), Bank: "Nubank", Paid: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		rec  BillRecord
		want error
	}{
		{BillRecord{Kind: Variable, Amount: decimal.NewFromInt(-1)}, ErrNegativeAmount},
		{BillRecord{Kind: "mensal"}, ErrInvalidKind},
		{BillRecord{Kind: Variable, Paid: true}, ErrPaidWithoutBank},
	}
	for i, tc := range bads {
		err := tc.rec.Validate()
		if !errors.Is(err, tc.want) || !IsValidation(err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestCloneAssignsNewID(t *testing.T) {
	r := BillRecord{ID: NewRecordID(), Account: "Água"}
	c := r.Clone()
	if c.ID == r.ID || c.Account != r.Account {
		t.Fatalf("unexpected clone %+v", c)
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in     string
		strict Kind
		ok     bool
		loose  Kind
	}{
		{"fixo", Fixed, true, Fixed},
		{" Fixed ", Fixed, true, Fixed},
		{"variavel", Variable, true, Variable},
		{"Variável", Variable, true, Variable},
		{"xyz", "", false, Variable},
		{"", "", false, Variable},
	}
	for _, tc := range cases {
		got, err := ParseKindStrict(tc.in)
		if tc.ok && (err != nil || got != tc.strict) {
			t.Errorf("ParseKindStrict(%q) = %q, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidKind) {
			t.Errorf("ParseKindStrict(%q) err = %v, want ErrInvalidKind", tc.in, err)
		}
		if loose := ParseKind(tc.in); loose != tc.loose {
			t.Errorf("ParseKind(%q) = %q, want %q", tc.in, loose, tc.loose)
		}
	}
}
