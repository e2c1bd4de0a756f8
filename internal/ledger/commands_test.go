package ledger

import (
	"errors"
	"slices"
	"testing"
	"time"

	"pagamentos/internal/core"
)

func newTestStore() (*Store, Key) {
	s := NewStore()
	s.SetNames([]string{"Nubank", "Itaú"}, []string{"Moradia", "Assinatura"})
	return s, Key{2025, 11}
}

func TestStore_AddRecord(t *testing.T) {
	s, k := newTestStore()
	first, _ := s.AddRecord(k, time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local))
	second, change := s.AddRecord(k, time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local))

	l, _ := s.Lookup(k)
	if len(l.Records) != 2 || l.Records[0] != second || l.Records[1] != first {
		t.Fatal("new records go to the top")
	}
	if second.Category != "Assinatura" || second.Kind != core.Variable || !second.Amount.IsZero() {
		t.Errorf("defaults = %+v", second)
	}
	if second.DueDate != core.NewDate(2025, 11, 30) {
		t.Errorf("due date = %v, want day clamped into November", second.DueDate)
	}
	if change.Kind != ChangeAdd || len(change.Keys) != 1 || change.RecordIDs[0] != second.ID {
		t.Errorf("change = %+v", change)
	}
}

func TestStore_EditField(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())

	tests := []struct {
		name  string
		field Field
		value string
		check func(*core.BillRecord) bool
	}{
		{"account", FieldAccount, " Luz ", func(r *core.BillRecord) bool { return r.Account == "Luz" }},
		{"kind", FieldKind, "fixo", func(r *core.BillRecord) bool { return r.Kind == core.Fixed }},
		{"amount pt-BR", FieldAmount, "1.234,56", func(r *core.BillRecord) bool { return r.Amount.Equal(dec("1234.56")) }},
		{"due date", FieldDueDate, "2025-11-20T10:00", func(r *core.BillRecord) bool { return r.DueDate == core.NewDate(2025, 11, 20) }},
		{"clear due date", FieldDueDate, "", func(r *core.BillRecord) bool { return r.DueDate.IsEmpty() }},
		{"bank", FieldBank, "Nubank", func(r *core.BillRecord) bool { return r.Bank == "Nubank" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.EditField(k, rec.ID, tt.field, tt.value); err != nil {
				t.Fatalf("EditField: %v", err)
			}
			if !tt.check(rec) {
				t.Errorf("record after edit = %+v", rec)
			}
		})
	}

	change, err := s.EditField(k, rec.ID, FieldCategory, "Lazer")
	if err != nil || !change.SettingsChanged {
		t.Fatalf("new category should join the set: change=%+v err=%v", change, err)
	}
	if cats := s.Categories(); cats[len(cats)-1] != "Lazer" {
		t.Errorf("categories = %v", cats)
	}
}

func TestStore_EditFieldRejections(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	rec.Amount, rec.Bank = dec("10"), "Nubank"
	if _, _, err := s.RegisterPayment(k, rec.ID, "", dec("10")); err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}

	cases := []struct {
		field Field
		value string
		want  error
	}{
		{FieldAmount, "-5", core.ErrNegativeAmount},
		{FieldAmount, "abc", core.ErrInvalidAmount},
		{FieldDueDate, "31/12/2025", core.ErrInvalidDate},
		{FieldBank, "", core.ErrPaidWithoutBank},
		{Field("color"), "red", core.ErrUnknownField},
	}
	for _, c := range cases {
		if _, err := s.EditField(k, rec.ID, c.field, c.value); !core.IsValidation(err) || !errors.Is(err, c.want) {
			t.Errorf("EditField(%s, %q) err = %v, want %v", c.field, c.value, err, c.want)
		}
	}
	if rec.Bank != "Nubank" || !rec.Amount.Equal(dec("10")) {
		t.Errorf("rejected edits mutated the record: %+v", rec)
	}

	if _, err := s.EditField(k, "missing", FieldAccount, "x"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestStore_EditFieldsAllOrNothing(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	if _, err := s.EditFields(k, rec.ID, []Edit{{FieldAccount, "Luz"}, {FieldAmount, "150"}}); err != nil {
		t.Fatalf("EditFields: %v", err)
	}

	tests := []struct {
		name  string
		edits []Edit
		want  error
	}{
		{"bad amount after account", []Edit{{FieldAccount, "Agua"}, {FieldAmount, "abc"}}, core.ErrInvalidAmount},
		{"unknown kind", []Edit{{FieldCategory, "Lazer"}, {FieldKind, "xyz"}}, core.ErrInvalidKind},
		{"new bank then bad date", []Edit{{FieldBank, "C6"}, {FieldDueDate, "amanhã"}}, core.ErrInvalidDate},
		{"empty batch", nil, core.ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.EditFields(k, rec.ID, tt.edits); !core.IsValidation(err) || !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if rec.Account != "Luz" || !rec.Amount.Equal(dec("150")) || rec.Kind != core.Variable || rec.Bank != "" {
				t.Errorf("record = %+v", rec)
			}
		})
	}
	if slices.Contains(s.Categories(), "Lazer") || slices.Contains(s.Banks(), "C6") {
		t.Errorf("rejected batch registered names: %v %v", s.Categories(), s.Banks())
	}
}

func TestStore_AddRecordWith(t *testing.T) {
	s, k := newTestStore()
	if _, _, err := s.AddRecordWith(k, time.Now(), []Edit{{FieldAccount, "Luz"}, {FieldAmount, "abc"}}); !core.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if l, ok := s.Lookup(k); ok && len(l.Records) != 0 {
		t.Fatalf("rejected add inserted %d records", len(l.Records))
	}

	rec, change, err := s.AddRecordWith(k, time.Now(), []Edit{{FieldAccount, "Luz"}, {FieldKind, "fixo"}, {FieldBank, "C6"}})
	if err != nil {
		t.Fatalf("AddRecordWith: %v", err)
	}
	if rec.Account != "Luz" || rec.Kind != core.Fixed || rec.Bank != "C6" || !change.SettingsChanged {
		t.Errorf("record = %+v change = %+v", rec, change)
	}
}

func TestStore_DuplicateAndDelete(t *testing.T) {
	s, k := newTestStore()
	a, _ := s.AddRecord(k, time.Now())
	b, _ := s.AddRecord(k, time.Now())
	b.Paid, b.Bank, b.Account = true, "Itaú", "Aluguel"

	dup, _, err := s.DuplicateRecord(k, b.ID)
	if err != nil {
		t.Fatalf("DuplicateRecord: %v", err)
	}
	l, _ := s.Lookup(k)
	if len(l.Records) != 3 || l.Records[1] != dup || l.Records[2] != a {
		t.Fatal("duplicate must sit right after its source")
	}
	if dup.Paid || dup.Account != "Aluguel" || dup.ID == b.ID {
		t.Errorf("duplicate = %+v", dup)
	}

	if _, err := s.DeleteRecord(k, b.ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if len(l.Records) != 2 || l.Records[0] != dup {
		t.Errorf("records after delete = %v", accounts(l.Records))
	}
}

func TestStore_RegisterPaymentDefaultsBank(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	rec.Amount, rec.Bank = dec("150"), "C6"

	remainder, change, err := s.RegisterPayment(k, rec.ID, "", dec("100"))
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	if rec.Bank != "C6" || remainder == nil || len(change.RecordIDs) != 2 {
		t.Errorf("rec=%+v change=%+v", rec, change)
	}
	if !change.SettingsChanged || s.Banks()[2] != "C6" {
		t.Errorf("paying bank should join the set: %v", s.Banks())
	}

	if _, err := s.ReversePayment(k, rec.ID); err != nil {
		t.Fatalf("ReversePayment: %v", err)
	}
	if _, err := s.ReversePayment(k, rec.ID); !core.IsValidation(err) {
		t.Errorf("second reverse err = %v", err)
	}
}

func TestStore_RemoveBankCascades(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	rec.Amount = dec("50")
	if _, _, err := s.RegisterPayment(k, rec.ID, "Nubank", dec("50")); err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	if _, err := s.SetOpeningBalance(k, "Nubank", dec("900")); err != nil {
		t.Fatalf("SetOpeningBalance: %v", err)
	}
	dec2 := k.Next()
	s.Generate(dec2)

	change := s.RemoveBank("Nubank")

	for _, key := range []Key{k, dec2} {
		l, _ := s.Lookup(key)
		if _, ok := l.Balances["Nubank"]; ok {
			t.Errorf("%s still has a Nubank balance", key)
		}
		for _, r := range l.Records {
			if r.Bank == "Nubank" {
				t.Errorf("%s still references Nubank", key)
			}
			if err := r.Validate(); err != nil {
				t.Errorf("record invalid after cascade: %v", err)
			}
		}
		if len(l.Records) != 1 {
			t.Errorf("%s lost records", key)
		}
	}
	if len(change.Keys) != 2 || !change.SettingsChanged {
		t.Errorf("change = %+v", change)
	}
	for _, b := range s.Banks() {
		if b == "Nubank" {
			t.Error("Nubank still in bank set")
		}
	}
}

func TestStore_RemoveCategoryCascades(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	if rec.Category != "Assinatura" {
		t.Fatalf("category = %q", rec.Category)
	}
	change := s.RemoveCategory("Assinatura")
	if rec.Category != "" || len(change.RecordIDs) != 1 {
		t.Errorf("rec=%+v change=%+v", rec, change)
	}
	if got := s.Categories(); len(got) != 1 || got[0] != "Moradia" {
		t.Errorf("categories = %v", got)
	}
}

func TestStore_AddNames(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.AddBank(" "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("AddBank blank err = %v", err)
	}
	if change, _ := s.AddBank("Nubank"); change.SettingsChanged {
		t.Error("known bank must not change settings")
	}
	if change, _ := s.AddCategory("Saúde"); !change.SettingsChanged {
		t.Error("new category should change settings")
	}
}

func TestStore_Generate(t *testing.T) {
	s, k := newTestStore()
	rec, _ := s.AddRecord(k, time.Now())
	rec.Kind, rec.Amount = core.Fixed, dec("1200")

	next, change := s.Generate(k.Next())
	if len(next.Records) != 1 || !next.Records[0].Amount.Equal(dec("1200")) || len(change.Keys) != 1 {
		t.Fatalf("generated = %+v change = %+v", next, change)
	}
	next.Records[0].Amount = dec("1")

	again, change := s.Generate(k.Next())
	if again != next || !change.IsEmpty() {
		t.Error("generating an existing month must return it untouched")
	}
}

func TestStore_ImportRecords(t *testing.T) {
	s, k := newTestStore()
	existing, _ := s.AddRecord(k, time.Now())

	batch := []core.BillRecord{
		{Account: "Luz", Category: "Conta básica", Amount: dec("150")},
		{Account: "Netflix", Bank: "Inter", Paid: true, Amount: dec("55"), Kind: core.Fixed},
	}
	change, err := s.ImportRecords(k, batch, ImportAppend)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	l, _ := s.Lookup(k)
	if len(l.Records) != 3 || l.Records[0] != existing {
		t.Fatalf("append kept %d records", len(l.Records))
	}
	if l.Records[1].Kind != core.Variable || l.Records[1].ID == "" {
		t.Errorf("imported = %+v", l.Records[1])
	}
	if !change.SettingsChanged {
		t.Error("unknown bank and category should join the sets")
	}

	if _, err := s.ImportRecords(k, batch[:1], ImportReplace); err != nil {
		t.Fatalf("ImportRecords replace: %v", err)
	}
	if len(l.Records) != 1 || l.Records[0].Account != "Luz" {
		t.Errorf("replace left %v", accounts(l.Records))
	}

	bad := []core.BillRecord{{Account: "x", Paid: true, Amount: dec("1")}}
	if _, err := s.ImportRecords(k, bad, ImportAppend); !core.IsValidation(err) {
		t.Errorf("paid record without bank err = %v", err)
	}
	if len(l.Records) != 1 {
		t.Error("rejected import must not change the ledger")
	}
}

func TestParseField(t *testing.T) {
	if f, err := ParseField("valor"); err != nil || f != FieldAmount {
		t.Errorf("ParseField(valor) = %s, %v", f, err)
	}
	if _, err := ParseField("nope"); !errors.Is(err, core.ErrUnknownField) {
		t.Errorf("err = %v", err)
	}
	if ParseImportMode("substituir") != ImportReplace || ParseImportMode("") != ImportAppend {
		t.Error("ParseImportMode")
	}
}
