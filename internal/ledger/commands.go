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
	ChangeAdd        ChangeKind = "add"
	ChangeEdit       ChangeKind = "edit"
	ChangeDelete     ChangeKind = "delete"
	ChangeDuplicate  ChangeKind = "duplicate"
	ChangePayment    ChangeKind = "payment"
	ChangeReverse    ChangeKind = "reverse"
	ChangeBalance    ChangeKind = "balance"
	ChangeBanks      ChangeKind = "banks"
	ChangeCategories ChangeKind = "categories"
	ChangeGenerate   ChangeKind = "generate"
	ChangeImport     ChangeKind = "import"
)

const (
	FieldAccount  Field = "account"
	FieldCategory Field = "category"
	FieldKind     Field = "kind"
	FieldDueDate  Field = "due_date"
	FieldAmount   Field = "amount"
	FieldBank     Field = "bank"
)

const (
	ImportAppend  ImportMode = "append"
	ImportReplace ImportMode = "replace"
)

type (
	ChangeKind string
	Field      string
	ImportMode string

	// Edit assigns one field of a record from its text form.
	Edit struct {
		Field Field
		Value string
	}

	// Change describes what a command touched so callers can persist and re-render
	// only that. An empty Keys slice with SettingsChanged false means nothing changed.
	Change struct {
		Kind            ChangeKind `json:"kind"`
		Keys            []Key      `json:"-"`
		RecordIDs       []string   `json:"record_ids,omitempty"`
		SettingsChanged bool       `json:"settings_changed"`
	}
)

// ParseField accepts the English field names and their pt-BR equivalents.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "account", "conta":
		return FieldAccount, nil
	case "category", "categoria":
		return FieldCategory, nil
	case "kind", "tipo":
		return FieldKind, nil
	case "due_date", "vencimento":
		return FieldDueDate, nil
	case "amount", "valor":
		return FieldAmount, nil
	case "bank", "banco":
		return FieldBank, nil
	}
	return "", &core.ValidationError{Field: s, Err: core.ErrUnknownField}
}

// ParseImportMode maps "replace"/"substituir" to ImportReplace; anything else appends.
func ParseImportMode(s string) ImportMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace", "substituir":
		return ImportReplace
	default:
		return ImportAppend
	}
}

func (c Change) IsEmpty() bool {
	return len(c.Keys) == 0 && !c.SettingsChanged
}

func (s *Store) record(k Key, id string) (*Ledger, *core.BillRecord, error) {
	l, ok := s.ledgers[k]
	if !ok {
		return nil, nil, core.ErrRecordNotFound
	}
	rec, ok := l.Find(id)
	if !ok {
		return nil, nil, core.ErrRecordNotFound
	}
	return l, rec, nil
}

// AddRecord puts a blank record at the top of the ledger of k. Its due date is the
// day of today within k, its category the first one in pt-BR order.
func (s *Store) AddRecord(k Key, today time.Time) (*core.BillRecord, Change) {
	rec, change, _ := s.AddRecordWith(k, today, nil)
	return rec, change
}

// AddRecordWith is AddRecord with initial field values. The record is only inserted
// when every edit is accepted.
func (s *Store) AddRecordWith(k Key, today time.Time, edits []Edit) (*core.BillRecord, Change, error) {
	rec := &core.BillRecord{
		ID:       core.NewRecordID(),
		Category: s.firstCategory(),
		Kind:     core.Variable,
		DueDate:  core.DueDateIn(k.Year, k.Month, today.Day()),
		Amount:   decimal.Zero,
	}
	settings, err := s.applyEdits(rec, edits)
	if err != nil {
		return nil, Change{}, err
	}
	l := s.Ledger(k)
	l.Records = slices.Insert(l.Records, 0, rec)
	return rec, Change{Kind: ChangeAdd, Keys: []Key{k}, RecordIDs: []string{rec.ID}, SettingsChanged: settings}, nil
}

func (s *Store) firstCategory() string {
	if len(s.categories) == 0 {
		return ""
	}
	sorted := slices.Clone(s.categories)
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	col.SortStrings(sorted)
	return sorted[0]
}

// EditField sets one field of a record from its text form. Unknown category and bank
// names join the global sets. Rejected edits leave the record unchanged.
func (s *Store) EditField(k Key, id string, field Field, value string) (Change, error) {
	return s.EditFields(k, id, []Edit{{Field: field, Value: value}})
}

// EditFields applies edits in order, all or none.
func (s *Store) EditFields(k Key, id string, edits []Edit) (Change, error) {
	_, rec, err := s.record(k, id)
	if err != nil {
		return Change{}, err
	}
	if len(edits) == 0 {
		return Change{}, &core.ValidationError{Field: "body", Err: core.ErrUnknownField}
	}
	settings, err := s.applyEdits(rec, edits)
	if err != nil {
		return Change{}, err
	}
	return Change{Kind: ChangeEdit, Keys: []Key{k}, RecordIDs: []string{id}, SettingsChanged: settings}, nil
}

// applyEdits works on a copy of rec and only writes it back, and registers new
// bank and category names, once the whole batch is valid.
func (s *Store) applyEdits(rec *core.BillRecord, edits []Edit) (bool, error) {
	next := *rec
	for _, e := range edits {
		if err := setField(&next, e.Field, strings.TrimSpace(e.Value)); err != nil {
			return false, err
		}
	}
	*rec = next

	settings := false
	for _, e := range edits {
		switch e.Field {
		case FieldCategory:
			settings = s.addCategory(rec.Category) || settings
		case FieldBank:
			settings = s.addBank(rec.Bank) || settings
		}
	}
	return settings, nil
}

func setField(rec *core.BillRecord, field Field, value string) error {
	switch field {
	case FieldAccount:
		rec.Account = value
	case FieldCategory:
		rec.Category = value
	case FieldKind:
		kind, err := core.ParseKindStrict(value)
		if err != nil {
			return &core.ValidationError{Field: string(field), Err: err}
		}
		rec.Kind = kind
	case FieldDueDate:
		if value == "" {
			rec.DueDate = core.Date{}
			break
		}
		d, ok := core.ParseDate(value)
		if !ok {
			return &core.ValidationError{Field: string(field), Err: core.ErrInvalidDate}
		}
		rec.DueDate = d
	case FieldAmount:
		amount, err := core.ParseAmount(value)
		if err != nil {
			return &core.ValidationError{Field: string(field), Err: err}
		}
		rec.Amount = amount
	case FieldBank:
		if value == "" && rec.Paid {
			return &core.ValidationError{Field: string(field), Err: core.ErrPaidWithoutBank}
		}
		rec.Bank = value
	default:
		return &core.ValidationError{Field: string(field), Err: core.ErrUnknownField}
	}
	return nil
}

func (s *Store) DeleteRecord(k Key, id string) (Change, error) {
	l, _, err := s.record(k, id)
	if err != nil {
		return Change{}, err
	}
	i := l.IndexOf(id)
	l.Records = slices.Delete(l.Records, i, i+1)
	return Change{Kind: ChangeDelete, Keys: []Key{k}, RecordIDs: []string{id}}, nil
}

// DuplicateRecord inserts an unpaid copy right after the source record.
func (s *Store) DuplicateRecord(k Key, id string) (*core.BillRecord, Change, error) {
	l, rec, err := s.record(k, id)
	if err != nil {
		return nil, Change{}, err
	}
	dup := rec.Clone()
	dup.Paid = false
	l.insertAfter(id, dup)
	return dup, Change{Kind: ChangeDuplicate, Keys: []Key{k}, RecordIDs: []string{dup.ID}}, nil
}

// RegisterPayment pays a record from bank; an empty bank falls back to the bank already
// set on the record. See the package-level RegisterPayment for the split rules.
func (s *Store) RegisterPayment(k Key, id, bank string, amountNow decimal.Decimal) (*core.BillRecord, Change, error) {
	l, rec, err := s.record(k, id)
	if err != nil {
		return nil, Change{}, err
	}
	if strings.TrimSpace(bank) == "" {
		bank = rec.Bank
	}
	remainder, err := RegisterPayment(l, rec, bank, amountNow)
	if err != nil {
		return nil, Change{}, err
	}
	change := Change{Kind: ChangePayment, Keys: []Key{k}, RecordIDs: []string{id}}
	if remainder != nil {
		change.RecordIDs = append(change.RecordIDs, remainder.ID)
	}
	change.SettingsChanged = s.addBank(rec.Bank)
	return remainder, change, nil
}

func (s *Store) ReversePayment(k Key, id string) (Change, error) {
	_, rec, err := s.record(k, id)
	if err != nil {
		return Change{}, err
	}
	if err := ReversePayment(rec); err != nil {
		return Change{}, err
	}
	return Change{Kind: ChangeReverse, Keys: []Key{k}, RecordIDs: []string{id}}, nil
}

// SetOpeningBalance sets the opening balance of bank in the ledger of k.
func (s *Store) SetOpeningBalance(k Key, bank string, amount decimal.Decimal) (Change, error) {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return Change{}, &core.ValidationError{Field: "bank", Err: core.ErrEmptyBank}
	}
	l := s.Ledger(k)
	l.Balances[bank] = amount.Round(2)
	return Change{Kind: ChangeBalance, Keys: []Key{k}, SettingsChanged: s.addBank(bank)}, nil
}

// AddBank appends name to the global bank set. Adding a known name changes nothing.
func (s *Store) AddBank(name string) (Change, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Change{}, &core.ValidationError{Field: "bank", Err: core.ErrEmptyName}
	}
	return Change{Kind: ChangeBanks, SettingsChanged: s.addBank(name)}, nil
}

// RemoveBank drops name from the global set, clears it from every record and removes
// its balance entries. Paid records that lose their bank become unpaid.
func (s *Store) RemoveBank(name string) Change {
	name = strings.TrimSpace(name)
	change := Change{Kind: ChangeBanks}
	if i := slices.Index(s.banks, name); i >= 0 {
		s.banks = slices.Delete(s.banks, i, i+1)
		change.SettingsChanged = true
	}
	for _, k := range s.Keys() {
		l := s.ledgers[k]
		touched := false
		if _, ok := l.Balances[name]; ok {
			delete(l.Balances, name)
			touched = true
		}
		for _, r := range l.Records {
			if r.Bank != name {
				continue
			}
			// A paid record needs a bank: it reverts to unpaid and drops out of the
			// paid totals and the next rollover's balance deduction.
			r.Bank = ""
			r.Paid = false
			change.RecordIDs = append(change.RecordIDs, r.ID)
			touched = true
		}
		if touched {
			change.Keys = append(change.Keys, k)
		}
	}
	return change
}

func (s *Store) AddCategory(name string) (Change, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Change{}, &core.ValidationError{Field: "category", Err: core.ErrEmptyName}
	}
	return Change{Kind: ChangeCategories, SettingsChanged: s.addCategory(name)}, nil
}

// RemoveCategory drops name from the global set and clears it from every record.
func (s *Store) RemoveCategory(name string) Change {
	name = strings.TrimSpace(name)
	change := Change{Kind: ChangeCategories}
	if i := slices.Index(s.categories, name); i >= 0 {
		s.categories = slices.Delete(s.categories, i, i+1)
		change.SettingsChanged = true
	}
	for _, k := range s.Keys() {
		touched := false
		for _, r := range s.ledgers[k].Records {
			if r.Category != name {
				continue
			}
			r.Category = ""
			change.RecordIDs = append(change.RecordIDs, r.ID)
			touched = true
		}
		if touched {
			change.Keys = append(change.Keys, k)
		}
	}
	return change
}

// Generate returns the ledger of target, rolling it over from target.Prev() when it is
// not known yet. An existing ledger is returned untouched with an empty Change.
func (s *Store) Generate(target Key) (*Ledger, Change) {
	if l, ok := s.ledgers[target]; ok {
		return l, Change{Kind: ChangeGenerate}
	}
	prior, _ := s.Lookup(target.Prev())
	l := Rollover(target, prior, s.banks)
	s.ledgers[target] = l
	return l, Change{Kind: ChangeGenerate, Keys: []Key{target}}
}

// ImportRecords adds normalized records to the ledger of k, replacing its records in
// ImportReplace mode. Every imported record gets a new ID; bank and category names
// found in the batch join the global sets. Balances are never touched.
func (s *Store) ImportRecords(k Key, records []core.BillRecord, mode ImportMode) (Change, error) {
	for _, r := range records {
		if r.Kind == "" {
			r.Kind = core.Variable
		}
		if err := r.Validate(); err != nil {
			return Change{}, err
		}
	}

	l := s.Ledger(k)
	imported := make([]*core.BillRecord, 0, len(records))
	change := Change{Kind: ChangeImport, Keys: []Key{k}}
	for _, r := range records {
		rec := r
		rec.ID = core.NewRecordID()
		if rec.Kind == "" {
			rec.Kind = core.Variable
		}
		imported = append(imported, &rec)
		change.RecordIDs = append(change.RecordIDs, rec.ID)
		if s.addBank(rec.Bank) {
			change.SettingsChanged = true
		}
		if s.addCategory(rec.Category) {
			change.SettingsChanged = true
		}
	}
	if mode == ImportReplace {
		l.Records = imported
	} else {
		l.Records = append(l.Records, imported...)
	}
	return change, nil
}

func (s *Store) addBank(name string) bool {
	if name == "" || slices.Contains(s.banks, name) {
		return false
	}
	s.banks = append(s.banks, name)
	return true
}

func (s *Store) addCategory(name string) bool {
	if name == "" || slices.Contains(s.categories, name) {
		return false
	}
	s.categories = append(s.categories, name)
	return true
}
