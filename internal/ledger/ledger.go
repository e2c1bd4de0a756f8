// Package ledger implements the monthly bills ledger engine: the store of per-month
// ledgers, payment registration with partial splits, month rollover, status
// classification, filtering and the summaries derived from ledger snapshots.
package ledger

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
)

// Ledger holds the ordered bill records and opening balances of one month.
type Ledger struct {
	Key      Key
	Records  []*core.BillRecord
	Balances map[string]decimal.Decimal
}

// Data is the fetch contract of a persistence backend for one month.
type Data struct {
	Records       []core.BillRecord
	Balances      map[string]decimal.Decimal
	BankNames     []string
	CategoryNames []string
}

// Snapshot is a detached copy of a ledger, safe to hand to another goroutine.
type Snapshot struct {
	Key      Key
	Records  []core.BillRecord
	Balances map[string]decimal.Decimal
}

func newLedger(k Key) *Ledger {
	return &Ledger{Key: k, Balances: map[string]decimal.Decimal{}}
}

// IndexOf returns the position of the record with id, or -1.
func (l *Ledger) IndexOf(id string) int {
	return slices.IndexFunc(l.Records, func(r *core.BillRecord) bool { return r.ID == id })
}

func (l *Ledger) Find(id string) (*core.BillRecord, bool) {
	i := l.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return l.Records[i], true
}

// Opening returns the opening balance of bank, zero when unset.
func (l *Ledger) Opening(bank string) decimal.Decimal {
	return l.Balances[bank]
}

// insertAfter places rec right after the record with id, or appends when id is absent.
func (l *Ledger) insertAfter(id string, rec *core.BillRecord) {
	i := l.IndexOf(id)
	if i < 0 {
		l.Records = append(l.Records, rec)
		return
	}
	l.Records = slices.Insert(l.Records, i+1, rec)
}

func (l *Ledger) Snapshot() Snapshot {
	snap := Snapshot{
		Key:      l.Key,
		Records:  make([]core.BillRecord, len(l.Records)),
		Balances: make(map[string]decimal.Decimal, len(l.Balances)),
	}
	for i, r := range l.Records {
		snap.Records[i] = *r
	}
	for b, v := range l.Balances {
		snap.Balances[b] = v
	}
	return snap
}

// Store owns every ledger visited in the session and the global bank and category sets.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	ledgers    map[Key]*Ledger
	banks      []string
	categories []string
}

func NewStore() *Store {
	return &Store{ledgers: make(map[Key]*Ledger)}
}

// Lookup returns the ledger for k without creating it.
func (s *Store) Lookup(k Key) (*Ledger, bool) {
	l, ok := s.ledgers[k]
	return l, ok
}

// Ledger returns the ledger for k, creating an empty one on first access.
func (s *Store) Ledger(k Key) *Ledger {
	if l, ok := s.ledgers[k]; ok {
		return l
	}
	l := newLedger(k)
	s.ledgers[k] = l
	return l
}

// Keys returns every known ledger key in chronological order.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.ledgers))
	for k := range s.ledgers {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return keys
}

func (s *Store) Banks() []string {
	return append([]string(nil), s.banks...)
}

func (s *Store) Categories() []string {
	return append([]string(nil), s.categories...)
}

// SetNames replaces the global sets. A nil slice leaves the corresponding set untouched.
func (s *Store) SetNames(banks, categories []string) {
	if banks != nil {
		s.banks = dedupe(banks)
	}
	if categories != nil {
		s.categories = dedupe(categories)
	}
}

// Load installs fetched month data, replacing any local copy of that month.
func (s *Store) Load(k Key, d Data) *Ledger {
	l := newLedger(k)
	l.Records = make([]*core.BillRecord, 0, len(d.Records))
	for _, r := range d.Records {
		rec := r
		if rec.ID == "" {
			rec.ID = core.NewRecordID()
		}
		if rec.Kind == "" {
			rec.Kind = core.Variable
		}
		l.Records = append(l.Records, &rec)
	}
	for b, v := range d.Balances {
		l.Balances[b] = v
	}
	s.ledgers[k] = l
	s.SetNames(d.BankNames, d.CategoryNames)
	return l
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
