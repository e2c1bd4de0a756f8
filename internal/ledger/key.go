package ledger

import (
	"fmt"
	"time"

	"pagamentos/internal/core"
)

// Key identifies a monthly ledger.
type Key struct {
	Year  int
	Month int // 1-12
}

// NewKey validates month and returns the ledger key.
func NewKey(year, month int) (Key, error) {
	if month < 1 || month > 12 {
		return Key{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	return Key{Year: year, Month: month}, nil
}

// KeyOf returns the key of the month containing t.
func KeyOf(t time.Time) Key {
	return Key{Year: t.Year(), Month: int(t.Month())}
}

// ParseKey reads "YYYY-MM".
func ParseKey(s string) (Key, error) {
	var y, m int
	if _, err := fmt.Sscanf(s, "%d-%d", &y, &m); err != nil {
		return Key{}, fmt.Errorf("parse ledger key %q: %w", s, err)
	}
	return NewKey(y, m)
}

// Prev returns the previous month, wrapping January to December of the prior year.
func (k Key) Prev() Key {
	if k.Month == 1 {
		return Key{Year: k.Year - 1, Month: 12}
	}
	return Key{Year: k.Year, Month: k.Month - 1}
}

// Next returns the following month, wrapping December to January of the next year.
func (k Key) Next() Key {
	if k.Month == 12 {
		return Key{Year: k.Year + 1, Month: 1}
	}
	return Key{Year: k.Year, Month: k.Month + 1}
}

func (k Key) Before(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// String renders the key as "YYYY-MM"; lexical order matches chronological order.
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Label renders the short chart label "MM/YY".
func (k Key) Label() string {
	return fmt.Sprintf("%02d/%02d", k.Month, k.Year%100)
}
