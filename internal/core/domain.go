package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Fixed    Kind = "fixo"
	Variable Kind = "variavel"
)

const dateLayout = "2006-01-02"

type (
	// Kind tells the rollover whether the amount recurs (Fixed) or must be re-entered (Variable).
	Kind string

	// Date is a calendar date without time component. The zero value means "no due date".
	Date struct {
		time.Time
	}

	// BillRecord is one obligation inside a monthly ledger.
	BillRecord struct {
		ID       string
		Account  string
		Category string
		Kind     Kind
		DueDate  Date
		Amount   decimal.Decimal
		Bank     string
		Paid     bool
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrNonPositiveAmount  = errors.New("bill amount must be greater than zero")
	ErrNonPositivePayment = errors.New("payment amount must be greater than zero")
	ErrEmptyBank          = errors.New("bank is required")
	ErrPaidWithoutBank    = errors.New("paid record must have a bank")
	ErrAlreadyPaid        = errors.New("record is already paid")
	ErrNotPaid            = errors.New("record is not paid")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrRecordNotFound     = errors.New("record not found")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("name is required")
)

// NewRecordID returns a fresh identifier for a bill record.
func NewRecordID() string {
	return uuid.NewString()
}

// ParseKind maps free text to a Kind for imported and stored rows. Anything that is
// not "fixo"/"fixed" is Variable.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixo", "fixed":
		return Fixed
	default:
		return Variable
	}
}

// ParseKindStrict accepts only the known spellings of Fixed and Variable.
func ParseKindStrict(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixo", "fixed":
		return Fixed, nil
	case "variavel", "variável", "variable":
		return Variable, nil
	}
	return "", ErrInvalidKind
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate reads the first 10 characters of s as YYYY-MM-DD.
// The second return value is false when s is empty or not a valid date.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	if s == "" {
		return Date{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, false
	}
	return Date{Time: t}, true
}

// IsEmpty returns true if the date is zero (no due date or unparseable)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d, _ = ParseDate(s)
	return nil
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDateIn places day in year/month, clamping to the month's last day (Jan 31 -> Feb 28/29).
// Day values below 1 are treated as 1.
func DueDateIn(year, month, day int) Date {
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// Clone returns a copy of the record under a new ID.
func (r BillRecord) Clone() *BillRecord {
	r.ID = NewRecordID()
	return &r
}

func (r BillRecord) Validate() error {
	if r.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrNegativeAmount}
	}
	if r.Kind != Fixed && r.Kind != Variable {
		return &ValidationError{Field: "kind", Err: ErrInvalidKind}
	}
	if r.Paid && strings.TrimSpace(r.Bank) == "" {
		return &ValidationError{Field: "bank", Err: ErrPaidWithoutBank}
	}
	return nil
}
