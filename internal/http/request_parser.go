package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 2 << 20

// ErrBodyTooLarge is returned for bodies over maxBodyBytes. They are rejected, never truncated.
var ErrBodyTooLarge = errors.New("request body too large")

// ParseMonthKey reads the {year} and {month} path values.
func ParseMonthKey(r *http.Request) (ledger.Key, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 {
		return ledger.Key{}, &core.ValidationError{Field: "year", Err: core.ErrInvalidMonth}
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return ledger.Key{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	return ledger.NewKey(year, month)
}

// ParseFilter reads status, bank, category and q from the query string.
func ParseFilter(query url.Values) ledger.Filter {
	return ledger.Filter{
		Status:   ledger.ParseStatusFilter(query.Get("status")),
		Bank:     sanitizeInput(query.Get("bank")),
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("q")),
	}
}

// ParseSort reads sort and dir from the query string.
func ParseSort(query url.Values) ledger.Sort {
	return ledger.Sort{
		Field:     ledger.ParseSortField(query.Get("sort")),
		Direction: ledger.ParseDirection(query.Get("dir")),
	}
}

// ParsePositiveInt returns the query value as an int, or 0 when absent or invalid.
func ParsePositiveInt(query url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get(key)))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// RequestBodyParser reads a JSON object or form-encoded body once and
// exposes its values as sanitized strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.body, p.err = nil, ErrBodyTooLarge
	}
	return p
}

// Parse decodes the body. A malformed body is a ValidationError.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = &core.ValidationError{Field: "body", Err: err}
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(trimmed)
	if err != nil {
		p.err = &core.ValidationError{Field: "body", Err: err}
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Amount parses key as a monetary value ("1.234,56" or "1234.56").
func (p *RequestBodyParser) Amount(key string) (decimal.Decimal, error) {
	return p.amount(key, core.ParseAmount)
}

// SignedAmount is Amount that also accepts a leading minus sign.
func (p *RequestBodyParser) SignedAmount(key string) (decimal.Decimal, error) {
	return p.amount(key, core.ParseSignedAmount)
}

func (p *RequestBodyParser) amount(key string, parse func(string) (decimal.Decimal, error)) (decimal.Decimal, error) {
	v, err := parse(p.Get(key))
	if err != nil {
		return v, &core.ValidationError{Field: key, Err: err}
	}
	return v, nil
}

// Edits returns the present fields as edits, in the order of fields.
func (p *RequestBodyParser) Edits(fields []ledger.Field) []ledger.Edit {
	var edits []ledger.Edit
	for _, f := range fields {
		if p.Has(string(f)) {
			edits = append(edits, ledger.Edit{Field: f, Value: p.Get(string(f))})
		}
	}
	return edits
}

func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
