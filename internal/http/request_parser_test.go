package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
)

func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		year    string
		month   string
		want    ledger.Key
		wantErr bool
	}{
		{"valid", "2025", "3", ledger.Key{Year: 2025, Month: 3}, false},
		{"padded month", "2024", "09", ledger.Key{Year: 2024, Month: 9}, false},
		{"month out of range", "2025", "13", ledger.Key{}, true},
		{"non numeric year", "abc", "1", ledger.Key{}, true},
		{"zero month", "2025", "0", ledger.Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("year", tt.year)
			req.SetPathValue("month", tt.month)

			got, err := ParseMonthKey(req)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseMonthKey() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestParseFilterAndSort(t *testing.T) {
	q := url.Values{
		"status":   {"vencidos"},
		"bank":     {" Nubank "},
		"category": {"Moradia"},
		"q":        {"luz\x00"},
		"sort":     {"valor"},
		"dir":      {"DESC"},
	}

	f := ParseFilter(q)
	if f.Status != ledger.FilterOverdue || f.Bank != "Nubank" || f.Category != "Moradia" || f.Search != "luz" {
		t.Errorf("filter = %+v", f)
	}
	s := ParseSort(q)
	if s.Field != ledger.SortAmount || s.Direction != ledger.Desc {
		t.Errorf("sort = %+v", s)
	}

	if got := ParseFilter(url.Values{}); got.Status != ledger.FilterAll {
		t.Errorf("default status = %q", got.Status)
	}
}

func TestParsePositiveInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"6", 6},
		{"", 0},
		{"-2", 0},
		{"x", 0},
	}
	for _, tt := range tests {
		if got := ParsePositiveInt(url.Values{"months": {tt.raw}}, "months"); got != tt.want {
			t.Errorf("ParsePositiveInt(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"bank": "Nubank", "amount": 42.5, "paid": true}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("bank"); got != "Nubank" {
		t.Errorf("Get(bank) = %q", got)
	}
	if got := parser.Get("paid"); got != "true" {
		t.Errorf("Get(paid) = %q", got)
	}
	amount, err := parser.Amount("amount")
	if err != nil || amount.String() != "42.5" {
		t.Errorf("Amount() = %s, %v", amount, err)
	}
	if parser.Has("missing") {
		t.Error("Has(missing) should be false")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "bank=Inter&amount=1.234%2C56"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	amount, err := parser.Amount("amount")
	if err != nil || amount.String() != "1234.56" {
		t.Errorf("Amount() = %s, %v", amount, err)
	}
	if !parser.Has("bank") || parser.Get("bank") != "Inter" {
		t.Errorf("Get(bank) = %q", parser.Get("bank"))
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"bank":`))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); !core.IsValidation(err) {
		t.Errorf("malformed JSON err = %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"amount":"-5"}`))
	parser = NewRequestBodyParser(req)
	_ = parser.Parse()
	if _, err := parser.Amount("amount"); !core.IsValidation(err) {
		t.Errorf("negative amount err = %v", err)
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := strings.Repeat("a", maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Parse() err = %v, want ErrBodyTooLarge", err)
	}
	if len(parser.GetRaw()) != 0 {
		t.Errorf("oversized body kept %d bytes", len(parser.GetRaw()))
	}

	req = httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", maxBodyBytes)))
	if parser := NewRequestBodyParser(req); len(parser.GetRaw()) != maxBodyBytes {
		t.Errorf("body at the limit = %d bytes, want %d", len(parser.GetRaw()), maxBodyBytes)
	}
}

func TestRequestBodyParser_SignedAmount(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/test", strings.NewReader(`{"amount":"-300,00"}`))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := parser.Amount("amount"); !core.IsValidation(err) {
		t.Errorf("Amount() err = %v, want validation error", err)
	}
	got, err := parser.SignedAmount("amount")
	if err != nil || got.String() != "-300" {
		t.Errorf("SignedAmount() = %s, %v", got, err)
	}
}

func TestRequestBodyParser_Edits(t *testing.T) {
	body := `{"bank":"Nubank","amount":"10","account":"Luz","color":"red"}`
	req := httptest.NewRequest(http.MethodPatch, "/test", strings.NewReader(body))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	edits := parser.Edits(editableFields)
	want := []ledger.Edit{
		{Field: ledger.FieldAccount, Value: "Luz"},
		{Field: ledger.FieldAmount, Value: "10"},
		{Field: ledger.FieldBank, Value: "Nubank"},
	}
	if len(edits) != len(want) {
		t.Fatalf("Edits() = %+v", edits)
	}
	for i := range want {
		if edits[i] != want[i] {
			t.Errorf("edit %d = %+v, want %+v", i, edits[i], want[i])
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Luz  ", "Luz"},
		{"a\x00b\x07c", "abc"},
		{"linha\tcom\ttab", "linha\tcom\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
