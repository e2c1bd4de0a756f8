// Package transfer converts bill records to and from the external interchange formats:
// a JSON array of records and ';' or ',' delimited text with a header row.
package transfer

import (
	"bytes"
	"errors"
	"strings"

	"pagamentos/internal/core"
)

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Column names of the interchange formats, in export order.
const (
	ColAccount  = "conta"
	ColCategory = "categoria"
	ColKind     = "tipo"
	ColDueDate  = "vencimento"
	ColAmount   = "valor"
	ColBank     = "banco"
	ColPaid     = "pago"
)

var Columns = []string{ColAccount, ColCategory, ColKind, ColDueDate, ColAmount, ColBank, ColPaid}

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrNoRecords      = errors.New("no records found")
	ErrNoKnownColumns = errors.New("header has no recognized column")
	ErrJSONShape      = errors.New("expected an array of records or an object with records")
)

type Format string

// ParseFormat maps "json" to FormatJSON; anything else is FormatCSV.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatCSV
}

// Filename is the download name of an exported ledger, e.g. "pagamentos_2025-11.csv".
func Filename(key string, f Format) string {
	return "pagamentos_" + key + "." + string(f)
}

// Parse detects the input format and normalizes it into records. Any malformed
// row rejects the whole batch with a *core.ParseError.
func Parse(data []byte) ([]core.BillRecord, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if len(trimmed) == 0 {
		return nil, &core.ParseError{Err: ErrEmptyInput}
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return ParseJSON(trimmed)
	}
	return ParseDelimited(trimmed)
}

// fields is one input row keyed by canonical column name.
type fields map[string]string

var aliases = map[string]string{
	"conta":              ColAccount,
	"conta de pagamento": ColAccount,
	"account":            ColAccount,
	"categoria":          ColCategory,
	"category":           ColCategory,
	"tipo":               ColKind,
	"kind":               ColKind,
	"vencimento":         ColDueDate,
	"data de vencimento": ColDueDate,
	"due_date":           ColDueDate,
	"valor":              ColAmount,
	"amount":             ColAmount,
	"banco":              ColBank,
	"bank":               ColBank,
	"pago":               ColPaid,
	"paid":               ColPaid,
}

func canonical(name string) (string, bool) {
	c, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// normalize builds a validated record from one row. line is reported in errors.
func normalize(f fields, line int) (core.BillRecord, error) {
	amount, err := core.ParseAmount(f[ColAmount])
	if err != nil {
		return core.BillRecord{}, &core.ParseError{Line: line, Err: err}
	}
	due, _ := core.ParseDate(f[ColDueDate])

	rec := core.BillRecord{
		Account:  strings.TrimSpace(f[ColAccount]),
		Category: strings.TrimSpace(f[ColCategory]),
		Kind:     core.ParseKind(f[ColKind]),
		DueDate:  due,
		Amount:   amount,
		Bank:     strings.TrimSpace(f[ColBank]),
		Paid:     truthy(f[ColPaid]),
	}
	if err := rec.Validate(); err != nil {
		return core.BillRecord{}, &core.ParseError{Line: line, Err: err}
	}
	return rec, nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "s", "true", "1", "pago":
		return true
	}
	return false
}
