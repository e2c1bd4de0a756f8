package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pagamentos/internal/core"
)

// exportRecord fixes the JSON field order to match the delimited header.
type exportRecord struct {
	Account  string      `json:"conta"`
	Category string      `json:"categoria"`
	Kind     core.Kind   `json:"tipo"`
	DueDate  core.Date   `json:"vencimento"`
	Amount   json.Number `json:"valor"`
	Bank     string      `json:"banco"`
	Paid     bool        `json:"pago"`
}

// ParseJSON accepts an array of records or an object wrapping one under "records"
// or "contas". Amounts may be numbers or pt-BR strings; "pago" may be a boolean or
// one of the truthy words.
func ParseJSON(data []byte) ([]core.BillRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &core.ParseError{Err: err}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["records"]
		if !ok {
			list, ok = v["contas"]
		}
		if items, ok = list.([]any); !ok {
			return nil, &core.ParseError{Err: ErrJSONShape}
		}
	default:
		return nil, &core.ParseError{Err: ErrJSONShape}
	}
	if len(items) == 0 {
		return nil, &core.ParseError{Err: ErrNoRecords}
	}

	out := make([]core.BillRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &core.ParseError{Line: i + 1, Err: ErrJSONShape}
		}
		f := fields{}
		for k, v := range obj {
			col, ok := canonical(k)
			if !ok {
				continue
			}
			s, err := scalar(v)
			if err != nil {
				return nil, &core.ParseError{Line: i + 1, Err: fmt.Errorf("field %q: %w", k, err)}
			}
			f[col] = s
		}
		rec, err := normalize(f, i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func scalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}

// ExportJSON renders records as an indented JSON array.
func ExportJSON(records []core.BillRecord) ([]byte, error) {
	out := make([]exportRecord, len(records))
	for i, r := range records {
		out[i] = exportRecord{
			Account:  r.Account,
			Category: r.Category,
			Kind:     r.Kind,
			DueDate:  r.DueDate,
			Amount:   json.Number(r.Amount.StringFixed(2)),
			Bank:     r.Bank,
			Paid:     r.Paid,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// Export renders records in format f and returns the content type to serve it with.
func Export(records []core.BillRecord, f Format) ([]byte, string, error) {
	if f == FormatJSON {
		b, err := ExportJSON(records)
		return b, "application/json", err
	}
	return ExportCSV(records), "text/csv; charset=utf-8", nil
}

