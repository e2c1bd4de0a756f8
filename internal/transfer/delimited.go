package transfer

import (
	"encoding/csv"
	"strings"

	"pagamentos/internal/core"
)

// ParseDelimited reads text with a header row. Every line, the header included, is
// split on ';' when it contains one and on ',' otherwise, so a ';' header may carry
// ',' rows. Unknown columns are ignored.
func ParseDelimited(data []byte) ([]core.BillRecord, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	var (
		cols []string
		out  []core.BillRecord
	)
	for i, raw := range strings.Split(text, "\n") {
		line := i + 1
		if strings.TrimSpace(raw) == "" {
			continue
		}
		row, err := splitLine(raw)
		if err != nil {
			return nil, &core.ParseError{Line: line, Err: err}
		}
		if cols == nil {
			if cols, err = headerColumns(row); err != nil {
				return nil, &core.ParseError{Line: line, Err: err}
			}
			continue
		}
		if blank(row) {
			continue
		}

		f := fields{}
		for i, v := range row {
			if i < len(cols) && cols[i] != "" {
				f[cols[i]] = v
			}
		}
		rec, err := normalize(f, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if cols == nil {
		return nil, &core.ParseError{Err: ErrEmptyInput}
	}
	if len(out) == 0 {
		return nil, &core.ParseError{Err: ErrNoRecords}
	}
	return out, nil
}

func splitLine(text string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ','
	if strings.ContainsRune(text, ';') {
		r.Comma = ';'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.Read()
}

func headerColumns(head []string) ([]string, error) {
	cols := make([]string, len(head))
	known := 0
	for i, h := range head {
		if c, ok := canonical(strings.TrimPrefix(h, "\ufeff")); ok {
			cols[i] = c
			known++
		}
	}
	if known == 0 {
		return nil, ErrNoKnownColumns
	}
	return cols, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ExportCSV renders records as ';' separated text with a header row. Text fields have
// ';' replaced by ','; lines are joined by CRLF.
func ExportCSV(records []core.BillRecord) []byte {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(Columns, ";"))
	for _, r := range records {
		paid := "Não"
		if r.Paid {
			paid = "Sim"
		}
		lines = append(lines, strings.Join([]string{
			clean(r.Account),
			clean(r.Category),
			string(r.Kind),
			r.DueDate.String(),
			core.FormatAmount(r.Amount),
			clean(r.Bank),
			paid,
		}, ";"))
	}
	return []byte(strings.Join(lines, "\r\n"))
}

func clean(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}
