package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"pagamentos/internal/ledger"
	ports "pagamentos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is the first row of every month tab.
var Header = []any{"Conta", "Categoria", "Tipo", "Vencimento", "Valor", "Banco", "Pago"}

// Client mirrors ledgers into a spreadsheet, one tab per month named YYYY-MM.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.MonthMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. Inline JSON
// takes precedence over the credentials file.
func New(ctx context.Context, spreadsheetID, credentialsJSON, credentialsFile string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, credentialsJSON, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID), nil
}

func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", serviceAccountFile, "size", len(data))
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// MirrorMonth replaces the content of the month's tab with the snapshot.
func (c *Client) MirrorMonth(ctx context.Context, snap ledger.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := snap.Key.String()
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear tab %s: %w", tab, err)
	}

	rng := fmt.Sprintf("%s!A1", tab)
	vr := &gsheet.ValueRange{Values: BuildRows(snap)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update tab %s: %w", tab, err)
	}
	return nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created month tab", "tab", title)
	return nil
}

// BuildRows lays out a month tab: header, one row per record in ledger order,
// a blank row, then the opening balance of each bank sorted by name.
func BuildRows(snap ledger.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Records)+len(snap.Balances)+3)
	rows = append(rows, Header)
	for _, r := range snap.Records {
		paid := "Não"
		if r.Paid {
			paid = "Sim"
		}
		rows = append(rows, []any{
			r.Account,
			r.Category,
			string(r.Kind),
			r.DueDate.String(),
			r.Amount.Round(2).InexactFloat64(),
			r.Bank,
			paid,
		})
	}
	if len(snap.Balances) == 0 {
		return rows
	}

	banks := make([]string, 0, len(snap.Balances))
	for b := range snap.Balances {
		banks = append(banks, b)
	}
	sort.Strings(banks)
	rows = append(rows, []any{}, []any{"Banco", "Saldo inicial"})
	for _, b := range banks {
		rows = append(rows, []any{b, snap.Balances[b].Round(2).InexactFloat64()})
	}
	return rows
}

