package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
)

func sampleSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Key: ledger.Key{Year: 2025, Month: 1},
		Records: []core.BillRecord{
			{ID: "a", Account: "Luz", Category: "Conta básica", Kind: core.Fixed,
				DueDate: core.NewDate(2025, 1, 10), Amount: decimal.RequireFromString("100"), Bank: "Nubank", Paid: true},
			{ID: "b", Account: "Netflix", Kind: core.Variable, Amount: decimal.RequireFromString("55.9")},
		},
		Balances: map[string]decimal.Decimal{
			"Nubank": decimal.RequireFromString("5000"),
			"C6":     decimal.Zero,
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(sampleSnapshot())
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7: %v", len(rows), rows)
	}
	if rows[0][0] != "Conta" {
		t.Errorf("header = %v", rows[0])
	}
	first := rows[1]
	if first[0] != "Luz" || first[2] != "fixo" || first[3] != "2025-01-10" || first[4] != 100.0 || first[6] != "Sim" {
		t.Errorf("first row = %v", first)
	}
	second := rows[2]
	if second[3] != "" || second[4] != 55.9 || second[6] != "Não" {
		t.Errorf("second row = %v", second)
	}
	if len(rows[3]) != 0 {
		t.Errorf("expected blank separator, got %v", rows[3])
	}
	if rows[5][0] != "C6" || rows[6][0] != "Nubank" || rows[6][1] != 5000.0 {
		t.Errorf("balances not sorted: %v %v", rows[5], rows[6])
	}
}

func TestBuildRowsWithoutBalances(t *testing.T) {
	snap := sampleSnapshot()
	snap.Balances = nil
	if rows := BuildRows(snap); len(rows) != 3 {
		t.Errorf("rows = %d, want 3", len(rows))
	}
}

type fakeSheets struct {
	mu       sync.Mutex
	tabs     []string
	calls    []string
	lastBody gsheet.ValueRange
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, tab := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": tab}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return NewWithService(svc, "sheet-id")
}

func TestMirrorMonthCreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"2024-12"}}
	c := newTestClient(t, fake)

	if err := c.MirrorMonth(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	want := []string{"get", "add", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
	if fake.tabs[len(fake.tabs)-1] != "2025-01" {
		t.Errorf("tabs = %v", fake.tabs)
	}
	if len(fake.lastBody.Values) != 7 {
		t.Errorf("written rows = %d", len(fake.lastBody.Values))
	}
}

func TestMirrorMonthReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"2025-01"}}
	c := newTestClient(t, fake)

	if err := c.MirrorMonth(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	for _, call := range fake.calls {
		if call == "add" {
			t.Fatalf("tab should not be recreated: %v", fake.calls)
		}
	}
}

func TestMirrorMonthWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if err := c.MirrorMonth(context.Background(), sampleSnapshot()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), " ", "{}", ""); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
	_, err := New(context.Background(), "id", "", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = New(context.Background(), "id", "", "/does/not/exist.json")
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}
