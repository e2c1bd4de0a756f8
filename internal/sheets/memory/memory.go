package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
	ports "pagamentos/internal/sheets"
)

var (
	_ ports.LedgerReader   = (*Store)(nil)
	_ ports.LedgerWriter   = (*Store)(nil)
	_ ports.SettingsWriter = (*Store)(nil)
)

// Store keeps saved months in process memory. Everything is lost on restart.
type Store struct {
	mu         sync.Mutex
	banks      []string
	categories []string
	months     map[ledger.Key]ledger.Snapshot
	saves      int
}

func New(banks, categories []string) *Store {
	return &Store{
		banks:      dedupe(banks),
		categories: dedupe(categories),
		months:     make(map[ledger.Key]ledger.Snapshot),
	}
}

// NewFromFiles seeds bank and category names from seed_banks.txt and
// seed_categories.txt in base, falling back to a small default set.
func NewFromFiles(base string) *Store {
	banks := readLines(filepath.Join(base, "seed_banks.txt"))
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(banks) == 0 {
		banks = []string{"Nubank", "Itaú", "Inter"}
	}
	if len(cats) == 0 {
		cats = []string{"Conta básica", "Cartão de crédito", "Assinatura", "Moradia"}
	}
	return New(banks, cats)
}

func (s *Store) FetchMonth(_ context.Context, year, month int) (ledger.Data, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := ledger.Data{
		BankNames:     append([]string(nil), s.banks...),
		CategoryNames: append([]string(nil), s.categories...),
	}
	snap, ok := s.months[ledger.Key{Year: year, Month: month}]
	if !ok {
		return data, false, nil
	}
	data.Records = cloneRecords(snap.Records)
	data.Balances = cloneBalances(snap.Balances)
	return data, true, nil
}

func (s *Store) SaveMonth(_ context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[snap.Key] = ledger.Snapshot{
		Key:      snap.Key,
		Records:  cloneRecords(snap.Records),
		Balances: cloneBalances(snap.Balances),
	}
	s.saves++
	return nil
}

func (s *Store) SaveSettings(_ context.Context, banks, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks = dedupe(banks)
	s.categories = dedupe(categories)
	return nil
}

// Saves reports how many month saves were applied.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func cloneRecords(in []core.BillRecord) []core.BillRecord {
	return append([]core.BillRecord(nil), in...)
}

func cloneBalances[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
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
