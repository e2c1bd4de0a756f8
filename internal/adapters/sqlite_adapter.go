package adapters

import (
	"context"
	"fmt"
	"time"

	"pagamentos/internal/cache"
	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/sheets"
	"pagamentos/internal/storage"
)

// SyncPublisher announces that a month was saved with the given version.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, year, month int, version int64) error
}

type cachedMonth struct {
	data  ledger.Data
	found bool
}

// SQLiteAdapter exposes SQLiteRepository as a ledger backend. Fetches go through an
// LRU cache and every saved month is announced to the sync worker when a publisher is set.
type SQLiteAdapter struct {
	repo      *storage.SQLiteRepository
	publisher SyncPublisher
	months    *cache.LRUCache[cachedMonth]
	logger    *log.Logger
}

var (
	_ sheets.LedgerReader   = (*SQLiteAdapter)(nil)
	_ sheets.LedgerWriter   = (*SQLiteAdapter)(nil)
	_ sheets.SettingsWriter = (*SQLiteAdapter)(nil)
)

// NewSQLiteAdapter wires the repository. publisher may be nil to disable sync messages.
func NewSQLiteAdapter(repo *storage.SQLiteRepository, publisher SyncPublisher, cacheSize int, cacheTTL time.Duration, logger *log.Logger) *SQLiteAdapter {
	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	}
	return &SQLiteAdapter{
		repo:      repo,
		publisher: publisher,
		months:    cache.NewLRUCache[cachedMonth](cacheSize, cacheTTL),
		logger:    logger,
	}
}

// Cache exposes the month cache so a cache.Manager can sweep expired entries.
func (a *SQLiteAdapter) Cache() cache.Cleaner {
	return a.months
}

func (a *SQLiteAdapter) FetchMonth(ctx context.Context, year, month int) (ledger.Data, bool, error) {
	key := ledger.Key{Year: year, Month: month}.String()
	if c, ok := a.months.Get(key); ok {
		return c.data, c.found, nil
	}
	data, found, err := a.repo.FetchMonth(ctx, year, month)
	if err != nil {
		return ledger.Data{}, false, err
	}
	a.months.Set(key, cachedMonth{data: data, found: found})
	return data, found, nil
}

// SaveMonth stores the snapshot and publishes a sync message. Publish failures are
// logged only; the pending sweep of the worker picks the month up later.
func (a *SQLiteAdapter) SaveMonth(ctx context.Context, snap ledger.Snapshot) error {
	version, err := a.repo.SaveMonth(ctx, snap)
	a.months.Delete(snap.Key.String())
	if err != nil {
		return fmt.Errorf("save month %s: %w", snap.Key, err)
	}
	if a.publisher == nil {
		return nil
	}
	if err := a.publisher.PublishLedgerSync(ctx, snap.Key.Year, snap.Key.Month, version); err != nil {
		a.logger.WarnContext(ctx, "Failed to publish ledger sync message",
			log.FieldOperation, log.OpPublish,
			log.FieldYear, snap.Key.Year,
			log.FieldMonth, snap.Key.Month,
			log.FieldVersion, version,
			log.FieldError, err)
	}
	return nil
}

// SaveSettings stores the name sets. Every cached month carries the names, so the cache is purged.
func (a *SQLiteAdapter) SaveSettings(ctx context.Context, banks, categories []string) error {
	defer a.months.Purge()
	return a.repo.SaveSettings(ctx, banks, categories)
}
