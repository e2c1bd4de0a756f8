package worker

import (
	"context"
	"fmt"

	"pagamentos/internal/amqp"
	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/sheets"
	"pagamentos/internal/storage"
)

// MonthStore is the part of the SQLite repository the worker reads and updates
type MonthStore interface {
	sheets.LedgerReader
	MonthVersion(ctx context.Context, year, month int) (int64, error)
	GetPendingSyncMonths(ctx context.Context, limit int) ([]storage.PendingSyncMonth, error)
	MarkSynced(ctx context.Context, year, month int, version int64) error
	MarkSyncError(ctx context.Context, year, month int) error
}

// SyncWorker mirrors saved ledger months from SQLite into Google Sheets
type SyncWorker struct {
	store     MonthStore
	mirror    sheets.MonthMirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store MonthStore, mirror sheets.MonthMirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SyncWorker{store: store, mirror: mirror, batchSize: batchSize, logger: logger}
}

// HandleLedgerSync processes a single ledger-saved message from AMQP. The month is
// mirrored in its current state whatever version the message carries.
func (w *SyncWorker) HandleLedgerSync(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger sync message",
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month,
		log.FieldVersion, msg.Version)

	if err := w.SyncMonth(ctx, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("sync month %04d-%02d: %w", msg.Year, msg.Month, err)
	}
	return nil
}

// SyncMonth mirrors the current state of a month and records the version that was written.
// The version is read before the fetch so a save racing with the mirror stays pending.
func (w *SyncWorker) SyncMonth(ctx context.Context, year, month int) error {
	version, err := w.store.MonthVersion(ctx, year, month)
	if err != nil {
		return err
	}
	if version == 0 {
		w.logger.WarnContext(ctx, "Month was never saved, skipping", log.FieldYear, year, log.FieldMonth, month)
		return nil
	}

	data, _, err := w.store.FetchMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("fetch month: %w", err)
	}
	snap := ledger.Snapshot{
		Key:      ledger.Key{Year: year, Month: month},
		Records:  data.Records,
		Balances: data.Balances,
	}
	if err := w.mirror.MirrorMonth(ctx, snap); err != nil {
		if markErr := w.store.MarkSyncError(ctx, year, month); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldYear, year, log.FieldMonth, month, log.FieldError, markErr)
		}
		return fmt.Errorf("mirror month: %w", err)
	}
	if err := w.store.MarkSynced(ctx, year, month, version); err != nil {
		// The tab is written; the sweep rewrites it once more at worst.
		w.logger.WarnContext(ctx, "Failed to mark month as synced",
			log.FieldYear, year, log.FieldMonth, month, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger month",
		log.FieldYear, year,
		log.FieldMonth, month,
		log.FieldVersion, version,
		log.FieldRecords, len(data.Records))
	return nil
}

// ProcessPendingMonths mirrors months whose saved version is ahead of the mirror.
// This is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingMonths(ctx context.Context) error {
	_, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger sweep when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending months found on startup")
	}
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.GetPendingSyncMonths(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending months: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending months", "count", len(pending))
	synced, failed := 0, 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.SyncMonth(ctx, p.Year, p.Month); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync pending month",
				log.FieldYear, p.Year, log.FieldMonth, p.Month, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return len(pending), nil
}
