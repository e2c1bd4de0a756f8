package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/sheets"
)

// Backend is where ledgers are loaded from and saved to.
type Backend interface {
	sheets.LedgerReader
	sheets.LedgerWriter
	sheets.SettingsWriter
}

// Options tune a LedgerService. Zero values pick the defaults.
type Options struct {
	QueueSize   int
	TrendMonths int
	Classifier  ledger.Classifier
	Now         func() time.Time
	Logger      *log.Logger
}

type persistJob struct {
	snapshot   *ledger.Snapshot
	banks      []string
	categories []string
}

// LedgerService serializes every read and mutation of the ledger store and persists
// the months each command touched through a single ordered background dispatcher.
// Saves are fire-and-forget: failures are logged, never reported to the caller.
type LedgerService struct {
	mu          sync.Mutex
	store       *ledger.Store
	namesLoaded bool
	closed      bool

	backend     Backend
	classifier  ledger.Classifier
	now         func() time.Time
	trendMonths int
	logger      *log.Logger
	events      *log.StructuredLogger

	queue chan persistJob
	done  chan struct{}
}

func NewLedgerService(backend Backend, opts Options) *LedgerService {
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.TrendMonths < 1 {
		opts.TrendMonths = 6
	}
	if opts.Classifier == nil {
		opts.Classifier = ledger.DefaultClassifier
	}
	if opts.Now == nil {
		opts.Now = ledger.Today
	}
	if opts.Logger == nil {
		opts.Logger = log.Default(log.ComponentLedger)
	}

	s := &LedgerService{
		store:       ledger.NewStore(),
		backend:     backend,
		classifier:  opts.Classifier,
		now:         opts.Now,
		trendMonths: opts.TrendMonths,
		logger:      opts.Logger,
		events:      log.NewStructuredLogger(opts.Logger),
		queue:       make(chan persistJob, opts.QueueSize),
		done:        make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Close stops accepting saves and waits until the queued ones are written.
func (s *LedgerService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *LedgerService) dispatch() {
	defer close(s.done)
	plog := s.logger.WithComponent(log.ComponentPersist)
	for job := range s.queue {
		ctx := context.Background()
		if job.snapshot == nil {
			if err := s.backend.SaveSettings(ctx, job.banks, job.categories); err != nil {
				plog.ErrorContext(ctx, "Failed to save settings",
					log.FieldOperation, log.OpSettings,
					log.FieldError, &core.PersistenceError{Op: log.OpSettings, Err: err})
			}
			continue
		}
		k := job.snapshot.Key
		if err := s.backend.SaveMonth(ctx, *job.snapshot); err != nil {
			plog.ErrorContext(ctx, "Failed to save ledger month",
				log.FieldOperation, log.OpSave,
				log.FieldYear, k.Year,
				log.FieldMonth, k.Month,
				log.FieldError, &core.PersistenceError{Op: log.OpSave, Year: k.Year, Month: k.Month, Err: err})
			continue
		}
		plog.DebugContext(ctx, "Saved ledger month",
			log.FieldYear, k.Year, log.FieldMonth, k.Month, log.FieldRecords, len(job.snapshot.Records))
	}
}

// enqueue must be called with s.mu held.
func (s *LedgerService) enqueue(job persistJob) {
	if s.closed {
		s.logger.Warn("Service closed, dropping save")
		return
	}
	select {
	case s.queue <- job:
	default:
		args := []any{log.FieldOperation, log.OpSave}
		if job.snapshot != nil {
			args = append(args, log.FieldYear, job.snapshot.Key.Year, log.FieldMonth, job.snapshot.Key.Month)
		}
		s.logger.Warn("Persistence queue full, dropping save", args...)
	}
}

// persist queues a save of every month and of the name sets the change touched.
// Must be called with s.mu held.
func (s *LedgerService) persist(ctx context.Context, change ledger.Change) {
	for _, k := range change.Keys {
		l, ok := s.store.Lookup(k)
		if !ok {
			continue
		}
		snap := l.Snapshot()
		s.enqueue(persistJob{snapshot: &snap})
	}
	if change.SettingsChanged {
		s.enqueue(persistJob{
			banks:      slices.Clone(s.store.Banks()),
			categories: slices.Clone(s.store.Categories()),
		})
	}
	if !change.IsEmpty() {
		var year, month int
		if len(change.Keys) > 0 {
			year, month = change.Keys[0].Year, change.Keys[0].Month
		}
		s.events.LogCommand(ctx, string(change.Kind), year, month, change.RecordIDs)
	}
}

// open returns the local ledger of k, loading it from the backend first when it is
// unknown locally. Months the backend never saw start empty. Must be called with s.mu held.
func (s *LedgerService) open(ctx context.Context, k ledger.Key) (*ledger.Ledger, error) {
	if l, ok := s.store.Lookup(k); ok {
		return l, nil
	}
	data, found, err := s.fetch(ctx, k)
	if err != nil {
		return nil, err
	}
	if found {
		return s.store.Load(k, data), nil
	}
	s.store.SetNames(data.BankNames, data.CategoryNames)
	return s.store.Ledger(k), nil
}

// fetch reads k from the backend. Local names win once they were loaded, since a
// settings save may still be queued.
func (s *LedgerService) fetch(ctx context.Context, k ledger.Key) (ledger.Data, bool, error) {
	data, found, err := s.backend.FetchMonth(ctx, k.Year, k.Month)
	if err != nil {
		return ledger.Data{}, false, fmt.Errorf("load month %s: %w", k, err)
	}
	if s.namesLoaded {
		data.BankNames, data.CategoryNames = nil, nil
	}
	s.namesLoaded = true
	return data, found, nil
}

// OpenMonth makes k the month being worked on and returns its records view.
func (s *LedgerService) OpenMonth(ctx context.Context, k ledger.Key, f ledger.Filter, o ledger.Sort) (MonthView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.open(ctx, k)
	if err != nil {
		return MonthView{}, err
	}
	return s.monthView(l, f, o), nil
}

// GenerateNext returns the month after current. The backend copy wins when it exists;
// otherwise the month is rolled over from current and saved.
func (s *LedgerService) GenerateNext(ctx context.Context, current ledger.Key) (MonthView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := current.Next()
	if l, ok := s.store.Lookup(target); ok {
		return s.monthView(l, ledger.Filter{}, ledger.Sort{}), nil
	}
	data, found, err := s.fetch(ctx, target)
	if err != nil {
		return MonthView{}, err
	}
	if found {
		l := s.store.Load(target, data)
		return s.monthView(l, ledger.Filter{}, ledger.Sort{}), nil
	}
	s.store.SetNames(data.BankNames, data.CategoryNames)

	if _, err := s.open(ctx, current); err != nil {
		return MonthView{}, err
	}
	l, change := s.store.Generate(target)
	s.persist(ctx, change)
	s.logger.InfoContext(ctx, "Generated month by rollover",
		log.FieldYear, target.Year, log.FieldMonth, target.Month, log.FieldRecords, len(l.Records))
	return s.monthView(l, ledger.Filter{}, ledger.Sort{}), nil
}

// mutate opens k, runs fn under the lock and persists its change on success.
func (s *LedgerService) mutate(ctx context.Context, k ledger.Key, fn func() (ledger.Change, error)) (ledger.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.open(ctx, k); err != nil {
		return ledger.Change{}, err
	}
	change, err := fn()
	if err != nil {
		return ledger.Change{}, err
	}
	s.persist(ctx, change)
	return change, nil
}

// AddRecord inserts a new record with optional initial values. A rejected edit
// leaves the ledger without the record.
func (s *LedgerService) AddRecord(ctx context.Context, k ledger.Key, edits ...ledger.Edit) (RecordView, error) {
	var rec *core.BillRecord
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		var (
			change ledger.Change
			err    error
		)
		rec, change, err = s.store.AddRecordWith(k, s.now(), edits)
		if err != nil {
			return change, err
		}
		return s.inferCategory(k, rec, edits, change), nil
	})
	if err != nil {
		return RecordView{}, err
	}
	return s.recordView(rec), nil
}

// EditField updates one field. After an account edit on a record without category
// the classifier may fill the category in.
func (s *LedgerService) EditField(ctx context.Context, k ledger.Key, id string, field ledger.Field, value string) (RecordView, error) {
	return s.EditFields(ctx, k, id, []ledger.Edit{{Field: field, Value: value}})
}

// EditFields applies several edits to one record, all or none.
func (s *LedgerService) EditFields(ctx context.Context, k ledger.Key, id string, edits []ledger.Edit) (RecordView, error) {
	var rec *core.BillRecord
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		change, err := s.store.EditFields(k, id, edits)
		if err != nil {
			return change, err
		}
		l, _ := s.store.Lookup(k)
		rec, _ = l.Find(id)
		return s.inferCategory(k, rec, edits, change), nil
	})
	if err != nil {
		return RecordView{}, err
	}
	return s.recordView(rec), nil
}

func (s *LedgerService) inferCategory(k ledger.Key, rec *core.BillRecord, edits []ledger.Edit, change ledger.Change) ledger.Change {
	if rec.Category != "" || !slices.ContainsFunc(edits, func(e ledger.Edit) bool { return e.Field == ledger.FieldAccount }) {
		return change
	}
	cat := s.classifier.Classify(rec.Account)
	if cat == "" {
		return change
	}
	// Category edits cannot fail.
	catChange, _ := s.store.EditField(k, rec.ID, ledger.FieldCategory, cat)
	change.SettingsChanged = change.SettingsChanged || catChange.SettingsChanged
	return change
}

func (s *LedgerService) DeleteRecord(ctx context.Context, k ledger.Key, id string) error {
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		return s.store.DeleteRecord(k, id)
	})
	return err
}

func (s *LedgerService) DuplicateRecord(ctx context.Context, k ledger.Key, id string) (RecordView, error) {
	var rec *core.BillRecord
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		var change ledger.Change
		var err error
		rec, change, err = s.store.DuplicateRecord(k, id)
		return change, err
	})
	if err != nil {
		return RecordView{}, err
	}
	return s.recordView(rec), nil
}

// PaymentResult is the paid record and, after a partial payment, the open remainder.
type PaymentResult struct {
	Paid      RecordView  `json:"paid"`
	Remainder *RecordView `json:"remainder,omitempty"`
}

func (s *LedgerService) RegisterPayment(ctx context.Context, k ledger.Key, id, bank string, amount decimal.Decimal) (PaymentResult, error) {
	var res PaymentResult
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		remainder, change, err := s.store.RegisterPayment(k, id, bank, amount)
		if err != nil {
			return change, err
		}
		l, _ := s.store.Lookup(k)
		rec, _ := l.Find(id)
		res.Paid = s.recordView(rec)
		if remainder != nil {
			rv := s.recordView(remainder)
			res.Remainder = &rv
		}
		return change, nil
	})
	return res, err
}

func (s *LedgerService) ReversePayment(ctx context.Context, k ledger.Key, id string) (RecordView, error) {
	var rv RecordView
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		change, err := s.store.ReversePayment(k, id)
		if err != nil {
			return change, err
		}
		l, _ := s.store.Lookup(k)
		rec, _ := l.Find(id)
		rv = s.recordView(rec)
		return change, nil
	})
	return rv, err
}

func (s *LedgerService) SetOpeningBalance(ctx context.Context, k ledger.Key, bank string, amount decimal.Decimal) error {
	_, err := s.mutate(ctx, k, func() (ledger.Change, error) {
		return s.store.SetOpeningBalance(k, bank, amount)
	})
	return err
}

// Names returns the global bank and category sets.
func (s *LedgerService) Names(ctx context.Context) (banks, categories []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureNames(ctx); err != nil {
		return nil, nil, err
	}
	return slices.Clone(s.store.Banks()), slices.Clone(s.store.Categories()), nil
}

// ensureNames loads the name sets once, through the month of today.
func (s *LedgerService) ensureNames(ctx context.Context) error {
	if s.namesLoaded {
		return nil
	}
	_, err := s.open(ctx, ledger.KeyOf(s.now()))
	return err
}

func (s *LedgerService) settings(ctx context.Context, fn func() (ledger.Change, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureNames(ctx); err != nil {
		return err
	}
	change, err := fn()
	if err != nil {
		return err
	}
	s.persist(ctx, change)
	return nil
}

func (s *LedgerService) AddBank(ctx context.Context, name string) error {
	return s.settings(ctx, func() (ledger.Change, error) { return s.store.AddBank(name) })
}

// RemoveBank drops the bank everywhere it is used in loaded months.
func (s *LedgerService) RemoveBank(ctx context.Context, name string) error {
	return s.settings(ctx, func() (ledger.Change, error) { return s.store.RemoveBank(name), nil })
}

func (s *LedgerService) AddCategory(ctx context.Context, name string) error {
	return s.settings(ctx, func() (ledger.Change, error) { return s.store.AddCategory(name) })
}

func (s *LedgerService) RemoveCategory(ctx context.Context, name string) error {
	return s.settings(ctx, func() (ledger.Change, error) { return s.store.RemoveCategory(name), nil })
}
