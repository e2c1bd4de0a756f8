package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/middleware/ratelimit"
	"pagamentos/internal/middleware/security"
	"pagamentos/internal/middleware/trace"
	"pagamentos/internal/services"
	"pagamentos/internal/transfer"
)

// LedgerService is what the API needs from the ledger service.
type LedgerService interface {
	OpenMonth(ctx context.Context, k ledger.Key, f ledger.Filter, o ledger.Sort) (services.MonthView, error)
	GenerateNext(ctx context.Context, current ledger.Key) (services.MonthView, error)
	Months() []string

	AddRecord(ctx context.Context, k ledger.Key, edits ...ledger.Edit) (services.RecordView, error)
	EditFields(ctx context.Context, k ledger.Key, id string, edits []ledger.Edit) (services.RecordView, error)
	DeleteRecord(ctx context.Context, k ledger.Key, id string) error
	DuplicateRecord(ctx context.Context, k ledger.Key, id string) (services.RecordView, error)
	RegisterPayment(ctx context.Context, k ledger.Key, id, bank string, amount decimal.Decimal) (services.PaymentResult, error)
	ReversePayment(ctx context.Context, k ledger.Key, id string) (services.RecordView, error)
	SetOpeningBalance(ctx context.Context, k ledger.Key, bank string, amount decimal.Decimal) error

	Summary(ctx context.Context, k ledger.Key) (services.SummaryView, error)
	Trend(ctx context.Context, k ledger.Key, months int) (ledger.Trend, error)
	Import(ctx context.Context, k ledger.Key, data []byte, mode ledger.ImportMode) (int, error)
	Export(ctx context.Context, k ledger.Key, f transfer.Format) ([]byte, string, string, error)

	Names(ctx context.Context) (banks, categories []string, err error)
	AddBank(ctx context.Context, name string) error
	RemoveBank(ctx context.Context, name string) error
	AddCategory(ctx context.Context, name string) error
	RemoveCategory(ctx context.Context, name string) error
}

// Config tunes the server middleware.
type Config struct {
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For header is honored, on top of the private ranges.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc     LedgerService
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	guard   *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc LedgerService, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentHTTP)
	}
	logger := cfg.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		svc:    svc,
		logger: logger,
	}

	s.guard = security.NewDetector(cfg.Logger)
	for _, cidr := range cfg.TrustedProxies {
		if err := s.guard.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(cfg.Logger, s.guard.ExtractClientIP)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            cfg.Logger,
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	mux := http.NewServeMux()
	s.routes(mux)

	limited := s.limiter.Middleware(s.guard.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	var h http.Handler = mux
	h = mutatingOnly(limited, h)
	h = s.guard.Middleware(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

// mutatingOnly applies mw to requests that change state; reads pass through.
func mutatingOnly(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	wrapped := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			wrapped.ServeHTTP(w, r)
		}
	})
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/months", s.handleListMonths)

	const month = "/api/months/{year}/{month}"
	mux.HandleFunc("GET "+month, s.handleOpenMonth)
	mux.HandleFunc("POST "+month+"/next", s.handleGenerateNext)
	mux.HandleFunc("POST "+month+"/records", s.handleAddRecord)
	mux.HandleFunc("PATCH "+month+"/records/{id}", s.handleEditRecord)
	mux.HandleFunc("DELETE "+month+"/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("POST "+month+"/records/{id}/duplicate", s.handleDuplicateRecord)
	mux.HandleFunc("POST "+month+"/records/{id}/pay", s.handleRegisterPayment)
	mux.HandleFunc("POST "+month+"/records/{id}/reverse", s.handleReversePayment)
	mux.HandleFunc("PUT "+month+"/balances/{bank}", s.handleSetBalance)
	mux.HandleFunc("GET "+month+"/summary", s.handleSummary)
	mux.HandleFunc("GET "+month+"/trend", s.handleTrend)
	mux.HandleFunc("POST "+month+"/import", s.handleImport)
	mux.HandleFunc("GET "+month+"/export", s.handleExport)

	mux.HandleFunc("GET /api/banks", s.handleListBanks)
	mux.HandleFunc("POST /api/banks", s.handleAddName(s.svc.AddBank))
	mux.HandleFunc("DELETE /api/banks/{name}", s.handleRemoveName(s.svc.RemoveBank))
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddName(s.svc.AddCategory))
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleRemoveName(s.svc.RemoveCategory))
}

// Shutdown stops the rate limiter and shuts the HTTP server down. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.Info("HTTP server stopped",
			"requests", s.tracer.GetMetrics().TotalRequests,
			"blocked", s.guard.GetMetrics().BlockedRequests,
			"rate_limited", s.limiter.GetMetrics().TotalHits)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}
