// Package http serves the household ledger as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gagyebu/internal/cache"
	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
	"gagyebu/internal/log"
	"gagyebu/internal/metrics"
	"gagyebu/internal/middleware/ratelimit"
	"gagyebu/internal/middleware/security"
	"gagyebu/internal/middleware/trace"
	"gagyebu/internal/services"
)

const (
	overviewCacheSize = 200
	overviewCacheTTL  = 5 * time.Minute
	cacheCleanupEvery = 10 * time.Minute
)

// Deps are the collaborators the server needs. Store and Transactions are
// required.
type Deps struct {
	Store        ledger.Store
	Transactions *services.TransactionService
	Logger       *log.Logger
	Metrics      metrics.Recorder
	// MetricsHandler is mounted on /metrics when set.
	MetricsHandler http.Handler
	// ReadyChecks are run by /readyz in addition to the store ping.
	ReadyChecks        map[string]func(context.Context) error
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	store        ledger.Store
	transactions *services.TransactionService
	budgets      *services.BudgetService
	logger       *log.Logger
	metrics      metrics.Recorder
	readyChecks  map[string]func(context.Context) error

	overviews    *cache.Loader[core.MonthOverview]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	rec := metrics.OrNoOp(d.Metrics)

	overviewLRU := cache.NewLRUCache[core.MonthOverview](overviewCacheSize, overviewCacheTTL)
	manager := cache.NewManager()
	manager.Register(overviewLRU)
	manager.StartCleanup(cacheCleanupEvery)

	s := &Server{
		store:        d.Store,
		transactions: d.Transactions,
		logger:       logger.WithComponent(log.ComponentHTTP),
		metrics:      rec,
		readyChecks:  d.ReadyChecks,
		overviews:    cache.NewLoader("overview", overviewLRU, rec),
		cacheManager: manager,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		detector:     security.NewDetector(),
	}
	s.budgets = services.NewBudgetService(d.Store, cachedOverviews{s})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if d.MetricsHandler != nil {
		mux.Handle("GET /metrics", d.MetricsHandler)
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/households", s.handleCreateHousehold)
	api.HandleFunc("GET /api/households/{householdID}", s.handleGetHousehold)
	api.HandleFunc("POST /api/households/{householdID}/members", s.handleAddMember)
	api.HandleFunc("GET /api/households/{householdID}/members", s.handleListMembers)
	api.HandleFunc("GET /api/households/{householdID}/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/households/{householdID}/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/households/{householdID}/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("DELETE /api/households/{householdID}/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /api/households/{householdID}/transactions/duplicates", s.handleCheckDuplicates)
	api.HandleFunc("GET /api/households/{householdID}/overview", s.handleMonthOverview)
	api.HandleFunc("GET /api/households/{householdID}/categories", s.handleListCategories)
	api.HandleFunc("GET /api/households/{householdID}/budgets", s.handleBudgetStatus)
	api.HandleFunc("PUT /api/households/{householdID}/budgets", s.handleSetBudget)
	api.HandleFunc("GET /api/households/{householdID}/reports/transactions.csv", s.handleExportCSV)
	mux.Handle("/api/", s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(api))

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, rec).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// cachedOverviews serves month overviews through the server's cache.
type cachedOverviews struct{ s *Server }

func (c cachedOverviews) ReadMonthOverview(ctx context.Context, householdID string, year, month int) (core.MonthOverview, error) {
	return c.s.monthOverview(ctx, householdID, year, month)
}

func (s *Server) monthOverview(ctx context.Context, householdID string, year, month int) (core.MonthOverview, error) {
	key := fmt.Sprintf("%s:%04d-%02d", householdID, year, month)
	return s.overviews.Get(ctx, key, func(ctx context.Context) (core.MonthOverview, error) {
		return s.store.ReadMonthOverview(ctx, householdID, year, month)
	})
}

// invalidateHousehold drops cached overviews after a write.
func (s *Server) invalidateHousehold(householdID string) {
	s.overviews.Invalidate(householdID + ":")
}
