package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/format"
	"smartspend/internal/identity"
	"smartspend/internal/log"
	"smartspend/internal/middleware/ratelimit"
	"smartspend/internal/middleware/security"
	"smartspend/internal/middleware/trace"
	"smartspend/internal/store"
)

// Options configures the API server. Exactly one of Verifier and OwnerID
// decides who the caller is: a verified bearer token, or a fixed owner for
// single-user deployments.
type Options struct {
	Addr               string
	Registry           *store.Registry
	Verifier           *identity.Verifier
	OwnerID            string
	Currency           format.Currency
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	registry *store.Registry
	currency format.Currency
	logger   *log.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("http: store registry is required")
	}
	if opts.Verifier == nil && strings.TrimSpace(opts.OwnerID) == "" {
		return nil, errors.New("http: either a token verifier or an owner id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	cur := opts.Currency
	if cur.Code == "" {
		cur = format.DefaultCurrency()
	}

	s := &Server{
		registry: opts.Registry,
		currency: cur,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	api := http.NewServeMux()
	s.routes(api)

	var apiHandler http.Handler = api
	if opts.Verifier != nil {
		apiHandler = opts.Verifier.Middleware(writeError)(apiHandler)
	} else {
		apiHandler = fixedOwner(strings.TrimSpace(opts.OwnerID))(apiHandler)
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		apiHandler = s.limiter.Middleware(s.detector.ClientIP, s.onRateLimit)(apiHandler)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.Handle("/api/", apiHandler)

	var handler http.Handler = root
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/transactions", s.withStore(s.listTransactions))
	mux.HandleFunc("POST /api/transactions", s.withStore(s.createTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withStore(s.updateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withStore(s.deleteTransaction))

	mux.HandleFunc("GET /api/categories", s.withStore(s.listCategories))
	mux.HandleFunc("POST /api/categories", s.withStore(s.createCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withStore(s.updateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withStore(s.deleteCategory))
	mux.HandleFunc("GET /api/categories/{id}/progress", s.withStore(s.categoryProgress))

	mux.HandleFunc("GET /api/loans", s.withStore(s.listLoans))
	mux.HandleFunc("POST /api/loans", s.withStore(s.createLoan))
	mux.HandleFunc("PUT /api/loans/{id}", s.withStore(s.updateLoan))
	mux.HandleFunc("DELETE /api/loans/{id}", s.withStore(s.deleteLoan))
	mux.HandleFunc("POST /api/loans/{id}/payments", s.withStore(s.addPayment))

	mux.HandleFunc("GET /api/dashboard", s.withStore(s.dashboard))
	mux.HandleFunc("GET /api/reports/monthly", s.withStore(s.monthlyReport))
	mux.HandleFunc("GET /api/reports/comparison", s.withStore(s.comparison))
	mux.HandleFunc("GET /api/reports/categories", s.withStore(s.categoryReport))

	mux.HandleFunc("GET /api/export", s.withStore(s.exportSnapshot))
	mux.HandleFunc("POST /api/import", s.withStore(s.importSnapshot))
}

// fixedOwner signs every request in as owner.
func fixedOwner(owner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithOwner(r.Context(), owner)))
		})
	}
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: ErrorDetail{
		Code:    "rate_limited",
		Message: "rate limit exceeded, try again later",
	}})
}

// storeFor returns the loaded store of the request's owner.
func (s *Server) storeFor(r *http.Request) (*store.Store, error) {
	st, err := s.registry.Current(r.Context(), identity.ContextProvider{})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// withStore resolves the caller's store and hands it to fn, writing any
// error fn returns.
func (s *Server) withStore(fn func(http.ResponseWriter, *http.Request, *store.Store) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.storeFor(r)
		if err == nil {
			err = fn(w, r, st)
		}
		if err != nil {
			writeError(w, r, err)
		}
	}
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", &core.ValidationError{Field: "id", Message: "id is required"}
	}
	return id, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if shutdownErr := s.Server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
	})
	return err
}

// TraceMetrics exposes the request counters.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
