package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cashback/internal/core"
	"cashback/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// CashbackService is the operation set the handlers drive.
type CashbackService interface {
	GetCatalog(ctx context.Context) (core.Catalog, error)
	GetLedger(ctx context.Context) (core.Ledger, error)
	CreateCard(ctx context.Context, name string, categories core.Rates) error
	MutateCard(ctx context.Context, name string, edits []core.CategoryEdit) error
	DeleteCard(ctx context.Context, name string) error
	RecordPurchase(ctx context.Context, card, category string, amount decimal.Decimal, paid bool) (core.Purchase, error)
	UpdatePurchase(ctx context.Context, id string, amount decimal.Decimal, paid bool) error
	DeletePurchase(ctx context.Context, id string) error
	ComputeReport(ctx context.Context, f core.Filter) (core.Report, error)
	MarkAllPaid(ctx context.Context, f core.Filter) (int, error)
	Ready(ctx context.Context) error
}

type Server struct {
	http.Server
	svc          CashbackService
	logger       *log.Logger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Options tunes the server. Zero values use defaults.
type Options struct {
	// WritesPerMinute caps mutating requests per client IP; negative disables.
	WritesPerMinute int
	RequestTimeout  time.Duration
}

const (
	defaultWritesPerMinute = 60
	defaultRequestTimeout  = 15 * time.Second
)

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc CashbackService, logger *log.Logger, opts Options) *Server {
	if opts.WritesPerMinute == 0 {
		opts.WritesPerMinute = defaultWritesPerMinute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	s := &Server{
		svc:         svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(opts.WritesPerMinute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/catalog", s.handleGetCatalog)
	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("PATCH /api/cards/{name}", s.handleMutateCard)
	mux.HandleFunc("DELETE /api/cards/{name}", s.handleDeleteCard)

	mux.HandleFunc("GET /api/purchases", s.handleListPurchases)
	mux.HandleFunc("POST /api/purchases", s.handleRecordPurchase)
	mux.HandleFunc("POST /api/purchases/mark-paid", s.handleMarkAllPaid)
	mux.HandleFunc("PATCH /api/purchases/{id}", s.handleUpdatePurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", s.handleDeletePurchase)

	mux.HandleFunc("GET /api/report", s.handleReport)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(requestIDFromHeader)(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"error":"request timed out"}`)
	handler = s.withTracing(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withTracing assigns a request id, applies security headers and write
// rate limiting, and logs request completion.
func (s *Server) withTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
			r.Header.Set(RequestIDHeader, requestID)
		}
		w.Header().Set(RequestIDHeader, requestID)
		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			rw.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		events := log.NewStructuredLogger(s.logger.With(log.FieldRequestID, requestID))
		events.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func requestIDFromHeader(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

func generateRequestID() string {
	return "req_" + uuid.NewString()
}
