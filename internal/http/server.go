package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/omrishi123/tractortrack/internal/advisor"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/metrics"
	"github.com/omrishi123/tractortrack/internal/report"
	"github.com/omrishi123/tractortrack/internal/services"
)

// SessionProvider hands out the session of an account.
type SessionProvider interface {
	Get(ctx context.Context, userID string) (*services.Session, error)
}

// SheetExporter writes an invoice into a spreadsheet and returns its URL.
type SheetExporter interface {
	Export(ctx context.Context, inv report.Invoice) (string, error)
}

// Deps are the collaborators of the API. Sessions is required.
type Deps struct {
	Sessions SessionProvider
	Advisor  advisor.Advisor
	Sheets   SheetExporter
	Metrics  *metrics.Metrics
	Logger   *log.Logger

	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error

	WritesPerMinute int
	Production      bool
}

type Server struct {
	http.Server
	deps   Deps
	logger *log.Logger
	events *log.EventLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.NewIntervalAdvisor()
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:   deps,
		logger: logger,
		events: log.NewEventLogger(logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(s.routes(), "tractortrack"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger, middleware.GetReqID))
	r.Use(s.requestLogging)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(s.deps.Production))
	r.Use(rejectSuspicious)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Use(writeLimiter(s.deps.WritesPerMinute))

		r.Get("/data", s.handleData)
		r.Get("/summary", s.handleSummary)
		r.Get("/dues", s.handleDues)
		r.Get("/status", s.handleStatus)
		r.Patch("/settings", s.handleUpdateSettings)
		r.Post("/advice", s.handleAdvice)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.handleListCustomers)
			r.Post("/", s.handleCreateCustomer)
			r.Route("/{customerID}", func(r chi.Router) {
				r.Put("/", s.handleUpdateCustomer)
				r.Delete("/", s.handleDeleteCustomer)
				r.Put("/notes", s.handleUpdateCustomerNotes)
				r.Get("/ledger", s.handleCustomerLedger)
				r.Get("/outstanding", s.handleOutstanding)
				r.Post("/worklogs", s.handleCreateWorkLog)
				r.Get("/report", s.handleReport)
				r.Get("/report.xlsx", s.handleReportXLSX)
				if s.deps.Sheets != nil {
					r.Post("/report/sheets", s.handleReportSheets)
				}
			})
		})

		r.Route("/worklogs/{workLogID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateWorkLog)
			r.Delete("/", s.handleDeleteWorkLog)
			r.Post("/payments", s.handleAddPayment)
			r.Delete("/payments/{paymentID}", s.handleDeletePayment)
		})

		r.Post("/expenses", s.handleCreateExpense)
		r.Route("/expenses/{expenseID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateExpense)
			r.Delete("/", s.handleDeleteExpense)
		})
	})
	return r
}

// requestLogging logs start and completion of every request.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		s.events.RequestStarted(r.Context(), r, clientIP)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.events.RequestCompleted(r.Context(), r, status, time.Since(start).Milliseconds(), clientIP)
	})
}

// requireUser resolves the X-User-ID header to a session.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			ErrorResponse(http.StatusUnauthorized, "missing "+UserHeader+" header").Write(w)
			return
		}
		sess, err := s.deps.Sessions.Get(r.Context(), uid)
		if err != nil {
			writeError(w, r, log.OpRead, err)
			return
		}
		ctx := withSession(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).WithUser(uid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully stops the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
