// Package http exposes the ledger, reports, advice and session state as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"bilancio/internal/app"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators the server routes to.
type Deps struct {
	Ledger   *services.LedgerService
	Advice   *services.AdviceService
	Settings *services.SettingsService
	Session  *app.Session

	// Registry receives the HTTP collectors and is served on /metrics.
	Registry *prometheus.Registry
	// Ready backs /readyz. Nil means always ready.
	Ready   func(context.Context) error
	Logger  *applog.Logger
	Limiter *ratelimit.Limiter
	// ClientIP resolves the caller address for rate limiting and logs.
	ClientIP *security.ClientIP
	// Now is the reference time for series and export names.
	Now func() time.Time
}

type Server struct {
	http.Server
	deps     Deps
	clientIP *security.ClientIP
	httpMW   middleware.Middleware
}

// NewServer wires the routes and middleware. The returned server has
// timeouts set and is ready for ListenAndServe.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = applog.New(applog.DefaultConfig())
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if d.Session == nil {
		d.Session = app.NewSession()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ClientIP == nil {
		d.ClientIP = security.NewClientIP()
	}
	metrics.RegisterRateLimiter(d.Registry, d.Limiter.ActiveClients, d.Limiter.Rejected)

	s := &Server{
		deps:     d,
		clientIP: d.ClientIP,
		httpMW: middleware.New(middleware.Config{
			Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: d.Registry}),
		}),
	}

	router := mux.NewRouter()
	router.Use(s.instrument)
	s.routes(router)

	var h http.Handler = router
	h = recovery(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(d.Logger, s.clientIP.Extract).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Advice round trips can be slow.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.Handle("/transactions", s.limit(s.handleCreateTransaction)).Methods(http.MethodPost)
	api.Handle("/transactions", s.limit(s.handleClearTransactions)).Methods(http.MethodDelete)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/series", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	api.Handle("/advice", s.limit(s.handleAdvice)).Methods(http.MethodPost)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.Handle("/settings/credential", s.limit(s.handlePutCredential)).Methods(http.MethodPut)
	api.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)
	api.HandleFunc("/state/tab", s.handleSelectTab).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
}

// instrument records request metrics labelled by route template so path
// parameters and unknown paths do not multiply series.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				id = tpl
			}
		}
		std.Handler(id, s.httpMW, next).ServeHTTP(w, r)
	})
}

func (s *Server) limit(h http.HandlerFunc) http.Handler {
	return s.deps.Limiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.clientIP.Extract(r), applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	})(h)
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Panic recovered",
					applog.FieldPath, r.URL.Path,
					applog.FieldError, rec,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
