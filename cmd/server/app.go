package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/cuentas-claras/auth"
	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/i18n"
	"github.com/diewo77/cuentas-claras/internal/db"
	"github.com/diewo77/cuentas-claras/internal/handlers"
	"github.com/diewo77/cuentas-claras/internal/services"
	"github.com/google/uuid"
	"github.com/juju/loggo"
)

var httpLogger = loggo.GetLogger("cuentasclaras.http")

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	svc      *services.Services
	tokenTTL time.Duration
}

// NewApp creates a new application with all routes configured.
func NewApp(svc *services.Services, tokenTTL time.Duration) *App {
	app := &App{
		mux:      http.NewServeMux(),
		svc:      svc,
		tokenTTL: tokenTTL,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Outermost first: request id, recovery, metrics/logging, auth, language.
	handler := withRequestID(withRecover(a.withLogging(auth.Middleware(a.svc.Env.Clock)(withLanguage(a.mux)))))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := handlers.NewAuthHandler(a.svc.Users, a.svc.Env.Clock, a.tokenTTL)

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", a.svc.Env.Metrics.Handler())
	a.mux.HandleFunc("POST /api/token", ah.Login)
	a.mux.HandleFunc("POST /api/logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// Users
	// ─────────────────────────────────────────────────────────────────────────
	uh := handlers.NewUserHandler(a.svc.Users)

	a.handle("POST /api/users/register", uh.Register)
	a.handle("GET /api/users", uh.List)
	a.handle("GET /api/users/residents", uh.Residents)
	a.handle("GET /api/users/statistics", uh.Statistics)
	a.handle("GET /api/users/me", uh.Me)
	a.handle("PATCH /api/users/me", uh.UpdateMe)
	a.handle("POST /api/users/me/password", uh.ChangePassword)
	a.handle("GET /api/users/{id}", uh.Get)
	a.handle("PATCH /api/users/{id}", uh.Update)
	a.handle("DELETE /api/users/{id}", uh.Delete)

	// ─────────────────────────────────────────────────────────────────────────
	// Common expenses
	// ─────────────────────────────────────────────────────────────────────────
	eh := handlers.NewExpenseHandler(a.svc.Expenses)

	a.handle("GET /api/expenses", eh.List)
	a.handle("POST /api/expenses", eh.Create)
	a.handle("GET /api/expenses/pending", eh.Pending)
	a.handle("GET /api/expenses/paid", eh.Paid)
	a.handle("GET /api/expenses/statistics", eh.Statistics)
	a.handle("GET /api/expenses/{id}", eh.Get)
	a.handle("PUT /api/expenses/{id}", eh.Update)
	a.handle("DELETE /api/expenses/{id}", eh.Delete)
	a.handle("POST /api/expenses/{id}/pay", eh.Pay)

	// ─────────────────────────────────────────────────────────────────────────
	// Fines
	// ─────────────────────────────────────────────────────────────────────────
	fh := handlers.NewFineHandler(a.svc.Fines)

	a.handle("GET /api/fines", fh.List)
	a.handle("POST /api/fines", fh.Create)
	a.handle("GET /api/fines/statistics", fh.Statistics)
	a.handle("GET /api/fines/{id}", fh.Get)
	a.handle("PUT /api/fines/{id}", fh.Update)
	a.handle("DELETE /api/fines/{id}", fh.Delete)
	a.handle("POST /api/fines/{id}/pay", fh.Pay)
	a.handle("POST /api/fines/{id}/void", fh.Void)

	// ─────────────────────────────────────────────────────────────────────────
	// Notifications
	// ─────────────────────────────────────────────────────────────────────────
	nh := handlers.NewNotificationHandler(a.svc.Notifications)

	a.handle("GET /api/notifications", nh.List)
	a.handle("GET /api/notifications/unread-count", nh.UnreadCount)
	a.handle("POST /api/notifications/read-all", nh.MarkAllRead)
	a.handle("GET /api/notifications/{id}", nh.Get)
	a.handle("DELETE /api/notifications/{id}", nh.Delete)
	a.handle("POST /api/notifications/{id}/read", nh.MarkRead)
}

// handle registers an authenticated route; the handler receives the
// caller resolved from the store.
func (a *App) handle(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, handlers.RequireCaller(a.svc.Users)(h))
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also checks the database.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(a.svc.Env.DB.WithContext(r.Context())); err != nil {
		httpLogger.Warningf("health check failed: %v", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs every request and feeds the HTTP metrics.
func (a *App) withLogging(next http.Handler) http.Handler {
	m := a.svc.Env.Metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
		httpLogger.Infof("%s %s %d %s [%s]", r.Method, r.URL.Path, rec.status, elapsed, w.Header().Get("X-Request-ID"))
	})
}

// withRequestID tags each request with an id, reusing the client's one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// withRecover turns a panic into a 500 response.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger.Criticalf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withLanguage negotiates the response language from ?lang= or
// Accept-Language.
func withLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
		}
		w.Header().Set("Content-Language", lang)
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
