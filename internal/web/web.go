package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lusocal/internal/calendar"
	"lusocal/internal/config"
	appLog "lusocal/internal/log"
	"lusocal/internal/metrics"
)

// Calendar is the part of *calendar.Provider the API reads from.
type Calendar interface {
	Current() *calendar.Snapshot
	Status() calendar.Status
	Refresh(ctx context.Context) error
}

// Server exposes the current calendar snapshot as a read-only JSON and
// iCalendar API.
type Server struct {
	cfg     *config.Config
	cal     Calendar
	mux     *http.ServeMux
	obs     *metrics.Observer
	metrics http.Handler
	now     func() time.Time
}

type Option func(*Server)

// WithMetrics instruments every route with obs and serves h on /metrics.
func WithMetrics(obs *metrics.Observer, h http.Handler) Option {
	return func(s *Server) {
		s.obs = obs
		s.metrics = h
	}
}

// WithClock overrides the clock used for "now"-relative queries.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cfg *config.Config, cal Calendar, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg: cfg,
		cal: cal,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.handle("GET /health", "health", s.handleHealth)
	s.handle("GET /api/status", "status", s.handleStatus)
	s.handle("POST /api/refresh", "refresh", s.handleRefresh)

	s.handle("GET /api/events", "events", s.handleEvents)
	s.handle("GET /api/events/upcoming", "upcoming", s.handleUpcoming)
	s.handle("GET /api/events/featured", "featured", s.handleFeatured)
	s.handle("GET /api/events/month", "month", s.handleMonth)
	s.handle("GET /api/events/type/{type}", "type", s.handleType)
	s.handle("GET /api/events/country/{country}", "country", s.handleCountry)
	s.handle("GET /api/events/tag/{tag}", "tag", s.handleTag)
	s.handle("GET /api/events/{id}", "event", s.handleEvent)
	s.handle("GET /api/search", "search", s.handleSearch)
	s.handle("GET /api/filter", "filter", s.handleFilter)
	s.handle("GET /api/holidays", "holidays", s.handleHolidays)
	s.handle("GET /api/stats", "stats", s.handleStats)
	s.handle("GET /calendar.ics", "ics", s.handleICS)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) handle(pattern, route string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, s.obs.Instrument(route, fn))
}

func (s *Server) basicAuthEnabled() bool {
	a := s.cfg.BasicAuth
	return a != nil && a.Username != "" && a.Password != ""
}

// basicAuthMiddleware protects everything except /health and /metrics.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="lusocal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
