package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"calview/internal/calendar"
	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/model"
)

// EventSource supplies the current event snapshot.
type EventSource interface {
	Snapshot() []model.CalendarEvent
}

// Options carries optional Server collaborators.
type Options struct {
	// Clock is the "current instant" provider. nil means time.Now.
	Clock calendar.Clock
	// PreviewPath is the PNG served at /preview.png.
	PreviewPath string
}

// Server exposes the layout engine over HTTP: JSON grids and timelines, a
// per-session navigator and a server-rendered calendar page.
type Server struct {
	cfg      *config.Config
	events   EventSource
	engine   calendar.Engine
	loc      *time.Location
	clock    calendar.Clock
	preview  string
	sessions *sessionStore
	router   *mux.Router
}

// EngineFromConfig builds the layout engine settings from cfg.
func EngineFromConfig(cfg *config.Config, loc *time.Location) calendar.Engine {
	return calendar.Engine{
		Location:             loc,
		WeekStart:            cfg.FirstWeekday(),
		DefaultDuration:      cfg.DefaultDuration(),
		MinSlotHeightPercent: cfg.MinSlotHeightPercent(),
		Lanes:                cfg.Timeline.Lanes,
	}
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, events EventSource, opts Options) *Server {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", cfg.Timezone)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Server{
		cfg:      cfg,
		events:   events,
		engine:   EngineFromConfig(cfg, loc),
		loc:      loc,
		clock:    clock,
		preview:  opts.PreviewPath,
		sessions: newSessionStore(clock, loc),
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the router wrapped with recovery, access logging and,
// when configured, HTTP Basic Auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = handlers.CustomLoggingHandler(io.Discard, h, logRequest)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
}

// Start serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an already bound listener, so callers can reach the
// server (e.g. for preview capture) as soon as Serve is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/month", s.handleMonth).Methods(http.MethodGet)
	r.HandleFunc("/api/week", s.handleWeek).Methods(http.MethodGet)
	r.HandleFunc("/api/day", s.handleDay).Methods(http.MethodGet)
	r.HandleFunc("/api/navigator", s.handleNavigatorState).Methods(http.MethodGet)
	r.HandleFunc("/api/navigator/{action}", s.handleNavigatorAction).Methods(http.MethodPost)
	r.HandleFunc("/calendar", s.handleCalendarPage).Methods(http.MethodGet)
	r.HandleFunc("/preview.png", s.handlePreview).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/calendar", http.StatusFound)).Methods(http.MethodGet)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with a
// non-empty username and password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	appLog.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
	)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	appLog.Error("http handler panic", errors.New("panic recovered"), "detail", v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMonth returns the 42-cell grid.
//
// GET /api/month?year=2024&month=3 (defaults: the current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	today := s.engine.Today(s.clock())
	q := r.URL.Query()

	year, err := parseIntDefault(q.Get("year"), today.Year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := parseIntDefault(q.Get("month"), int(today.Month))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	resp := s.buildMonth(year, time.Month(month), s.events.Snapshot(), viewContext{today: today, loc: s.loc})
	writeJSON(w, http.StatusOK, resp)
}

// handleWeek returns the week grid and per-day timelines.
//
// GET /api/week?date=2024-03-13 (default: today)
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	today := s.engine.Today(s.clock())
	anchor, err := parseDateDefault(r.URL.Query().Get("date"), today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	writeJSON(w, http.StatusOK, s.buildWeek(anchor, s.events.Snapshot(), viewContext{today: today, loc: s.loc}))
}

// handleDay returns a single day's timeline.
//
// GET /api/day?date=2024-03-13 (default: today)
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	today := s.engine.Today(s.clock())
	day, err := parseDateDefault(r.URL.Query().Get("date"), today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	writeJSON(w, http.StatusOK, s.buildDay(day, s.events.Snapshot(), viewContext{today: today, loc: s.loc}))
}

func (s *Server) handleNavigatorState(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	state := sess.nav.State()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, s.navigatorView(state))
}

// handleNavigatorAction applies one navigator transition.
//
// POST /api/navigator/{next|previous|today|select|view}
//   - select: date=YYYY-MM-DD
//   - view:   view=month|week|day
func (s *Server) handleNavigatorAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	state, status, msg := applyAction(sess.nav, action, r.Form.Get("date"), r.Form.Get("view"))
	sess.mu.Unlock()

	if status != http.StatusOK {
		writeError(w, status, msg)
		return
	}
	appLog.Debug("navigator transition", "action", action, "view", state.View, "anchor", state.Anchor)
	writeJSON(w, http.StatusOK, s.navigatorView(state))
}

func applyAction(nav *calendar.Navigator, action, date, view string) (calendar.NavigatorState, int, string) {
	switch action {
	case "next":
		return nav.Next(), http.StatusOK, ""
	case "previous":
		return nav.Previous(), http.StatusOK, ""
	case "today":
		return nav.Today(), http.StatusOK, ""
	case "select":
		d, err := calendar.ParseDate(date)
		if err != nil {
			return calendar.NavigatorState{}, http.StatusBadRequest, "invalid date"
		}
		return nav.SelectDate(d), http.StatusOK, ""
	case "view":
		v, err := calendar.ParseView(view)
		if err != nil {
			return calendar.NavigatorState{}, http.StatusBadRequest, "invalid view"
		}
		return nav.SetView(v), http.StatusOK, ""
	default:
		return calendar.NavigatorState{}, http.StatusNotFound, "unknown navigator action"
	}
}

func (s *Server) navigatorView(state calendar.NavigatorState) navigatorResponse {
	vc := viewContext{today: s.engine.Today(s.clock()), selected: state.Selected, loc: s.loc}
	return s.buildNavigator(state, s.events.Snapshot(), vc)
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.preview == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.preview)
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func parseDateDefault(s string, def calendar.Date) (calendar.Date, error) {
	if s == "" {
		return def, nil
	}
	return calendar.ParseDate(s)
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
