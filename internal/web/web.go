// Package web serves task status, catalog rows and calendars over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"skyevents/internal/catalog"
	"skyevents/internal/config"
	"skyevents/internal/ics"
	"skyevents/internal/locale"
	appLog "skyevents/internal/log"
	"skyevents/internal/model"
	"skyevents/internal/schedule"
	"skyevents/internal/status"
	"skyevents/internal/tz"
)

// snapshotTTL bounds how long a cached /api/status response is served when
// no refresh job is running.
const snapshotTTL = 30 * time.Second

// Server provides the HTTP API for task statuses and the event catalog.
type Server struct {
	cfg        *config.Config
	conv       tz.Converter
	tasks      []model.Task
	classifier *status.Classifier
	clock      schedule.Clock
	mux        *http.ServeMux

	snapMu sync.RWMutex
	snap   *snapshot

	cronMu sync.Mutex
	cron   *cron.Cron
}

// snapshot holds a computed status list and the instant it was computed at.
type snapshot struct {
	resp      statusResponse
	updatedAt time.Time
}

// taskStatus is the JSON view of one task's status.
type taskStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	model.Status
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	Now           time.Time    `json:"now"`
	DisplayOffset string       `json:"display_utc_offset"`
	Language      string       `json:"language"`
	Tasks         []taskStatus `json:"tasks"`
}

// catalogResponse is the JSON response shape for /api/catalog.
type catalogResponse struct {
	Catalog string        `json:"catalog"`
	Month   string        `json:"month"`
	Rows    []catalog.Row `json:"rows"`
}

// NewServer constructs a Server over the tasks configured in cfg. A nil
// clock uses the system time.
func NewServer(cfg *config.Config, clock schedule.Clock) *Server {
	if clock == nil {
		clock = schedule.RealClock{}
	}
	conv := cfg.Converter()
	s := &Server{
		cfg:        cfg,
		conv:       conv,
		tasks:      cfg.BuildTasks(),
		classifier: status.New(conv, locale.New(cfg.Language)),
		clock:      clock,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="skyevents", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen with the refresh job running,
// and shuts down gracefully when ctx is cancelled.
func StartServer(ctx context.Context, cfg *config.Config) error {
	s := NewServer(cfg, nil)
	if err := s.StartRefresh(); err != nil {
		return err
	}
	defer s.StopRefresh()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "tasks", len(s.tasks))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

// StartRefresh computes a first snapshot and schedules Refresh on
// cfg.RefreshCron.
func (s *Server) StartRefresh() error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.RefreshCron, s.Refresh); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", s.cfg.RefreshCron, err)
	}
	s.Refresh()
	c.Start()
	s.cron = c
	appLog.Info("status refresh scheduled", "spec", s.cfg.RefreshCron)
	return nil
}

// StopRefresh stops the refresh job and waits for a running refresh.
func (s *Server) StopRefresh() {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Refresh recomputes the cached status snapshot and logs every task whose
// state changed since the previous one.
func (s *Server) Refresh() {
	now := s.clock.Now()
	resp := s.compute(s.classifier, now)

	s.snapMu.Lock()
	prev := s.snap
	s.snap = &snapshot{resp: resp, updatedAt: now}
	s.snapMu.Unlock()

	if prev == nil {
		return
	}
	for i, ts := range resp.Tasks {
		if i < len(prev.resp.Tasks) && prev.resp.Tasks[i].State != ts.State {
			appLog.Info("task state changed", "task", ts.ID, "from", prev.resp.Tasks[i].State, "to", ts.State)
		}
	}
}

func (s *Server) compute(c *status.Classifier, now time.Time) statusResponse {
	statuses := c.ResolveAll(s.tasks, now)
	out := make([]taskStatus, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, taskStatus{ID: s.tasks[i].ID, Name: s.tasks[i].Name, Status: st})
	}
	return statusResponse{
		Now:           s.conv.ToDisplay(now),
		DisplayOffset: s.cfg.DisplayOffset,
		Language:      c.Texts.Lang(),
		Tasks:         out,
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/status/{id}", s.handleTaskStatus)
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleStatus returns the status of every configured task.
//
// GET /api/status?now=RFC3339&lang=en&visible=1
//   - now:     evaluate at this instant instead of the current time
//   - lang:    message language
//   - visible: drop tasks that are still in the future state
//
// Requests without now or lang are served from the snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.statusFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("visible") == "1" {
		kept := make([]taskStatus, 0, len(resp.Tasks))
		for _, ts := range resp.Tasks {
			if status.Visible(ts.Status) {
				kept = append(kept, ts)
			}
		}
		resp.Tasks = kept
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTaskStatus returns the status of one task by ID.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resp, err := s.statusFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, ts := range resp.Tasks {
		if ts.ID == id {
			writeJSON(w, http.StatusOK, ts)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown task: "+id)
}

func (s *Server) statusFor(r *http.Request) (statusResponse, error) {
	q := r.URL.Query()
	nowParam, lang := q.Get("now"), q.Get("lang")

	if nowParam == "" && lang == "" {
		return s.cachedStatus(), nil
	}

	now := s.clock.Now()
	if nowParam != "" {
		t, err := time.Parse(time.RFC3339, nowParam)
		if err != nil {
			return statusResponse{}, fmt.Errorf("invalid now %q: expected RFC 3339", nowParam)
		}
		now = t
	}
	c := s.classifier
	if lang != "" {
		c = status.New(s.conv, locale.New(lang))
	}
	return s.compute(c, now), nil
}

// cachedStatus returns the snapshot, recomputing it when older than
// snapshotTTL.
func (s *Server) cachedStatus() statusResponse {
	now := s.clock.Now()

	s.snapMu.RLock()
	snap := s.snap
	s.snapMu.RUnlock()
	if snap != nil && now.Sub(snap.updatedAt) < snapshotTTL && !now.Before(snap.updatedAt) {
		return snap.resp
	}

	s.Refresh()
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap.resp
}

// handleCatalog lists a catalog's slots for one month.
//
// GET /api/catalog?month=2026-10&name=dawn-redstone
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = catalog.DawnRedstoneName
	}
	cat, ok := catalog.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown catalog: "+name)
		return
	}

	year, month, err := s.parseMonth(q.Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Catalog: cat.Name(),
		Month:   fmt.Sprintf("%04d-%02d", year, int(month)),
		Rows:    cat.Month(year, month),
	})
}

// handleCalendar exports every configured task's occurrences in one month
// as iCalendar.
//
// GET /calendar.ics?month=2026-10
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, s.conv.Source)
	to := from.AddDate(0, 1, 0)
	resolver := schedule.NewResolver(s.conv)

	var events []ics.Event
	for _, task := range s.tasks {
		evs, err := ics.TaskEvents(resolver, task, from, to)
		if err != nil {
			appLog.Error("calendar: skipping task", err, "task", task.ID)
			continue
		}
		events = append(events, evs...)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := ics.Write(w, "skyevents", events, s.clock.Now()); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

// parseMonth parses "YYYY-MM"; empty means the current month in the
// source timezone.
func (s *Server) parseMonth(v string) (int, time.Month, error) {
	if v == "" {
		now := s.conv.ToSource(s.clock.Now())
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", v)
	}
	return t.Year(), t.Month(), nil
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
