// Package web provides the HTTP API over the occurrence editor: state and
// plan access, generation, calendar views, the schedule preview, and the ICS
// feed.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"occal/internal/config"
	"occal/internal/datemath"
	"occal/internal/editor"
	"occal/internal/export"
	"occal/internal/locale"
	appLog "occal/internal/log"
	"occal/internal/model"
	"occal/internal/plan"
	"occal/internal/recur"
	"occal/internal/view"
)

// Server provides HTTP APIs over a single occurrence editor.
type Server struct {
	cfg       *config.Config
	ctrl      *editor.Controller
	projector view.Projector
	mux       *http.ServeMux
}

// NewServer constructs a new Server around an editor controller.
func NewServer(cfg *config.Config, ctrl *editor.Controller) *Server {
	loc := locale.Resolve(cfg.Locale)
	s := &Server{
		cfg:       cfg,
		ctrl:      ctrl,
		projector: view.Projector{Locale: loc},
		mux:       http.NewServeMux(),
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
	// Empty username or password counts as disabled.
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
		// /health stays unauthenticated.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="occal", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/preview", s.handlePreview)
	s.mux.HandleFunc("/api/plan", s.handlePlan)
	s.mux.HandleFunc("/api/view", s.handleView)
	s.mux.HandleFunc("/export.ics", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// stateResponse is the JSON response shape for /api/state. The plan rides
// along in its storage shape since editor.State keeps it out of JSON.
type stateResponse struct {
	State editor.State    `json:"state"`
	Plan  plan.Serialized `json:"plan"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st := s.ctrl.State()
	writeJSON(w, http.StatusOK, stateResponse{State: st, Plan: plan.Serialize(st.Plan)})
}

// handleOccurrences mutates the occurrence list.
//
//	POST   /api/occurrences          body: editor form JSON; empty id creates
//	DELETE /api/occurrences?id=X     delete one occurrence
//	DELETE /api/occurrences?all=1    delete every occurrence
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var form editor.Form
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid occurrence payload")
			return
		}
		if form.Date == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		s.settle(ctx, w, s.ctrl.CreateOrUpdate(ctx, form))

	case http.MethodDelete:
		q := r.URL.Query()
		if q.Get("all") != "" {
			s.settle(ctx, w, s.ctrl.DeleteAll(ctx))
			return
		}
		id := q.Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id or all=1 is required")
			return
		}
		s.settle(ctx, w, s.ctrl.Delete(ctx, id))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// settle waits for the persist outcome and reports the resulting state. A
// rejected persist has already been rolled back by the controller.
func (s *Server) settle(ctx context.Context, w http.ResponseWriter, p *editor.Pending) {
	if err := p.Wait(ctx); err != nil {
		appLog.Error("api mutation rejected by storage", err)
		writeError(w, http.StatusInternalServerError, "persist failed; change rolled back")
		return
	}
	st := s.ctrl.State()
	writeJSON(w, http.StatusOK, stateResponse{State: st, Plan: plan.Serialize(st.Plan)})
}

// handleGenerate expands a plan into occurrences.
//
//	POST /api/generate?apply=1   body: serialized plan JSON
//
// Without apply the additions are returned for inspection only; with apply
// they are appended through the editor (and persisted).
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	var serialized plan.Serialized
	if err := json.NewDecoder(r.Body).Decode(&serialized); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan payload")
		return
	}
	p := plan.FromSerialized(serialized)
	result := recur.Generate(p, model.NewIDGenerator())

	apply := r.URL.Query().Get("apply") != ""
	appLog.Info("api generate",
		"mode", string(p.Rule.Mode()),
		"additions", len(result.Additions),
		"truncated", result.Truncated,
		"apply", apply,
	)

	if apply {
		s.ctrl.SetPlan(p)
		if err := s.ctrl.BulkAdd(ctx, result.Additions).Wait(ctx); err != nil {
			appLog.Error("api generate: bulk add rejected", err)
			writeError(w, http.StatusInternalServerError, "persist failed; change rolled back")
			return
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Additions any  `json:"additions"`
		Truncated bool `json:"truncated"`
		Applied   bool `json:"applied"`
	}{
		Additions: result.Additions,
		Truncated: result.Truncated,
		Applied:   apply,
	})
}

// handlePreview reveals and returns the schedule preview line.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	text := s.ctrl.ShowPreview()
	writeJSON(w, http.StatusOK, struct {
		Preview string `json:"preview"`
	}{Preview: text})
}

// handlePlan reads or replaces the generator plan.
//
//	GET /api/plan        current plan in storage shape
//	PUT /api/plan        body: serialized plan JSON
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, plan.Serialize(s.ctrl.State().Plan))
	case http.MethodPut:
		var serialized plan.Serialized
		if err := json.NewDecoder(r.Body).Decode(&serialized); err != nil {
			writeError(w, http.StatusBadRequest, "invalid plan payload")
			return
		}
		s.ctrl.SetPlan(plan.FromSerialized(serialized))
		writeJSON(w, http.StatusOK, plan.Serialize(s.ctrl.State().Plan))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleView projects the occurrence list onto a calendar grid.
//
//	GET /api/view?mode=month|quarter|week&pivot=YYYY-MM-DD
//
// pivot defaults to today; mode defaults to month.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	pivot := time.Now()
	if raw := q.Get("pivot"); raw != "" {
		parsed, ok := datemath.ParseISODate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "pivot must be YYYY-MM-DD")
			return
		}
		pivot = parsed
	}

	st := s.ctrl.State()
	switch q.Get("mode") {
	case "", "month":
		writeJSON(w, http.StatusOK, s.projector.MonthOverview(st.Occurrences, pivot, st.SelectedID))
	case "quarter":
		writeJSON(w, http.StatusOK, s.projector.QuarterOverview(st.Occurrences, pivot, st.SelectedID))
	case "week":
		writeJSON(w, http.StatusOK, s.projector.WeekOverview(st.Occurrences, pivot, st.SelectedID))
	default:
		writeError(w, http.StatusBadRequest, "mode must be month, quarter or week")
	}
}

// handleExport serves the occurrence list as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := s.ctrl.State()
	p := st.Plan
	feed, err := export.Calendar(st.Occurrences, &p, s.cfg.EventName)
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FeedFilename(s.cfg.EventName)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
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
