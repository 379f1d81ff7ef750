package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"occal/internal/config"
	"occal/internal/editor"
	"occal/internal/model"
	"occal/internal/plan"
)

type nopPersister struct{}

func (nopPersister) Persist(context.Context, []model.Occurrence, string, plan.Serialized) error {
	return nil
}

func newTestServer(t *testing.T, occs ...model.Occurrence) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	ctrl := editor.New(nopPersister{}, editor.WithInitialState(editor.State{Occurrences: occs}))
	return NewServer(cfg, ctrl)
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestServer(t, model.Occurrence{ID: "a", Date: "2025-03-10", StartTime: "14:00", EndTime: "16:00", Status: model.StatusPlanned})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		State struct {
			Occurrences []model.Occurrence `json:"occurrences"`
		} `json:"state"`
		Plan plan.Serialized `json:"plan"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.State.Occurrences) != 1 || resp.State.Occurrences[0].ID != "a" {
		t.Fatalf("unexpected state: %+v", resp.State)
	}
	if resp.Plan.Version != plan.SerializedVersion {
		t.Fatalf("plan version = %q", resp.Plan.Version)
	}
}

func TestOccurrenceCreateAndDelete(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/occurrences",
		`{"date":"2025-03-10","startTime":"09:00","endTime":"10:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}

	st := s.ctrl.State()
	if len(st.Occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(st.Occurrences))
	}
	id := st.Occurrences[0].ID

	rec = doJSON(t, h, http.MethodDelete, "/api/occurrences?id="+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	if len(s.ctrl.State().Occurrences) != 0 {
		t.Fatalf("occurrence not deleted")
	}
}

func TestOccurrenceValidation(t *testing.T) {
	h := newTestServer(t).Handler()

	if rec := doJSON(t, h, http.MethodPost, "/api/occurrences", `{"startTime":"09:00"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date must be rejected, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodDelete, "/api/occurrences", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete without id must be rejected, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPatch, "/api/occurrences", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected method must be rejected, got %d", rec.Code)
	}
}

func TestGenerateWithoutApply(t *testing.T) {
	s := newTestServer(t)
	body := `{
		"version": "occurrence-editor",
		"mode": "weekly",
		"frequency": "every_week",
		"startDate": "2025-03-10",
		"endDate": "2025-03-24",
		"startTime": "09:00",
		"endTime": "10:00",
		"days": {"mon": true}
	}`

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/generate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Additions []model.Occurrence `json:"additions"`
		Truncated bool               `json:"truncated"`
		Applied   bool               `json:"applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Additions) != 3 || resp.Applied || resp.Truncated {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(s.ctrl.State().Occurrences) != 0 {
		t.Fatalf("generate without apply must not mutate the list")
	}
}

func TestGenerateWithApply(t *testing.T) {
	s := newTestServer(t)
	body := `{
		"version": "occurrence-editor",
		"mode": "range",
		"startDate": "2025-03-10",
		"endDate": "2025-03-12",
		"startTime": "09:00",
		"endTime": "10:00"
	}`

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/generate?apply=1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d: %s", rec.Code, rec.Body.String())
	}

	st := s.ctrl.State()
	if len(st.Occurrences) != 3 {
		t.Fatalf("expected 3 applied occurrences, got %d", len(st.Occurrences))
	}
	if st.Plan.Rule.Mode() != plan.ModeRange {
		t.Fatalf("apply must install the plan, got %v", st.Plan.Rule.Mode())
	}
}

func TestPlanRoundTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := `{"mode": "monthly", "monthlyOrdinal": "last", "monthlyWeekday": "fri", "startDate": "2025-01-01"}`
	rec := doJSON(t, h, http.MethodPut, "/api/plan", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put plan = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/plan", "")
	var got plan.Serialized
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mode != "monthly" || got.MonthlyOrdinal != "last" || got.MonthlyWeekday != "fri" {
		t.Fatalf("plan mangled: %+v", got)
	}
}

func TestViewModes(t *testing.T) {
	s := newTestServer(t, model.Occurrence{ID: "a", Date: "2025-03-10", StartTime: "09:00", EndTime: "10:00", Status: model.StatusConfirmed})
	h := s.Handler()

	t.Run("month", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/view?mode=month&pivot=2025-03-15", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("view = %d: %s", rec.Code, rec.Body.String())
		}
		var month struct {
			Days []struct {
				Date   string `json:"date"`
				Status string `json:"status"`
			} `json:"days"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &month); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(month.Days) != 42 {
			t.Fatalf("month grid must have 42 cells, got %d", len(month.Days))
		}
	})

	t.Run("bad pivot", func(t *testing.T) {
		if rec := doJSON(t, h, http.MethodGet, "/api/view?pivot=tomorrow", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("bad pivot must be rejected, got %d", rec.Code)
		}
	})

	t.Run("bad mode", func(t *testing.T) {
		if rec := doJSON(t, h, http.MethodGet, "/api/view?mode=year", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("bad mode must be rejected, got %d", rec.Code)
		}
	})
}

func TestExportFeed(t *testing.T) {
	s := newTestServer(t, model.Occurrence{ID: "occ-1", Date: "2025-03-10", StartTime: "14:00", EndTime: "16:00", Status: model.StatusConfirmed})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/export.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "UID:occ-1") {
		t.Fatalf("feed missing the occurrence:\n%s", rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	ctrl := editor.New(nopPersister{})
	h := NewServer(cfg, ctrl).Handler()

	t.Run("health stays open", func(t *testing.T) {
		if rec := doJSON(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
			t.Fatalf("health = %d", rec.Code)
		}
	})

	t.Run("api requires credentials", func(t *testing.T) {
		if rec := doJSON(t, h, http.MethodGet, "/api/state", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("unauthenticated = %d", rec.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.SetBasicAuth("admin", "secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("authenticated = %d", rec.Code)
		}
	})
}
