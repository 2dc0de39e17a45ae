package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/benthic-data/consensus.report/internal/config"
	"github.com/benthic-data/consensus.report/internal/db"
)

func intPtr(v int) *int { return &v }

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	store, err := db.OpenDB(filepath.Join(t.TempDir(), "consensus.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fsys, err := db.MigrationsFS()
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if err := store.MigrateUp(fsys); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}

	return NewServer(store, config.EmptyAggregationConfig()), store
}

func createFrameSubject(t *testing.T, store *db.DB, id int64, frame int) {
	t.Helper()
	err := store.CreateSubject(&db.Subject{
		Subject: agg.Subject{
			ID:          id,
			Type:        agg.SubjectFrame,
			Filename:    "movie_001.mp4",
			MediaURL:    "https://example.org/frames/42.jpg",
			FrameNumber: intPtr(frame),
		},
	})
	if err != nil {
		t.Fatalf("Failed to create frame subject: %v", err)
	}
}

func createClipSubject(t *testing.T, store *db.DB, id int64) {
	t.Helper()
	start := 0.0
	end := 10.0
	err := store.CreateSubject(&db.Subject{
		Subject: agg.Subject{
			ID:            id,
			Type:          agg.SubjectClip,
			Filename:      "movie_001.mp4",
			MediaURL:      "https://example.org/clips/4.mp4",
			ClipStartTime: &start,
			ClipEndTime:   &end,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create clip subject: %v", err)
	}
}

func TestListSites(t *testing.T) {
	server, store := setupTestServer(t)

	for _, name := range []string{"Koster South", "Abel Tasman"} {
		if err := store.CreateSite(&db.Site{Name: name}); err != nil {
			t.Fatalf("Failed to create test site: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var sites []db.Site
	if err := json.NewDecoder(w.Body).Decode(&sites); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("Expected 2 sites, got %d", len(sites))
	}
	if sites[0].Name != "Abel Tasman" {
		t.Errorf("Expected sites ordered by name, got %q first", sites[0].Name)
	}
}

func TestListSites_MethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sites", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "error") {
		t.Error("Expected a JSON error body")
	}
}

func TestListSubjects(t *testing.T) {
	server, store := setupTestServer(t)
	createFrameSubject(t, store, 42, 120)
	createClipSubject(t, store, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var subjects []db.Subject
	if err := json.NewDecoder(w.Body).Decode(&subjects); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(subjects) != 2 {
		t.Errorf("Expected 2 subjects, got %d", len(subjects))
	}
}

func TestListSubjects_TypeFilter(t *testing.T) {
	server, store := setupTestServer(t)
	createFrameSubject(t, store, 42, 120)
	createClipSubject(t, store, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/subjects?type=clip", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	var subjects []db.Subject
	if err := json.NewDecoder(w.Body).Decode(&subjects); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(subjects) != 1 || subjects[0].Type != agg.SubjectClip {
		t.Errorf("Expected 1 clip subject, got %+v", subjects)
	}
}

func TestListSubjects_BadType(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/subjects?type=whale", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	server, store := setupTestServer(t)

	for i, id := range []string{"run-a", "run-b"} {
		summary := &agg.Summary{
			RunID:       id,
			SubjectType: agg.SubjectFrame,
			Params:      agg.DefaultParams(),
			StartedAt:   time.Date(2021, 4, 12, 10, i, 0, 0, time.UTC),
		}
		if err := store.SaveRunSummary(summary); err != nil {
			t.Fatalf("Failed to save run summary: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var runs []agg.Summary
	if err := json.NewDecoder(w.Body).Decode(&runs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	// Most recent first
	if runs[0].RunID != "run-b" {
		t.Errorf("Expected run-b first, got %q", runs[0].RunID)
	}
}

func TestListRuns_Limit(t *testing.T) {
	server, store := setupTestServer(t)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		summary := &agg.Summary{
			RunID:       id,
			SubjectType: agg.SubjectClip,
			Params:      agg.DefaultParams(),
			StartedAt:   time.Date(2021, 4, 12, 10, i, 0, 0, time.UTC),
		}
		if err := store.SaveRunSummary(summary); err != nil {
			t.Fatalf("Failed to save run summary: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	var runs []agg.Summary
	if err := json.NewDecoder(w.Body).Decode(&runs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected 1 run, got %d", len(runs))
	}
}

func TestListRuns_BadLimit(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestStatusCodeColor(t *testing.T) {
	if got := statusCodeColor(200); !strings.Contains(got, "200") {
		t.Errorf("statusCodeColor(200) = %q, should contain the code", got)
	}
	if got := statusCodeColor(404); !strings.Contains(got, colorBoldRed) {
		t.Errorf("statusCodeColor(404) = %q, should be red", got)
	}
}
