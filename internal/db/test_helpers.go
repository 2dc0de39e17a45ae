package db

import (
	"path/filepath"
	"testing"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/benthic-data/consensus.report/internal/monitoring"
)

// Helper functions for creating pointer values
func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

func int64Ptr(i int64) *int64 {
	return &i
}

// setupTestDB opens a fresh database in a per-test temp dir and brings it to
// the latest schema through the real migration path.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Keep migration chatter out of test output.
	monitoring.SetLogger(nil)

	db, err := OpenDB(filepath.Join(t.TempDir(), "consensus.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys, err := MigrationsFS()
	if err != nil {
		t.Fatalf("failed to load embedded migrations: %v", err)
	}
	if err := db.MigrateUp(fsys); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	return db
}

// createTestSubject inserts a clip or frame subject with sensible defaults.
func createTestSubject(t *testing.T, db *DB, id int64, subjectType agg.SubjectType) *Subject {
	t.Helper()

	s := &Subject{
		Subject: agg.Subject{
			ID:       id,
			Type:     subjectType,
			Filename: "movie_001.mp4",
			MediaURL: "https://media.example.org/clip.mp4",
		},
	}
	switch subjectType {
	case agg.SubjectClip:
		s.ClipStartTime = floatPtr(30)
		s.ClipEndTime = floatPtr(40)
	case agg.SubjectFrame:
		s.FrameNumber = intPtr(120)
	}

	if err := db.CreateSubject(s); err != nil {
		t.Fatalf("CreateSubject failed: %v", err)
	}
	return s
}
