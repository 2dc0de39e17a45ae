package db

import (
	"testing"
	"time"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/google/go-cmp/cmp"
)

func TestSaveAndGetRunSummary(t *testing.T) {
	db := setupTestDB(t)

	s := &agg.Summary{
		RunID:             "run-0001",
		SubjectType:       agg.SubjectFrame,
		Params:            agg.DefaultParams(),
		StartedAt:         time.Date(2021, 4, 12, 10, 0, 0, 0, time.UTC),
		Classifications:   120,
		Malformed:         2,
		MissingSubjects:   3,
		MissingSubjectIDs: []int64{91, 99},
		TypeMismatched:    1,
		SubjectsSeen:      40,
		RowsFlattened:     300,
		RowsRetained:      250,
		RowsOut:           38,
	}
	if err := db.SaveRunSummary(s); err != nil {
		t.Fatalf("SaveRunSummary failed: %v", err)
	}

	got, err := db.GetRunSummary("run-0001")
	if err != nil {
		t.Fatalf("GetRunSummary failed: %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("run summary did not round-trip (-want +got):\n%s", diff)
	}
}

func TestGetRunSummary_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetRunSummary("nope"); err == nil {
		t.Error("expected error for unknown run id")
	}
}

func TestGetRunSummaries_NewestFirst(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2021, 4, 12, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		s := &agg.Summary{
			RunID:       id,
			SubjectType: agg.SubjectClip,
			Params:      agg.DefaultParams(),
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.SaveRunSummary(s); err != nil {
			t.Fatalf("SaveRunSummary(%s) failed: %v", id, err)
		}
	}

	summaries, err := db.GetRunSummaries(2)
	if err != nil {
		t.Fatalf("GetRunSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].RunID != "run-c" || summaries[1].RunID != "run-b" {
		t.Errorf("expected newest first, got %s then %s", summaries[0].RunID, summaries[1].RunID)
	}
}

func TestSaveRunSummary_DuplicateRunID(t *testing.T) {
	db := setupTestDB(t)

	s := &agg.Summary{
		RunID:       "run-0001",
		SubjectType: agg.SubjectClip,
		Params:      agg.DefaultParams(),
		StartedAt:   time.Now().UTC(),
	}
	if err := db.SaveRunSummary(s); err != nil {
		t.Fatalf("SaveRunSummary failed: %v", err)
	}
	if err := db.SaveRunSummary(s); err == nil {
		t.Error("expected error saving the same run id twice")
	}
}
