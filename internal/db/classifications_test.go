package db

import (
	"testing"

	"github.com/benthic-data/consensus.report/internal/agg"
)

func testClassification(id int64, workflow int64, version float64) *agg.Classification {
	return &agg.Classification{
		ID:              id,
		UserName:        "ines",
		WorkflowID:      workflow,
		WorkflowVersion: version,
		SubjectID:       42,
		CreatedAt:       "2021-04-12 10:00:00 UTC",
		Annotations:     `[{"task":"T0","value":[]}]`,
	}
}

func TestInsertClassification(t *testing.T) {
	db := setupTestDB(t)

	inserted, err := db.InsertClassification(testClassification(1001, 555, 10.5))
	if err != nil {
		t.Fatalf("InsertClassification failed: %v", err)
	}
	if !inserted {
		t.Error("expected first insert to report a new row")
	}

	// Re-ingesting the same export must be a no-op.
	inserted, err = db.InsertClassification(testClassification(1001, 555, 10.5))
	if err != nil {
		t.Fatalf("second InsertClassification failed: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to be ignored")
	}

	count, err := db.CountClassifications()
	if err != nil {
		t.Fatalf("CountClassifications failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 classification, got %d", count)
	}
}

func TestClassifications_WorkflowFilter(t *testing.T) {
	db := setupTestDB(t)

	fixtures := []*agg.Classification{
		testClassification(1, 555, 10.0),
		testClassification(2, 555, 12.5),
		testClassification(3, 555, 9.0),  // below min version
		testClassification(4, 777, 50.0), // other workflow
	}
	for _, c := range fixtures {
		if _, err := db.InsertClassification(c); err != nil {
			t.Fatalf("InsertClassification(%d) failed: %v", c.ID, err)
		}
	}

	cls, err := db.Classifications(555, 10.0)
	if err != nil {
		t.Fatalf("Classifications failed: %v", err)
	}
	if len(cls) != 2 {
		t.Fatalf("expected 2 classifications, got %d", len(cls))
	}
	if cls[0].ID != 1 || cls[1].ID != 2 {
		t.Errorf("expected ids 1 and 2 in order, got %d and %d", cls[0].ID, cls[1].ID)
	}
	if cls[0].Annotations == "" {
		t.Error("expected annotations payload to round-trip")
	}
}

func TestClassifications_Empty(t *testing.T) {
	db := setupTestDB(t)

	cls, err := db.Classifications(555, 0)
	if err != nil {
		t.Fatalf("Classifications failed: %v", err)
	}
	if len(cls) != 0 {
		t.Errorf("expected no classifications, got %d", len(cls))
	}
}
