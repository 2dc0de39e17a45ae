package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benthic-data/consensus.report/internal/db"
)

func setupTestStore(t *testing.T) *db.DB {
	t.Helper()

	store, err := db.OpenDB(filepath.Join(t.TempDir(), "consensus.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fsys, err := db.MigrationsFS()
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if err := store.MigrateUp(fsys); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	return store
}

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}
	return path
}

const sampleExport = `classification_id,user_name,workflow_id,workflow_version,created_at,annotations,subject_ids
1001,ines,555,45.01,2021-04-12 10:00:00 UTC,"[{""task"":""T0"",""value"":[]}]",[42]
1002,rangi,555,44.00,2021-04-12 10:05:00 UTC,"[]",[42]
1003,mika,777,45.01,2021-04-12 10:06:00 UTC,"[]",[43]
`

func TestImportExportCSV(t *testing.T) {
	store := setupTestStore(t)
	path := writeExport(t, sampleExport)

	res, err := ImportExportCSV(store, path, Options{WorkflowID: 555, MinVersion: 45})
	if err != nil {
		t.Fatalf("ImportExportCSV failed: %v", err)
	}
	if res.Read != 3 {
		t.Errorf("expected 3 rows read, got %d", res.Read)
	}
	if res.Inserted != 1 {
		t.Errorf("expected 1 row inserted, got %d", res.Inserted)
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 rows skipped, got %d", res.Skipped)
	}

	cls, err := store.Classifications(555, 45)
	if err != nil {
		t.Fatalf("Classifications failed: %v", err)
	}
	if len(cls) != 1 {
		t.Fatalf("expected 1 stored classification, got %d", len(cls))
	}
	c := cls[0]
	if c.ID != 1001 || c.UserName != "ines" || c.SubjectID != 42 {
		t.Errorf("unexpected classification: %+v", c)
	}
	if c.Annotations != `[{"task":"T0","value":[]}]` {
		t.Errorf("annotations did not round-trip: %q", c.Annotations)
	}
}

func TestImportExportCSV_Rerun(t *testing.T) {
	store := setupTestStore(t)
	path := writeExport(t, sampleExport)

	if _, err := ImportExportCSV(store, path, Options{WorkflowID: 555, MinVersion: 45}); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	res, err := ImportExportCSV(store, path, Options{WorkflowID: 555, MinVersion: 45})
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("expected no new rows on re-run, got %d", res.Inserted)
	}
	if res.Duplicates != 1 {
		t.Errorf("expected 1 duplicate on re-run, got %d", res.Duplicates)
	}
}

func TestImportExportCSV_MissingColumn(t *testing.T) {
	store := setupTestStore(t)
	path := writeExport(t, "classification_id,user_name\n1,ines\n")

	if _, err := ImportExportCSV(store, path, Options{WorkflowID: 555}); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestImportExportCSV_NoWorkflow(t *testing.T) {
	store := setupTestStore(t)
	path := writeExport(t, sampleExport)

	if _, err := ImportExportCSV(store, path, Options{}); err == nil {
		t.Error("expected error without a workflow id")
	}
}

func TestParseSubjectID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"[42]", 42},
		{`["42"]`, 42},
		{"[42,43]", 42},
	}
	for _, tt := range tests {
		got, err := parseSubjectID(tt.in)
		if err != nil {
			t.Errorf("parseSubjectID(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSubjectID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := parseSubjectID(""); err == nil {
		t.Error("expected error for empty subject id")
	}
}
