package agg

import (
	"testing"
)

func frameClassification(id, subject int64, user, payload string) Classification {
	return Classification{
		ID:          id,
		SubjectID:   subject,
		UserName:    user,
		Annotations: payload,
	}
}

func TestFlattenFrame_Boxes(t *testing.T) {
	payload := `[
		{"task":"T1","value":"yes"},
		{"task":"T0","value":[
			{"x":71.9,"y":220.8,"width":34.2,"height":43.9,"tool":0,"tool_label":"Fish"},
			{"x":"120","y":"80.5","width":"40","height":"30","tool":0,"tool_label":"Urchin"}
		]}
	]`
	rows, err := FlattenFrame(frameClassification(1001, 42, "ines", payload))
	if err != nil {
		t.Fatalf("FlattenFrame failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ClassificationID != 1001 || first.SubjectID != 42 || first.UserName != "ines" {
		t.Errorf("row identity mismatch: %+v", first)
	}
	if first.Label != "Fish" {
		t.Errorf("expected label Fish, got %q", first.Label)
	}
	if first.Box == nil {
		t.Fatal("expected a box on the first row")
	}
	// Geometry truncates toward zero to whole pixels.
	if first.Box.X != 71 || first.Box.Y != 220 || first.Box.W != 34 || first.Box.H != 43 {
		t.Errorf("unexpected geometry: %+v", *first.Box)
	}

	second := rows[1]
	if second.Label != "Urchin" {
		t.Errorf("expected label Urchin, got %q", second.Label)
	}
	if second.Box == nil || second.Box.X != 120 || second.Box.Y != 80 {
		t.Errorf("string-numeric geometry not coerced: %+v", second.Box)
	}
}

func TestFlattenFrame_EmptyTask(t *testing.T) {
	payload := `[{"task":"T0","value":[]}]`
	rows, err := FlattenFrame(frameClassification(7, 42, "ines", payload))
	if err != nil {
		t.Fatalf("FlattenFrame failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 sentinel row, got %d", len(rows))
	}
	if rows[0].Label != EmptyLabel {
		t.Errorf("expected label %q, got %q", EmptyLabel, rows[0].Label)
	}
	if rows[0].Box != nil {
		t.Errorf("expected nil box on empty row, got %+v", rows[0].Box)
	}
}

func TestFlattenFrame_NoDrawingTask(t *testing.T) {
	payload := `[{"task":"T1","value":"no"}]`
	rows, err := FlattenFrame(frameClassification(7, 42, "ines", payload))
	if err != nil {
		t.Fatalf("FlattenFrame failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows without the drawing task, got %d", len(rows))
	}
}

func TestFlattenFrame_MalformedPayload(t *testing.T) {
	if _, err := FlattenFrame(frameClassification(7, 42, "ines", "not json")); err == nil {
		t.Error("expected error for unparseable payload")
	}
	if _, err := FlattenFrame(frameClassification(8, 42, "ines", `[{"task":"T0","value":"oops"}]`)); err == nil {
		t.Error("expected error for non-array drawing value")
	}
}

func TestFlattenFrame_MissingGeometry(t *testing.T) {
	payload := `[{"task":"T0","value":[{"x":10,"y":20,"tool_label":"Fish"}]}]`
	rows, err := FlattenFrame(frameClassification(7, 42, "ines", payload))
	if err != nil {
		t.Fatalf("FlattenFrame failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Box != nil {
		t.Errorf("expected nil box when geometry is incomplete, got %+v", rows[0].Box)
	}
	if rows[0].Label != "Fish" {
		t.Errorf("label should survive missing geometry, got %q", rows[0].Label)
	}
}

func TestFlattenFrame_NonStringLabel(t *testing.T) {
	payload := `[{"task":"T0","value":[{"x":1,"y":2,"width":3,"height":4,"tool_label":7}]}]`
	rows, err := FlattenFrame(frameClassification(7, 42, "ines", payload))
	if err != nil {
		t.Fatalf("FlattenFrame failed: %v", err)
	}
	if rows[0].Label != "7" {
		t.Errorf("expected stringified label \"7\", got %q", rows[0].Label)
	}
}

func TestFlattenFrames_SkipsMalformed(t *testing.T) {
	cls := []Classification{
		frameClassification(1, 42, "a", `[{"task":"T0","value":[]}]`),
		frameClassification(2, 42, "b", `garbage`),
		frameClassification(3, 42, "c", `[{"task":"T0","value":[{"x":1,"y":2,"width":3,"height":4,"tool_label":"Fish"}]}]`),
	}
	rows, malformed := FlattenFrames(cls)
	if malformed != 1 {
		t.Errorf("expected 1 malformed classification, got %d", malformed)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows from the parseable classifications, got %d", len(rows))
	}
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FISH (ADULT)", "FISH"},
		{"FISH(JUVENILE)", "FISH"},
		{"FISH", "FISH"},
		{"empty", "empty"},
		{"  GOBY (SMALL)", "GOBY"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanLabel(tt.in); got != tt.want {
			t.Errorf("CleanLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
