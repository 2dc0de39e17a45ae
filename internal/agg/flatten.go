package agg

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FrameTask is the payload task id of the species-identification drawing
// task in frame workflows.
const FrameTask = "T0"

// payloadTask is one entry in the task-tagged annotation payload. Value is
// kept raw because its shape differs per task type (drawing tasks carry an
// array of shapes, question tasks carry a bare string).
type payloadTask struct {
	Task  string          `json:"task"`
	Value json.RawMessage `json:"value"`
}

// frameShape is one drawn rectangle in a drawing task. Geometry and label
// fields are decoded loosely: exports deliver them as JSON numbers or as
// numeric strings depending on workflow version.
type frameShape struct {
	X         any `json:"x"`
	Y         any `json:"y"`
	Width     any `json:"width"`
	Height    any `json:"height"`
	ToolLabel any `json:"tool_label"`
}

// FlattenFrame converts one frame classification into annotation rows: one
// row per drawn box, or a single EmptyLabel row with a nil box when the
// drawing task carries no shapes. A payload without the drawing task yields
// no rows. Subject metadata fields are left unset.
func FlattenFrame(c Classification) ([]FrameAnnotation, error) {
	var tasks []payloadTask
	if err := json.Unmarshal([]byte(c.Annotations), &tasks); err != nil {
		return nil, fmt.Errorf("parse annotations for classification %d: %w", c.ID, err)
	}

	var rows []FrameAnnotation
	for _, t := range tasks {
		if t.Task != FrameTask {
			continue
		}

		var shapes []frameShape
		if len(t.Value) > 0 {
			if err := json.Unmarshal(t.Value, &shapes); err != nil {
				return nil, fmt.Errorf("parse %s shapes for classification %d: %w", t.Task, c.ID, err)
			}
		}

		if len(shapes) == 0 {
			rows = append(rows, FrameAnnotation{
				ClassificationID: c.ID,
				SubjectID:        c.SubjectID,
				UserName:         c.UserName,
				Label:            EmptyLabel,
			})
			continue
		}

		for _, sh := range shapes {
			rows = append(rows, FrameAnnotation{
				ClassificationID: c.ID,
				SubjectID:        c.SubjectID,
				UserName:         c.UserName,
				Label:            labelString(sh.ToolLabel),
				Box:              shapeBox(sh),
			})
		}
	}

	return rows, nil
}

// FlattenFrames flattens a batch of frame classifications. Malformed
// payloads are skipped rather than aborting the batch; the second return
// value reports how many were dropped.
func FlattenFrames(cls []Classification) ([]FrameAnnotation, int) {
	var rows []FrameAnnotation
	malformed := 0
	for _, c := range cls {
		rs, err := FlattenFrame(c)
		if err != nil {
			malformed++
			continue
		}
		rows = append(rows, rs...)
	}
	return rows, malformed
}

// shapeBox builds the row's box from a drawn shape. Any missing or
// non-numeric geometry field makes the whole box unusable, so the row keeps
// its label but carries no geometry.
func shapeBox(sh frameShape) *Box {
	x, okX := pixelValue(sh.X)
	y, okY := pixelValue(sh.Y)
	w, okW := pixelValue(sh.Width)
	h, okH := pixelValue(sh.Height)
	if !okX || !okY || !okW || !okH {
		return nil
	}
	return &Box{X: x, Y: y, W: w, H: h}
}

// numericValue coerces a JSON number or numeric string to a float64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// pixelValue coerces a JSON number or numeric string to whole pixels,
// truncating toward zero.
func pixelValue(v any) (float64, bool) {
	f, ok := numericValue(v)
	if !ok {
		return 0, false
	}
	return math.Trunc(f), true
}

// labelString stringifies whatever the export delivered as the tool label.
// A missing label becomes the empty string; such rows never pass the
// agreement filter but remain visible in the audit table.
func labelString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
