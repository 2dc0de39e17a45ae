package agg

import (
	"errors"
	"strings"
	"time"
)

// EmptyLabel is the sentinel label recorded when a rater marked a frame as
// containing no objects.
const EmptyLabel = "empty"

// SubjectType distinguishes the two kinds of media unit shown to raters.
type SubjectType string

const (
	SubjectClip  SubjectType = "clip"
	SubjectFrame SubjectType = "frame"
)

// ErrSubjectNotFound is returned by a SubjectCatalog when a subject id has no
// metadata row. Classifications referencing such subjects are excluded from
// aggregation and accounted for in the run summary.
var ErrSubjectNotFound = errors.New("subject not found")

// Classification is one raw rater submission as delivered by the platform
// export: who classified which subject under which workflow, plus the nested
// annotation payload as raw JSON. Immutable once ingested.
type Classification struct {
	ID              int64   `json:"classification_id"`
	UserName        string  `json:"user_name"`
	WorkflowID      int64   `json:"workflow_id"`
	WorkflowVersion float64 `json:"workflow_version"`
	SubjectID       int64   `json:"subject_id"`
	CreatedAt       string  `json:"created_at,omitempty"`
	Annotations     string  `json:"annotations"`
}

// Subject is the metadata for one media unit (a clip or an extracted frame).
type Subject struct {
	ID            int64       `json:"subject_id"`
	Type          SubjectType `json:"subject_type"`
	Filename      string      `json:"filename"`
	MediaURL      string      `json:"https_location"`
	ClipStartTime *float64    `json:"clip_start_time,omitempty"`
	ClipEndTime   *float64    `json:"clip_end_time,omitempty"`
	FrameNumber   *int        `json:"frame_number,omitempty"`
	MovieID       *int64      `json:"movie_id,omitempty"`
}

// SubjectCatalog resolves subject metadata by id. The aggregation pipeline
// only reads through this interface; the SQLite store implements it.
type SubjectCatalog interface {
	Subject(id int64) (*Subject, error)
}

// Box is an axis-aligned bounding box in frame pixel coordinates.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the box area in square pixels.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Intersection returns the overlapping region of two boxes. The result has
// zero width or height when the boxes do not overlap.
func (b Box) Intersection(o Box) Box {
	x1 := max(b.X, o.X)
	y1 := max(b.Y, o.Y)
	x2 := min(b.X+b.W, o.X+o.W)
	y2 := min(b.Y+b.H, o.Y+o.H)
	return Box{
		X: x1,
		Y: y1,
		W: max(0, x2-x1),
		H: max(0, y2-y1),
	}
}

// IoU returns the intersection-over-union overlap of two boxes in [0,1].
func (b Box) IoU(o Box) float64 {
	inter := b.Intersection(o).Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// FrameAnnotation is one flattened frame observation: a single drawn box, or
// the empty-frame sentinel. Subject fields are filled in by the pipeline's
// metadata join.
type FrameAnnotation struct {
	ClassificationID int64  `json:"classification_id"`
	SubjectID        int64  `json:"subject_id"`
	UserName         string `json:"user_name"`
	Label            string `json:"label"`
	Box              *Box   `json:"box,omitempty"`
	FrameNumber      *int   `json:"frame_number,omitempty"`
	MovieID          *int64 `json:"movie_id,omitempty"`
	Filename         string `json:"filename,omitempty"`
	MediaURL         string `json:"https_location,omitempty"`
}

// ClipAnnotation is one flattened clip observation: a species reported in a
// clip with its first-seen offset and individual count.
type ClipAnnotation struct {
	ClassificationID int64       `json:"classification_id"`
	SubjectID        int64       `json:"subject_id"`
	UserName         string      `json:"user_name"`
	Label            string      `json:"label"`
	FirstSeen        float64     `json:"first_seen"`
	HowMany          float64     `json:"how_many"`
	MediaURL         string      `json:"https_location,omitempty"`
	SubjectType      SubjectType `json:"subject_type,omitempty"`
}

// FrameAggregate is one consensus output row for frame subjects: either a
// resolved consensus box, or an agreed empty frame (nil box).
type FrameAggregate struct {
	SubjectID   int64       `json:"subject_id"`
	Label       string      `json:"label"`
	Box         *Box        `json:"box,omitempty"`
	FrameNumber *int        `json:"frame_number,omitempty"`
	Filename    string      `json:"filename"`
	MediaURL    string      `json:"https_location"`
	SubjectType SubjectType `json:"subject_type"`

	// Rows holds the indices of the contributing rows in the run's raw
	// (audit) table, ascending.
	Rows []int `json:"rows,omitempty"`
}

// ClipAggregate is one consensus output row for clip subjects.
type ClipAggregate struct {
	SubjectID   int64       `json:"subject_id"`
	MediaURL    string      `json:"https_location"`
	SubjectType SubjectType `json:"subject_type"`
	Label       string      `json:"label"`
	HowMany     float64     `json:"how_many"`
	FirstSeen   float64     `json:"first_seen"`
}

// Summary is the observable accounting for one aggregation run. Zero rows
// out with a clean summary is a valid outcome, distinct from an error.
type Summary struct {
	RunID             string      `json:"run_id"`
	SubjectType       SubjectType `json:"subject_type"`
	Params            Params      `json:"params"`
	StartedAt         time.Time   `json:"started_at"`
	Classifications   int         `json:"classifications"`
	Malformed         int         `json:"malformed"`
	MissingSubjects   int         `json:"missing_subjects"`
	MissingSubjectIDs []int64     `json:"missing_subject_ids,omitempty"`
	TypeMismatched    int         `json:"type_mismatched"`
	SubjectsSeen      int         `json:"subjects_seen"`
	RowsFlattened     int         `json:"rows_flattened"`
	RowsRetained      int         `json:"rows_retained"`
	RowsOut           int         `json:"rows_out"`
}

// FrameResult is a frame-mode aggregation run: consensus rows, the raw
// flattened table for audit, and the run summary.
type FrameResult struct {
	Rows    []FrameAggregate  `json:"rows"`
	Raw     []FrameAnnotation `json:"raw,omitempty"`
	Summary Summary           `json:"summary"`
}

// ClipResult is a clip-mode aggregation run.
type ClipResult struct {
	Rows    []ClipAggregate  `json:"rows"`
	Raw     []ClipAnnotation `json:"raw,omitempty"`
	Summary Summary          `json:"summary"`
}

// CleanLabel strips a trailing parenthesised qualifier from a label, so
// "FISH (ADULT)" and "FISH (JUVENILE)" both aggregate as "FISH".
func CleanLabel(label string) string {
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
