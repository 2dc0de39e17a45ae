package agg

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ClipObservation is one species event extracted from a clip classification:
// what was seen, when it first appeared, and how many individuals.
type ClipObservation struct {
	Label     string
	FirstSeen float64
	HowMany   float64
}

// ClipExtractor converts one clip classification payload into observations.
// Each citizen-science project encodes species, count, and timing
// differently, so extraction is pluggable: one implementation per project,
// selected by name.
type ClipExtractor interface {
	Name() string
	Extract(c Classification) ([]ClipObservation, error)
}

var extractors = map[string]ClipExtractor{}

// RegisterExtractor makes an extractor selectable by its name. Names are
// case-insensitive; registering a duplicate name replaces the previous
// extractor.
func RegisterExtractor(e ClipExtractor) {
	extractors[strings.ToLower(e.Name())] = e
}

// LookupExtractor returns the extractor registered for a project name.
func LookupExtractor(project string) (ClipExtractor, error) {
	e, ok := extractors[strings.ToLower(project)]
	if !ok {
		return nil, fmt.Errorf("no clip extractor registered for project %q (have: %s)",
			project, strings.Join(ExtractorNames(), ", "))
	}
	return e, nil
}

// ExtractorNames lists the registered extractor names, sorted.
func ExtractorNames() []string {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractClips flattens a batch of clip classifications through an
// extractor. Entries the extractor rejects are skipped rather than aborting
// the batch; the second return value reports how many were dropped.
func ExtractClips(e ClipExtractor, cls []Classification) ([]ClipAnnotation, int) {
	var rows []ClipAnnotation
	malformed := 0
	for _, c := range cls {
		obs, err := e.Extract(c)
		if err != nil {
			malformed++
			continue
		}
		for _, o := range obs {
			rows = append(rows, ClipAnnotation{
				ClassificationID: c.ID,
				SubjectID:        c.SubjectID,
				UserName:         c.UserName,
				Label:            o.Label,
				FirstSeen:        o.FirstSeen,
				HowMany:          o.HowMany,
			})
		}
	}
	return rows, malformed
}

// surveyChoice is one species pick in a survey task: the chosen species plus
// its follow-up answers (count, first-seen time, and so on).
type surveyChoice struct {
	Choice  string         `json:"choice"`
	Answers map[string]any `json:"answers"`
}

// surveyChoices decodes the survey task with the given id from a payload and
// returns its choices. A payload without that task yields no choices.
func surveyChoices(c Classification, taskID string) ([]surveyChoice, error) {
	var tasks []payloadTask
	if err := json.Unmarshal([]byte(c.Annotations), &tasks); err != nil {
		return nil, fmt.Errorf("parse annotations for classification %d: %w", c.ID, err)
	}

	var choices []surveyChoice
	for _, t := range tasks {
		if t.Task != taskID || len(t.Value) == 0 {
			continue
		}
		var cs []surveyChoice
		if err := json.Unmarshal(t.Value, &cs); err != nil {
			return nil, fmt.Errorf("parse %s choices for classification %d: %w", taskID, c.ID, err)
		}
		choices = append(choices, cs...)
	}
	return choices, nil
}

// answerValue coerces a survey follow-up answer to a number, falling back to
// a default when the answer was not given.
func answerValue(answers map[string]any, key string, fallback float64) (float64, error) {
	v, ok := answers[key]
	if !ok || v == nil {
		return fallback, nil
	}
	f, ok := numericValue(v)
	if !ok {
		return 0, fmt.Errorf("answer %s is not numeric: %v", key, v)
	}
	return f, nil
}
