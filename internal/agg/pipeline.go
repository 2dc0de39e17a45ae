package agg

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AggregateFrames runs the full frame-mode pipeline: subject join, payload
// flattening, participation and agreement filtering, and box-consensus
// resolution. The whole run is a single synchronous in-memory pass;
// concurrent calls over separate inputs are safe because nothing global is
// mutated.
func AggregateFrames(cls []Classification, catalog SubjectCatalog, params Params) (*FrameResult, error) {
	if err := params.Validate(SubjectFrame); err != nil {
		return nil, err
	}
	summary := newSummary(SubjectFrame, params, len(cls))

	resolved, subjects, err := resolveSubjects(cls, catalog, SubjectFrame, &summary)
	if err != nil {
		return nil, err
	}

	// Flatten payloads, enriching each row with its subject metadata.
	var rows []FrameAnnotation
	for _, c := range resolved {
		rs, err := FlattenFrame(c)
		if err != nil {
			summary.Malformed++
			continue
		}
		sub := subjects[c.SubjectID]
		for i := range rs {
			rs[i].FrameNumber = sub.FrameNumber
			rs[i].MovieID = sub.MovieID
			rs[i].Filename = sub.Filename
			rs[i].MediaURL = sub.MediaURL
		}
		rows = append(rows, rs...)
	}
	summary.RowsFlattened = len(rows)

	retained, err := filterRows(len(rows), params, func(i int) Assertion {
		return Assertion{Subject: rows[i].SubjectID, User: rows[i].UserName, Label: rows[i].Label}
	})
	if err != nil {
		return nil, err
	}
	summary.RowsRetained = len(retained)

	// Partition retained rows into box groups and empty-frame subjects. The
	// label qualifier is stripped only now: agreement is judged on the exact
	// label, consensus boxes on the cleaned one.
	type frameKey struct {
		filename string
		label    string
		frame    int
	}
	groups := map[frameKey][]int{}
	emptySubjects := map[int64][]int{}
	for _, ri := range retained {
		r := rows[ri]
		if r.Label == EmptyLabel {
			emptySubjects[r.SubjectID] = append(emptySubjects[r.SubjectID], ri)
			continue
		}
		if r.Box == nil {
			continue // labelled row without usable geometry
		}
		frame := -1
		if r.FrameNumber != nil {
			frame = *r.FrameNumber
		}
		key := frameKey{filename: r.Filename, label: CleanLabel(r.Label), frame: frame}
		groups[key] = append(groups[key], ri)
	}

	keys := make([]frameKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].filename != keys[j].filename {
			return keys[i].filename < keys[j].filename
		}
		if keys[i].label != keys[j].label {
			return keys[i].label < keys[j].label
		}
		return keys[i].frame < keys[j].frame
	})

	var out []FrameAggregate
	for _, key := range keys {
		idxs := groups[key]
		users := make([]string, len(idxs))
		boxes := make([]Box, len(idxs))
		distinct := map[string]struct{}{}
		for k, ri := range idxs {
			users[k] = rows[ri].UserName
			boxes[k] = *rows[ri].Box
			distinct[rows[ri].UserName] = struct{}{}
		}

		clusters, err := ResolveBoxes(len(distinct), users, boxes, params.AggObj, params.AggIoU, params.AggIUA)
		if err != nil {
			return nil, fmt.Errorf("resolve boxes for %s/%s: %w", key.filename, key.label, err)
		}

		for _, cl := range clusters {
			first := rows[idxs[cl.Rows[0]]]
			global := make([]int, len(cl.Rows))
			for k, gi := range cl.Rows {
				global[k] = idxs[gi]
			}
			box := cl.Box
			out = append(out, FrameAggregate{
				SubjectID:   first.SubjectID,
				Label:       key.label,
				Box:         &box,
				FrameNumber: first.FrameNumber,
				Filename:    key.filename,
				MediaURL:    first.MediaURL,
				SubjectType: SubjectFrame,
				Rows:        global,
			})
		}
	}

	// One row per subject whose raters agreed the frame was empty.
	emptyIDs := make([]int64, 0, len(emptySubjects))
	for sid := range emptySubjects {
		emptyIDs = append(emptyIDs, sid)
	}
	sort.Slice(emptyIDs, func(i, j int) bool { return emptyIDs[i] < emptyIDs[j] })
	for _, sid := range emptyIDs {
		ris := emptySubjects[sid]
		first := rows[ris[0]]
		out = append(out, FrameAggregate{
			SubjectID:   sid,
			Label:       EmptyLabel,
			FrameNumber: first.FrameNumber,
			Filename:    first.Filename,
			MediaURL:    first.MediaURL,
			SubjectType: SubjectFrame,
			Rows:        ris,
		})
	}

	sortFrameAggregates(out)
	summary.RowsOut = len(out)

	return &FrameResult{Rows: out, Raw: rows, Summary: summary}, nil
}

// AggregateClips runs the full clip-mode pipeline: subject join, per-project
// payload extraction, participation and agreement filtering, and median
// reduction.
func AggregateClips(cls []Classification, extractor ClipExtractor, catalog SubjectCatalog, params Params) (*ClipResult, error) {
	if err := params.Validate(SubjectClip); err != nil {
		return nil, err
	}
	if extractor == nil {
		return nil, errors.New("clip extractor required")
	}
	summary := newSummary(SubjectClip, params, len(cls))

	resolved, subjects, err := resolveSubjects(cls, catalog, SubjectClip, &summary)
	if err != nil {
		return nil, err
	}

	var rows []ClipAnnotation
	for _, c := range resolved {
		obs, err := extractor.Extract(c)
		if err != nil {
			summary.Malformed++
			continue
		}
		sub := subjects[c.SubjectID]
		for _, o := range obs {
			rows = append(rows, ClipAnnotation{
				ClassificationID: c.ID,
				SubjectID:        c.SubjectID,
				UserName:         c.UserName,
				Label:            o.Label,
				FirstSeen:        o.FirstSeen,
				HowMany:          o.HowMany,
				MediaURL:         sub.MediaURL,
				SubjectType:      sub.Type,
			})
		}
	}
	summary.RowsFlattened = len(rows)

	retained, err := filterRows(len(rows), params, func(i int) Assertion {
		return Assertion{Subject: rows[i].SubjectID, User: rows[i].UserName, Label: rows[i].Label}
	})
	if err != nil {
		return nil, err
	}
	summary.RowsRetained = len(retained)

	kept := make([]ClipAnnotation, len(retained))
	for k, ri := range retained {
		kept[k] = rows[ri]
		kept[k].Label = CleanLabel(kept[k].Label)
	}

	out := ReduceClips(kept)
	summary.RowsOut = len(out)

	return &ClipResult{Rows: out, Raw: rows, Summary: summary}, nil
}

// filterRows applies the participation then agreement filters to n rows
// viewed through the assertion accessor, returning retained row indices in
// input order.
func filterRows(n int, params Params, at func(int) Assertion) ([]int, error) {
	as := make([]Assertion, n)
	for i := range as {
		as[i] = at(i)
	}
	stats := BuildSubjectStats(as)

	participating, err := FilterParticipation(as, stats, params.MinUsers)
	if err != nil {
		return nil, err
	}

	sub := make([]Assertion, len(participating))
	for k, i := range participating {
		sub[k] = as[i]
	}
	agreeing, err := FilterAgreement(sub, stats, params.AggUsers)
	if err != nil {
		return nil, err
	}

	retained := make([]int, len(agreeing))
	for k, i := range agreeing {
		retained[k] = participating[i]
	}
	return retained, nil
}

// resolveSubjects looks up each classification's subject, excluding and
// counting those with no metadata row or the wrong subject type. Lookups are
// memoised per subject id. A catalog failure other than ErrSubjectNotFound
// aborts the run.
func resolveSubjects(cls []Classification, catalog SubjectCatalog, want SubjectType, summary *Summary) ([]Classification, map[int64]*Subject, error) {
	subjects := map[int64]*Subject{}
	missing := map[int64]struct{}{}
	seen := map[int64]struct{}{}

	var kept []Classification
	for _, c := range cls {
		if _, ok := missing[c.SubjectID]; ok {
			summary.MissingSubjects++
			continue
		}

		sub, ok := subjects[c.SubjectID]
		if !ok {
			var err error
			sub, err = catalog.Subject(c.SubjectID)
			if errors.Is(err, ErrSubjectNotFound) {
				missing[c.SubjectID] = struct{}{}
				summary.MissingSubjects++
				continue
			}
			if err != nil {
				return nil, nil, fmt.Errorf("look up subject %d: %w", c.SubjectID, err)
			}
			subjects[c.SubjectID] = sub
		}

		if sub.Type != want {
			summary.TypeMismatched++
			continue
		}
		seen[c.SubjectID] = struct{}{}
		kept = append(kept, c)
	}

	ids := make([]int64, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	summary.MissingSubjectIDs = ids
	summary.SubjectsSeen = len(seen)

	return kept, subjects, nil
}

func newSummary(st SubjectType, params Params, total int) Summary {
	return Summary{
		RunID:           uuid.NewString(),
		SubjectType:     st,
		Params:          params,
		StartedAt:       time.Now().UTC(),
		Classifications: total,
	}
}

// sortFrameAggregates orders the output table by subject, label, then box
// position, which is stable across runs on identical input.
func sortFrameAggregates(rows []FrameAggregate) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if (a.Box == nil) != (b.Box == nil) {
			return a.Box == nil
		}
		if a.Box == nil {
			return false
		}
		if a.Box.X != b.Box.X {
			return a.Box.X < b.Box.X
		}
		if a.Box.Y != b.Box.Y {
			return a.Box.Y < b.Box.Y
		}
		if a.Box.W != b.Box.W {
			return a.Box.W < b.Box.W
		}
		return a.Box.H < b.Box.H
	})
}
