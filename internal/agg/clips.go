package agg

import "sort"

// clipKey groups clip rows the way the output table is keyed.
type clipKey struct {
	subject int64
	url     string
	stype   SubjectType
	label   string
}

// ReduceClips collapses agreement-filtered clip rows into one consensus row
// per (subject, media url, subject type, label), taking the median of the
// first-seen and how-many values across the group. Median rather than mean
// so a single mis-timed rater cannot skew the consensus. Reducing an
// already-reduced table is a no-op: each group has one row and the median
// of one value is itself.
func ReduceClips(rows []ClipAnnotation) []ClipAggregate {
	groups := map[clipKey][]int{}
	for i, r := range rows {
		key := clipKey{subject: r.SubjectID, url: r.MediaURL, stype: r.SubjectType, label: r.Label}
		groups[key] = append(groups[key], i)
	}

	keys := make([]clipKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		if keys[i].url != keys[j].url {
			return keys[i].url < keys[j].url
		}
		if keys[i].stype != keys[j].stype {
			return keys[i].stype < keys[j].stype
		}
		return keys[i].label < keys[j].label
	})

	out := make([]ClipAggregate, 0, len(keys))
	for _, key := range keys {
		idxs := groups[key]
		firstSeen := make([]float64, len(idxs))
		howMany := make([]float64, len(idxs))
		for k, i := range idxs {
			firstSeen[k] = rows[i].FirstSeen
			howMany[k] = rows[i].HowMany
		}
		out = append(out, ClipAggregate{
			SubjectID:   key.subject,
			MediaURL:    key.url,
			SubjectType: key.stype,
			Label:       key.label,
			HowMany:     median(howMany),
			FirstSeen:   median(firstSeen),
		})
	}
	return out
}

// median computes the median of a float64 slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Make a copy to avoid modifying original
	sorted := make([]float64, len(values))
	copy(sorted, values)

	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
