package agg

import "fmt"

// Assertion is the (subject, user, label) view of one flattened row, the
// only fields the participation and agreement filters look at.
type Assertion struct {
	Subject int64
	User    string
	Label   string
}

// SubjectStats summarises rater participation for one subject.
type SubjectStats struct {
	Raters      int            // distinct users who classified the subject
	LabelRaters map[string]int // distinct users per asserted label
}

// Agreement returns the fraction of the subject's raters who asserted the
// label. The denominator is the subject's full rater count, not the
// per-label count, so the ratio is always in [0,1].
func (s SubjectStats) Agreement(label string) float64 {
	if s.Raters == 0 {
		return 0
	}
	return float64(s.LabelRaters[label]) / float64(s.Raters)
}

// BuildSubjectStats derives per-subject rater counts from assertions. A user
// counts once per subject however many rows they produced; rows with a blank
// label still mark their user as a rater but contribute to no label tally.
func BuildSubjectStats(as []Assertion) map[int64]SubjectStats {
	raters := map[int64]map[string]struct{}{}
	labelRaters := map[int64]map[string]map[string]struct{}{}

	for _, a := range as {
		users, ok := raters[a.Subject]
		if !ok {
			users = map[string]struct{}{}
			raters[a.Subject] = users
		}
		users[a.User] = struct{}{}

		if a.Label == "" {
			continue
		}
		labels, ok := labelRaters[a.Subject]
		if !ok {
			labels = map[string]map[string]struct{}{}
			labelRaters[a.Subject] = labels
		}
		labelUsers, ok := labels[a.Label]
		if !ok {
			labelUsers = map[string]struct{}{}
			labels[a.Label] = labelUsers
		}
		labelUsers[a.User] = struct{}{}
	}

	stats := make(map[int64]SubjectStats, len(raters))
	for subject, users := range raters {
		st := SubjectStats{
			Raters:      len(users),
			LabelRaters: map[string]int{},
		}
		for label, labelUsers := range labelRaters[subject] {
			st.LabelRaters[label] = len(labelUsers)
		}
		stats[subject] = st
	}
	return stats
}

// FilterParticipation returns the indices of assertions whose subject was
// classified by at least minUsers distinct users. Input order is preserved,
// so the output is a strict subset of the input rows.
func FilterParticipation(as []Assertion, stats map[int64]SubjectStats, minUsers int) ([]int, error) {
	if minUsers < 1 {
		return nil, fmt.Errorf("min_users must be at least 1, got %d", minUsers)
	}

	var kept []int
	for i, a := range as {
		if stats[a.Subject].Raters >= minUsers {
			kept = append(kept, i)
		}
	}
	return kept, nil
}

// FilterAgreement returns the indices of assertions whose (subject, label)
// agreement ratio is at least aggUsers. Rows with a blank label never pass.
// Input order is preserved.
func FilterAgreement(as []Assertion, stats map[int64]SubjectStats, aggUsers float64) ([]int, error) {
	if aggUsers < 0 || aggUsers > 1 {
		return nil, fmt.Errorf("agg_users must be between 0 and 1, got %v", aggUsers)
	}

	var kept []int
	for i, a := range as {
		if a.Label == "" {
			continue
		}
		if stats[a.Subject].Agreement(a.Label) >= aggUsers {
			kept = append(kept, i)
		}
	}
	return kept, nil
}
