package agg

import (
	"testing"
)

func TestBuildSubjectStats(t *testing.T) {
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "a", Label: "FISH"}, // duplicate row, same user
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: "URCHIN"},
		{Subject: 1, User: "d", Label: ""}, // blank label still marks a rater
		{Subject: 2, User: "a", Label: "FISH"},
	}
	stats := BuildSubjectStats(as)

	s1 := stats[1]
	if s1.Raters != 4 {
		t.Errorf("expected 4 distinct raters on subject 1, got %d", s1.Raters)
	}
	if s1.LabelRaters["FISH"] != 2 {
		t.Errorf("expected 2 users asserting FISH, got %d", s1.LabelRaters["FISH"])
	}
	if s1.LabelRaters["URCHIN"] != 1 {
		t.Errorf("expected 1 user asserting URCHIN, got %d", s1.LabelRaters["URCHIN"])
	}
	if _, ok := s1.LabelRaters[""]; ok {
		t.Error("blank label must not be tallied as an assertion")
	}

	if stats[2].Raters != 1 {
		t.Errorf("expected 1 rater on subject 2, got %d", stats[2].Raters)
	}
}

func TestSubjectStats_Agreement(t *testing.T) {
	s := SubjectStats{Raters: 4, LabelRaters: map[string]int{"FISH": 3}}
	if got := s.Agreement("FISH"); got != 0.75 {
		t.Errorf("expected agreement 0.75, got %v", got)
	}
	if got := s.Agreement("KELP"); got != 0 {
		t.Errorf("expected 0 for unseen label, got %v", got)
	}
	empty := SubjectStats{}
	if got := empty.Agreement("FISH"); got != 0 {
		t.Errorf("expected 0 with no raters, got %v", got)
	}
}

func TestFilterParticipation(t *testing.T) {
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: "FISH"},
		{Subject: 2, User: "a", Label: "FISH"},
		{Subject: 2, User: "b", Label: "FISH"},
	}
	stats := BuildSubjectStats(as)

	kept, err := FilterParticipation(as, stats, 3)
	if err != nil {
		t.Fatalf("FilterParticipation failed: %v", err)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 surviving rows, got %d", len(kept))
	}
	for _, i := range kept {
		if as[i].Subject != 1 {
			t.Errorf("row %d belongs to under-rated subject %d", i, as[i].Subject)
		}
	}
}

func TestFilterParticipation_InvalidThreshold(t *testing.T) {
	if _, err := FilterParticipation(nil, nil, 0); err == nil {
		t.Error("expected error for min_users below 1")
	}
	if _, err := FilterParticipation(nil, nil, -2); err == nil {
		t.Error("expected error for negative min_users")
	}
}

func TestFilterParticipation_Monotonic(t *testing.T) {
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: "URCHIN"},
		{Subject: 2, User: "a", Label: "FISH"},
		{Subject: 2, User: "b", Label: "FISH"},
		{Subject: 3, User: "a", Label: "KELP"},
	}
	stats := BuildSubjectStats(as)

	prev := len(as) + 1
	for minUsers := 1; minUsers <= 5; minUsers++ {
		kept, err := FilterParticipation(as, stats, minUsers)
		if err != nil {
			t.Fatalf("FilterParticipation(%d) failed: %v", minUsers, err)
		}
		if len(kept) > prev {
			t.Errorf("raising min_users to %d grew the survivor set: %d > %d", minUsers, len(kept), prev)
		}
		prev = len(kept)
	}
}

func TestFilterAgreement(t *testing.T) {
	// Five raters on one subject: three say FISH, two say URCHIN.
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: "FISH"},
		{Subject: 1, User: "d", Label: "URCHIN"},
		{Subject: 1, User: "e", Label: "URCHIN"},
	}
	stats := BuildSubjectStats(as)

	kept, err := FilterAgreement(as, stats, 0.5)
	if err != nil {
		t.Fatalf("FilterAgreement failed: %v", err)
	}
	// FISH agrees at 3/5, URCHIN at 2/5.
	if len(kept) != 3 {
		t.Fatalf("expected 3 surviving rows, got %d", len(kept))
	}
	for _, i := range kept {
		if as[i].Label != "FISH" {
			t.Errorf("row with label %q survived a 0.5 threshold", as[i].Label)
		}
	}
}

func TestFilterAgreement_DenominatorIsAllRaters(t *testing.T) {
	// Two users assert FISH, a third saw nothing. The ratio is 2/3, not 2/2.
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: ""},
	}
	stats := BuildSubjectStats(as)

	kept, err := FilterAgreement(as, stats, 0.7)
	if err != nil {
		t.Fatalf("FilterAgreement failed: %v", err)
	}
	if len(kept) != 0 {
		t.Errorf("expected 2/3 agreement to fail a 0.7 threshold, kept %d rows", len(kept))
	}

	kept, err = FilterAgreement(as, stats, 0.6)
	if err != nil {
		t.Fatalf("FilterAgreement failed: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("expected 2/3 agreement to clear a 0.6 threshold, kept %d rows", len(kept))
	}
}

func TestFilterAgreement_ZeroThresholdKeepsNonBlank(t *testing.T) {
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "URCHIN"},
		{Subject: 1, User: "c", Label: ""},
	}
	stats := BuildSubjectStats(as)

	kept, err := FilterAgreement(as, stats, 0)
	if err != nil {
		t.Fatalf("FilterAgreement failed: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected the two labelled rows, got %d", len(kept))
	}
	for _, i := range kept {
		if as[i].Label == "" {
			t.Error("blank-label row must never pass agreement")
		}
	}
}

func TestFilterAgreement_InvalidThreshold(t *testing.T) {
	if _, err := FilterAgreement(nil, nil, -0.1); err == nil {
		t.Error("expected error for negative agg_users")
	}
	if _, err := FilterAgreement(nil, nil, 1.1); err == nil {
		t.Error("expected error for agg_users above 1")
	}
}

func TestFilterAgreement_Monotonic(t *testing.T) {
	as := []Assertion{
		{Subject: 1, User: "a", Label: "FISH"},
		{Subject: 1, User: "b", Label: "FISH"},
		{Subject: 1, User: "c", Label: "FISH"},
		{Subject: 1, User: "d", Label: "URCHIN"},
		{Subject: 2, User: "a", Label: "KELP"},
		{Subject: 2, User: "b", Label: "KELP"},
	}
	stats := BuildSubjectStats(as)

	prev := len(as) + 1
	for _, threshold := range []float64{0, 0.25, 0.5, 0.75, 1} {
		kept, err := FilterAgreement(as, stats, threshold)
		if err != nil {
			t.Fatalf("FilterAgreement(%v) failed: %v", threshold, err)
		}
		if len(kept) > prev {
			t.Errorf("raising agg_users to %v grew the survivor set: %d > %d", threshold, len(kept), prev)
		}
		prev = len(kept)
	}
}
