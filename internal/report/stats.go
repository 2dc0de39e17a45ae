package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// Distribution summarises one numeric column of a run.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// quantile returns the linearly interpolated p-quantile of sorted values.
// An even-count median is the mean of the two middle values, the same
// convention the clip reducer uses.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Describe computes summary statistics for one column. A zero-length input
// yields a zero Distribution.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		P25:    quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		P75:    quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	// Sample standard deviation needs at least two values
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// FrameStats summarises a frame-mode run for reporting: how many raters the
// run drew on and how well supported the consensus rows are.
type FrameStats struct {
	Subjects         int          `json:"subjects"`
	Raters           int          `json:"raters"`
	ConsensusRows    int          `json:"consensus_rows"`
	EmptyFrames      int          `json:"empty_frames"`
	RatersPerSubject Distribution `json:"raters_per_subject"`
	RowsPerConsensus Distribution `json:"rows_per_consensus"`
}

// ComputeFrameStats derives frame run statistics from the raw audit table
// and the consensus rows.
func ComputeFrameStats(res *agg.FrameResult) FrameStats {
	users := make(map[string]bool)
	subjectUsers := make(map[int64]map[string]bool)
	for _, r := range res.Raw {
		users[r.UserName] = true
		if subjectUsers[r.SubjectID] == nil {
			subjectUsers[r.SubjectID] = make(map[string]bool)
		}
		subjectUsers[r.SubjectID][r.UserName] = true
	}

	perSubject := make([]float64, 0, len(subjectUsers))
	for _, u := range subjectUsers {
		perSubject = append(perSubject, float64(len(u)))
	}

	support := make([]float64, 0, len(res.Rows))
	empty := 0
	for _, r := range res.Rows {
		if r.Box == nil {
			empty++
		}
		support = append(support, float64(len(r.Rows)))
	}

	return FrameStats{
		Subjects:         len(subjectUsers),
		Raters:           len(users),
		ConsensusRows:    len(res.Rows),
		EmptyFrames:      empty,
		RatersPerSubject: Describe(perSubject),
		RowsPerConsensus: Describe(support),
	}
}

// ClipStats summarises a clip-mode run for reporting.
type ClipStats struct {
	Subjects         int          `json:"subjects"`
	Raters           int          `json:"raters"`
	ConsensusRows    int          `json:"consensus_rows"`
	RatersPerSubject Distribution `json:"raters_per_subject"`
	HowMany          Distribution `json:"how_many"`
	FirstSeen        Distribution `json:"first_seen"`
}

// ComputeClipStats derives clip run statistics from the raw audit table and
// the reduced rows.
func ComputeClipStats(res *agg.ClipResult) ClipStats {
	users := make(map[string]bool)
	subjectUsers := make(map[int64]map[string]bool)
	for _, r := range res.Raw {
		users[r.UserName] = true
		if subjectUsers[r.SubjectID] == nil {
			subjectUsers[r.SubjectID] = make(map[string]bool)
		}
		subjectUsers[r.SubjectID][r.UserName] = true
	}

	perSubject := make([]float64, 0, len(subjectUsers))
	for _, u := range subjectUsers {
		perSubject = append(perSubject, float64(len(u)))
	}

	howMany := make([]float64, 0, len(res.Rows))
	firstSeen := make([]float64, 0, len(res.Rows))
	for _, r := range res.Rows {
		howMany = append(howMany, r.HowMany)
		firstSeen = append(firstSeen, r.FirstSeen)
	}

	return ClipStats{
		Subjects:         len(subjectUsers),
		Raters:           len(users),
		ConsensusRows:    len(res.Rows),
		RatersPerSubject: Describe(perSubject),
		HowMany:          Describe(howMany),
		FirstSeen:        Describe(firstSeen),
	}
}
