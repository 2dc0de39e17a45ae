package report

import (
	"math"
	"testing"
)

func TestDescribe(t *testing.T) {
	if d := Describe(nil); d.Count != 0 || d.Mean != 0 {
		t.Errorf("Describe(nil) = %+v, want zero distribution", d)
	}

	d := Describe([]float64{7})
	if d.Count != 1 || d.Mean != 7 || d.Median != 7 || d.StdDev != 0 {
		t.Errorf("Describe([7]) = %+v", d)
	}

	d = Describe([]float64{5, 1, 2, 1})
	if d.Count != 4 {
		t.Errorf("Count = %d, want 4", d.Count)
	}
	if d.Mean != 2.25 {
		t.Errorf("Mean = %v, want 2.25", d.Mean)
	}
	if d.Median != 1.5 {
		t.Errorf("Median = %v, want 1.5", d.Median)
	}
	if d.Min != 1 || d.Max != 5 {
		t.Errorf("Min/Max = %v/%v, want 1/5", d.Min, d.Max)
	}
	if d.P25 != 1 {
		t.Errorf("P25 = %v, want 1", d.P25)
	}
	if d.P75 != 2.75 {
		t.Errorf("P75 = %v, want 2.75", d.P75)
	}
}

func TestDescribe_StdDev(t *testing.T) {
	d := Describe([]float64{2, 4, 6, 8})
	// Sample standard deviation of [2,4,6,8] is sqrt(20/3)
	want := math.Sqrt(20.0 / 3.0)
	if math.Abs(d.StdDev-want) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", d.StdDev, want)
	}
	if d.Median != 5 {
		t.Errorf("Median = %v, want 5", d.Median)
	}
	if d.P25 != 3.5 {
		t.Errorf("P25 = %v, want 3.5", d.P25)
	}
	if d.P75 != 6.5 {
		t.Errorf("P75 = %v, want 6.5", d.P75)
	}
}

func TestComputeFrameStats(t *testing.T) {
	stats := ComputeFrameStats(testFrameResult())

	if stats.Subjects != 2 {
		t.Errorf("Subjects = %d, want 2", stats.Subjects)
	}
	if stats.Raters != 4 {
		t.Errorf("Raters = %d, want 4", stats.Raters)
	}
	if stats.ConsensusRows != 2 {
		t.Errorf("ConsensusRows = %d, want 2", stats.ConsensusRows)
	}
	if stats.EmptyFrames != 1 {
		t.Errorf("EmptyFrames = %d, want 1", stats.EmptyFrames)
	}
	if stats.RatersPerSubject.Mean != 3 {
		t.Errorf("RatersPerSubject.Mean = %v, want 3", stats.RatersPerSubject.Mean)
	}
	if stats.RowsPerConsensus.Mean != 3 {
		t.Errorf("RowsPerConsensus.Mean = %v, want 3", stats.RowsPerConsensus.Mean)
	}
}

func TestComputeClipStats(t *testing.T) {
	stats := ComputeClipStats(testClipResult())

	if stats.Subjects != 2 {
		t.Errorf("Subjects = %d, want 2", stats.Subjects)
	}
	if stats.Raters != 4 {
		t.Errorf("Raters = %d, want 4", stats.Raters)
	}
	if stats.RatersPerSubject.Mean != 3 {
		t.Errorf("RatersPerSubject.Mean = %v, want 3", stats.RatersPerSubject.Mean)
	}
	if stats.HowMany.Median != 1.25 {
		t.Errorf("HowMany.Median = %v, want 1.25", stats.HowMany.Median)
	}
	if stats.FirstSeen.Median != 3.5 {
		t.Errorf("FirstSeen.Median = %v, want 3.5", stats.FirstSeen.Median)
	}
}
