package agg

import "testing"

func TestParams_Validate(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(SubjectFrame); err != nil {
		t.Errorf("defaults should validate for frames: %v", err)
	}
	if err := p.Validate(SubjectClip); err != nil {
		t.Errorf("defaults should validate for clips: %v", err)
	}

	p = DefaultParams()
	p.MinUsers = 0
	if err := p.Validate(SubjectClip); err == nil {
		t.Error("expected error for min_users below 1")
	}

	p = DefaultParams()
	p.AggUsers = 1.2
	if err := p.Validate(SubjectClip); err == nil {
		t.Error("expected error for agg_users above 1")
	}

	// Box thresholds only matter in frame mode.
	p = DefaultParams()
	p.AggIoU = 7
	if err := p.Validate(SubjectClip); err != nil {
		t.Errorf("clip validation should ignore box thresholds: %v", err)
	}
	if err := p.Validate(SubjectFrame); err == nil {
		t.Error("expected error for agg_iou above 1 in frame mode")
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.MinUsers != 3 {
		t.Errorf("expected default min_users 3, got %d", p.MinUsers)
	}
	if p.AggUsers != 0.8 || p.AggObj != 0.8 || p.AggIoU != 0.5 || p.AggIUA != 0.8 {
		t.Errorf("unexpected default thresholds: %+v", p)
	}
}
