package agg

import "fmt"

// Default aggregation thresholds. These match the values projects start
// from when tuning a new workflow.
const (
	DefaultMinUsers = 3
	DefaultAggUsers = 0.8
	DefaultAggObj   = 0.8
	DefaultAggIoU   = 0.5
	DefaultAggIUA   = 0.8
)

// Params carries the aggregation thresholds supplied by the caller. The box
// parameters (AggObj, AggIoU, AggIUA) only apply to frame runs.
type Params struct {
	MinUsers int     `json:"min_users"`
	AggUsers float64 `json:"agg_users"`
	AggObj   float64 `json:"agg_obj"`
	AggIoU   float64 `json:"agg_iou"`
	AggIUA   float64 `json:"agg_iua"`
}

// DefaultParams returns the standard starting thresholds.
func DefaultParams() Params {
	return Params{
		MinUsers: DefaultMinUsers,
		AggUsers: DefaultAggUsers,
		AggObj:   DefaultAggObj,
		AggIoU:   DefaultAggIoU,
		AggIUA:   DefaultAggIUA,
	}
}

// Validate checks the thresholds for one run. Frame runs validate the box
// parameters too; clip runs ignore them. Called at pipeline entry so an
// invalid configuration fails before any work, never mid-run.
func (p Params) Validate(subjectType SubjectType) error {
	if p.MinUsers < 1 {
		return fmt.Errorf("min_users must be at least 1, got %d", p.MinUsers)
	}
	if p.AggUsers < 0 || p.AggUsers > 1 {
		return fmt.Errorf("agg_users must be between 0 and 1, got %v", p.AggUsers)
	}

	if subjectType != SubjectFrame {
		return nil
	}

	if p.AggObj < 0 || p.AggObj > 1 {
		return fmt.Errorf("agg_obj must be between 0 and 1, got %v", p.AggObj)
	}
	if p.AggIoU < 0 || p.AggIoU > 1 {
		return fmt.Errorf("agg_iou must be between 0 and 1, got %v", p.AggIoU)
	}
	if p.AggIUA < 0 || p.AggIUA > 1 {
		return fmt.Errorf("agg_iua must be between 0 and 1, got %v", p.AggIUA)
	}
	return nil
}
