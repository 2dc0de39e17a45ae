package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// aggregateRequest is the POST /api/aggregate body. Threshold fields are
// optional; unset ones fall back to the server's configured defaults.
type aggregateRequest struct {
	SubjectType        string   `json:"subject_type"`
	WorkflowID         int64    `json:"workflow_id,omitempty"`
	MinWorkflowVersion float64  `json:"min_workflow_version,omitempty"`
	Extractor          string   `json:"extractor,omitempty"`
	MinUsers           *int     `json:"min_users,omitempty"`
	AggUsers           *float64 `json:"agg_users,omitempty"`
	AggObj             *float64 `json:"agg_obj,omitempty"`
	AggIoU             *float64 `json:"agg_iou,omitempty"`
	AggIUA             *float64 `json:"agg_iua,omitempty"`

	// IncludeRaw keeps the flattened audit table in the response. It can be
	// large, so the default is rows and summary only.
	IncludeRaw bool `json:"include_raw,omitempty"`
}

// params merges the request's threshold overrides onto the configured
// defaults.
func (s *Server) params(req *aggregateRequest) agg.Params {
	p := s.cfg.Params()
	if req.MinUsers != nil {
		p.MinUsers = *req.MinUsers
	}
	if req.AggUsers != nil {
		p.AggUsers = *req.AggUsers
	}
	if req.AggObj != nil {
		p.AggObj = *req.AggObj
	}
	if req.AggIoU != nil {
		p.AggIoU = *req.AggIoU
	}
	if req.AggIUA != nil {
		p.AggIUA = *req.AggIUA
	}
	return p
}

func (s *Server) runAggregation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	subjectType := agg.SubjectType(req.SubjectType)
	if subjectType != agg.SubjectClip && subjectType != agg.SubjectFrame {
		s.writeJSONError(w, http.StatusBadRequest, "subject_type must be 'clip' or 'frame'")
		return
	}

	workflowID := req.WorkflowID
	if workflowID == 0 {
		workflowID = s.cfg.GetWorkflowID()
	}
	if workflowID == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "workflow_id required")
		return
	}

	minVersion := req.MinWorkflowVersion
	if minVersion == 0 {
		minVersion = s.cfg.GetMinWorkflowVersion()
	}

	params := s.params(&req)
	if err := params.Validate(subjectType); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	cls, err := s.db.Classifications(workflowID, minVersion)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load classifications: %v", err))
		return
	}

	switch subjectType {
	case agg.SubjectFrame:
		res, err := agg.AggregateFrames(cls, s.db, params)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Aggregation failed: %v", err))
			return
		}
		if err := s.db.SaveRunSummary(&res.Summary); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save run: %v", err))
			return
		}
		if !req.IncludeRaw {
			res.Raw = nil
		}
		if err := json.NewEncoder(w).Encode(res); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write result")
		}

	case agg.SubjectClip:
		name := req.Extractor
		if name == "" {
			name = s.cfg.GetExtractor()
		}
		extractor, err := agg.LookupExtractor(name)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := agg.AggregateClips(cls, extractor, s.db, params)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Aggregation failed: %v", err))
			return
		}
		if err := s.db.SaveRunSummary(&res.Summary); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save run: %v", err))
			return
		}
		if !req.IncludeRaw {
			res.Raw = nil
		}
		if err := json.NewEncoder(w).Encode(res); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write result")
		}
	}
}
