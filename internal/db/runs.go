package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// SaveRunSummary records the outcome of one aggregation run. Parameters and
// the missing-subject id list are stored as JSON text.
func (db *DB) SaveRunSummary(s *agg.Summary) error {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}

	missingIDs := s.MissingSubjectIDs
	if missingIDs == nil {
		missingIDs = []int64{}
	}
	ids, err := json.Marshal(missingIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal missing subject ids: %w", err)
	}

	query := `
		INSERT INTO agg_runs (
			run_id, subject_type, params, started_at,
			classifications, malformed, missing_subjects, missing_subject_ids,
			type_mismatched, subjects_seen, rows_flattened, rows_retained, rows_out
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.DB.Exec(
		query,
		s.RunID,
		string(s.SubjectType),
		string(params),
		s.StartedAt.Unix(),
		s.Classifications,
		s.Malformed,
		s.MissingSubjects,
		string(ids),
		s.TypeMismatched,
		s.SubjectsSeen,
		s.RowsFlattened,
		s.RowsRetained,
		s.RowsOut,
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}

	return nil
}

// GetRunSummary retrieves one run summary by run id
func (db *DB) GetRunSummary(runID string) (*agg.Summary, error) {
	query := `
		SELECT run_id, subject_type, params, started_at,
			classifications, malformed, missing_subjects, missing_subject_ids,
			type_mismatched, subjects_seen, rows_flattened, rows_retained, rows_out
		FROM agg_runs
		WHERE run_id = ?
	`

	s, err := scanRunSummary(db.DB.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}

	return s, nil
}

// GetRunSummaries retrieves the most recent run summaries, newest first.
func (db *DB) GetRunSummaries(limit int) ([]agg.Summary, error) {
	query := `
		SELECT run_id, subject_type, params, started_at,
			classifications, malformed, missing_subjects, missing_subject_ids,
			type_mismatched, subjects_seen, rows_flattened, rows_retained, rows_out
		FROM agg_runs
		ORDER BY started_at DESC, run_id ASC
		LIMIT ?
	`

	rows, err := db.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []agg.Summary
	for rows.Next() {
		s, err := scanRunSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, *s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run summaries: %w", err)
	}

	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRunSummary(row rowScanner) (*agg.Summary, error) {
	var s agg.Summary
	var subjectType, params, missingIDs string
	var startedAtUnix int64

	err := row.Scan(
		&s.RunID,
		&subjectType,
		&params,
		&startedAtUnix,
		&s.Classifications,
		&s.Malformed,
		&s.MissingSubjects,
		&missingIDs,
		&s.TypeMismatched,
		&s.SubjectsSeen,
		&s.RowsFlattened,
		&s.RowsRetained,
		&s.RowsOut,
	)
	if err != nil {
		return nil, err
	}

	s.SubjectType = agg.SubjectType(subjectType)
	s.StartedAt = time.Unix(startedAtUnix, 0).UTC()

	if err := json.Unmarshal([]byte(params), &s.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run params: %w", err)
	}
	if err := json.Unmarshal([]byte(missingIDs), &s.MissingSubjectIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal missing subject ids: %w", err)
	}
	if len(s.MissingSubjectIDs) == 0 {
		s.MissingSubjectIDs = nil
	}

	return &s, nil
}
