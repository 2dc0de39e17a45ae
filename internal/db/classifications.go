package db

import (
	"fmt"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// InsertClassification stores one classification. Re-inserting an id that is
// already present is a no-op, so export files can be ingested repeatedly.
func (db *DB) InsertClassification(c *agg.Classification) (bool, error) {
	query := `
		INSERT OR IGNORE INTO classifications (
			classification_id, user_name, workflow_id, workflow_version,
			subject_id, created_at, annotations
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.DB.Exec(
		query,
		c.ID,
		c.UserName,
		c.WorkflowID,
		c.WorkflowVersion,
		c.SubjectID,
		c.CreatedAt,
		c.Annotations,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert classification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Classifications retrieves the classifications for one workflow at or above
// the given version, ordered by classification id.
func (db *DB) Classifications(workflowID int64, minVersion float64) ([]agg.Classification, error) {
	query := `
		SELECT classification_id, user_name, workflow_id, workflow_version,
			subject_id, created_at, annotations
		FROM classifications
		WHERE workflow_id = ? AND workflow_version >= ?
		ORDER BY classification_id ASC
	`

	rows, err := db.DB.Query(query, workflowID, minVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	var cls []agg.Classification
	for rows.Next() {
		var c agg.Classification
		err := rows.Scan(
			&c.ID,
			&c.UserName,
			&c.WorkflowID,
			&c.WorkflowVersion,
			&c.SubjectID,
			&c.CreatedAt,
			&c.Annotations,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		cls = append(cls, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classifications: %w", err)
	}

	return cls, nil
}

// CountClassifications returns the number of stored classifications.
func (db *DB) CountClassifications() (int, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM classifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return count, nil
}
