package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// Subject is the stored form of a Zooniverse subject: the pipeline-facing
// metadata plus upload bookkeeping.
type Subject struct {
	agg.Subject
	WorkflowID *int64  `json:"workflow_id"`
	CreatedOn  *string `json:"created_on"`
}

// CreateSubject inserts a subject row. The id comes from the Zooniverse
// export, so inserting the same subject twice is an error.
func (db *DB) CreateSubject(s *Subject) error {
	query := `
		INSERT INTO subjects (
			id, subject_type, filename, media_url,
			clip_start_time, clip_end_time, frame_number, movie_id,
			workflow_id, created_on
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(
		query,
		s.ID,
		string(s.Type),
		s.Filename,
		s.MediaURL,
		s.ClipStartTime,
		s.ClipEndTime,
		s.FrameNumber,
		s.MovieID,
		s.WorkflowID,
		s.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}

	return nil
}

// Subject returns the pipeline view of one subject. Satisfies
// agg.SubjectCatalog, so missing rows map to agg.ErrSubjectNotFound.
func (db *DB) Subject(id int64) (*agg.Subject, error) {
	query := `
		SELECT id, subject_type, filename, media_url,
			clip_start_time, clip_end_time, frame_number, movie_id
		FROM subjects
		WHERE id = ?
	`

	var s agg.Subject
	var subjectType string

	err := db.DB.QueryRow(query, id).Scan(
		&s.ID,
		&subjectType,
		&s.Filename,
		&s.MediaURL,
		&s.ClipStartTime,
		&s.ClipEndTime,
		&s.FrameNumber,
		&s.MovieID,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, agg.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	s.Type = agg.SubjectType(subjectType)

	return &s, nil
}

// GetAllSubjects retrieves all subjects of the given type, or every subject
// if subjectType is empty.
func (db *DB) GetAllSubjects(subjectType agg.SubjectType) ([]Subject, error) {
	query := `
		SELECT id, subject_type, filename, media_url,
			clip_start_time, clip_end_time, frame_number, movie_id,
			workflow_id, created_on
		FROM subjects
	`
	var args []interface{}
	if subjectType != "" {
		query += ` WHERE subject_type = ?`
		args = append(args, string(subjectType))
	}
	query += ` ORDER BY id ASC`

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		var st string
		err := rows.Scan(
			&s.ID,
			&st,
			&s.Filename,
			&s.MediaURL,
			&s.ClipStartTime,
			&s.ClipEndTime,
			&s.FrameNumber,
			&s.MovieID,
			&s.WorkflowID,
			&s.CreatedOn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		s.Type = agg.SubjectType(st)
		subjects = append(subjects, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}

	return subjects, nil
}

// CountSubjects returns the number of stored subjects.
func (db *DB) CountSubjects() (int, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subjects: %w", err)
	}
	return count, nil
}

// DeleteSubject deletes a subject from the database
func (db *DB) DeleteSubject(id int64) error {
	result, err := db.DB.Exec("DELETE FROM subjects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("subject not found")
	}

	return nil
}

// DuplicateClip is a group of clip subjects cut from the same movie at the
// same start time, usually the result of a re-upload.
type DuplicateClip struct {
	MovieID       int64   `json:"movie_id"`
	ClipStartTime float64 `json:"clip_start_time"`
	SubjectIDs    []int64 `json:"subject_ids"`
}

// DuplicateClips finds clip subjects sharing a (movie, start time) slot.
func (db *DB) DuplicateClips() ([]DuplicateClip, error) {
	query := `
		SELECT movie_id, clip_start_time, GROUP_CONCAT(id)
		FROM subjects
		WHERE subject_type = 'clip'
			AND movie_id IS NOT NULL
			AND clip_start_time IS NOT NULL
		GROUP BY movie_id, clip_start_time
		HAVING COUNT(*) > 1
		ORDER BY movie_id ASC, clip_start_time ASC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate clips: %w", err)
	}
	defer rows.Close()

	var dups []DuplicateClip
	for rows.Next() {
		var d DuplicateClip
		var ids string
		if err := rows.Scan(&d.MovieID, &d.ClipStartTime, &ids); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate clip: %w", err)
		}
		for _, part := range strings.Split(ids, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse subject id %q: %w", part, err)
			}
			d.SubjectIDs = append(d.SubjectIDs, id)
		}
		dups = append(dups, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duplicate clips: %w", err)
	}

	return dups, nil
}
