package db

import (
	"database/sql"
	"fmt"
)

// Movie represents one source recording, usually a deployment video that
// clips and frames were cut from.
type Movie struct {
	ID            int64    `json:"id"`
	SiteID        *int64   `json:"site_id"`
	Filename      string   `json:"filename"`
	Fpath         string   `json:"fpath"`
	Duration      *float64 `json:"duration"`
	SamplingStart *float64 `json:"sampling_start"`
	SamplingEnd   *float64 `json:"sampling_end"`
	CreatedOn     *string  `json:"created_on"`
}

// CreateMovie creates a new movie in the database
func (db *DB) CreateMovie(movie *Movie) error {
	query := `
		INSERT INTO movies (site_id, filename, fpath, duration, sampling_start, sampling_end, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.DB.Exec(
		query,
		movie.SiteID,
		movie.Filename,
		movie.Fpath,
		movie.Duration,
		movie.SamplingStart,
		movie.SamplingEnd,
		movie.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to create movie: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	movie.ID = id
	return nil
}

// GetMovie retrieves a movie by ID
func (db *DB) GetMovie(id int64) (*Movie, error) {
	query := `
		SELECT id, site_id, filename, fpath, duration, sampling_start, sampling_end, created_on
		FROM movies
		WHERE id = ?
	`

	var movie Movie
	err := db.DB.QueryRow(query, id).Scan(
		&movie.ID,
		&movie.SiteID,
		&movie.Filename,
		&movie.Fpath,
		&movie.Duration,
		&movie.SamplingStart,
		&movie.SamplingEnd,
		&movie.CreatedOn,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movie not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	return &movie, nil
}

// GetAllMovies retrieves all movies ordered by filename
func (db *DB) GetAllMovies() ([]Movie, error) {
	query := `
		SELECT id, site_id, filename, fpath, duration, sampling_start, sampling_end, created_on
		FROM movies
		ORDER BY filename ASC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		var movie Movie
		err := rows.Scan(
			&movie.ID,
			&movie.SiteID,
			&movie.Filename,
			&movie.Fpath,
			&movie.Duration,
			&movie.SamplingStart,
			&movie.SamplingEnd,
			&movie.CreatedOn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, movie)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movies: %w", err)
	}

	return movies, nil
}

// UpdateMovie updates an existing movie in the database
func (db *DB) UpdateMovie(movie *Movie) error {
	query := `
		UPDATE movies SET
			site_id = ?,
			filename = ?,
			fpath = ?,
			duration = ?,
			sampling_start = ?,
			sampling_end = ?,
			created_on = ?
		WHERE id = ?
	`

	result, err := db.DB.Exec(
		query,
		movie.SiteID,
		movie.Filename,
		movie.Fpath,
		movie.Duration,
		movie.SamplingStart,
		movie.SamplingEnd,
		movie.CreatedOn,
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update movie: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("movie not found")
	}

	return nil
}

// DeleteMovie deletes a movie from the database
func (db *DB) DeleteMovie(id int64) error {
	query := `DELETE FROM movies WHERE id = ?`

	result, err := db.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("movie not found")
	}

	return nil
}
