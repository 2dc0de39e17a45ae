package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Site represents a survey site where movies were recorded.
type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSite creates a new site in the database
func (db *DB) CreateSite(site *Site) error {
	query := `
		INSERT INTO sites (name, location, latitude, longitude, notes)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.DB.Exec(
		query,
		site.Name,
		site.Location,
		site.Latitude,
		site.Longitude,
		site.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	site.ID = id
	return nil
}

// GetSite retrieves a site by ID
func (db *DB) GetSite(id int64) (*Site, error) {
	query := `
		SELECT id, name, location, latitude, longitude, notes, created_at
		FROM sites
		WHERE id = ?
	`

	var site Site
	var createdAtUnix int64

	err := db.DB.QueryRow(query, id).Scan(
		&site.ID,
		&site.Name,
		&site.Location,
		&site.Latitude,
		&site.Longitude,
		&site.Notes,
		&createdAtUnix,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	site.CreatedAt = time.Unix(createdAtUnix, 0)

	return &site, nil
}

// GetSiteByName retrieves a site by its unique name
func (db *DB) GetSiteByName(name string) (*Site, error) {
	query := `
		SELECT id, name, location, latitude, longitude, notes, created_at
		FROM sites
		WHERE name = ?
	`

	var site Site
	var createdAtUnix int64

	err := db.DB.QueryRow(query, name).Scan(
		&site.ID,
		&site.Name,
		&site.Location,
		&site.Latitude,
		&site.Longitude,
		&site.Notes,
		&createdAtUnix,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	site.CreatedAt = time.Unix(createdAtUnix, 0)

	return &site, nil
}

// GetAllSites retrieves all sites from the database
func (db *DB) GetAllSites() ([]Site, error) {
	query := `
		SELECT id, name, location, latitude, longitude, notes, created_at
		FROM sites
		ORDER BY name ASC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var site Site
		var createdAtUnix int64

		err := rows.Scan(
			&site.ID,
			&site.Name,
			&site.Location,
			&site.Latitude,
			&site.Longitude,
			&site.Notes,
			&createdAtUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}

		site.CreatedAt = time.Unix(createdAtUnix, 0)

		sites = append(sites, site)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}

// UpdateSite updates an existing site in the database
func (db *DB) UpdateSite(site *Site) error {
	query := `
		UPDATE sites SET
			name = ?,
			location = ?,
			latitude = ?,
			longitude = ?,
			notes = ?
		WHERE id = ?
	`

	result, err := db.DB.Exec(
		query,
		site.Name,
		site.Location,
		site.Latitude,
		site.Longitude,
		site.Notes,
		site.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("site not found")
	}

	return nil
}

// DeleteSite deletes a site from the database
func (db *DB) DeleteSite(id int64) error {
	query := `DELETE FROM sites WHERE id = ?`

	result, err := db.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("site not found")
	}

	return nil
}
