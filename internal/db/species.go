package db

import (
	"database/sql"
	"fmt"
)

// Species is one entry of the label vocabulary volunteers choose from.
type Species struct {
	ID             int64   `json:"id"`
	Label          string  `json:"label"`
	ScientificName *string `json:"scientific_name"`
}

// CreateSpecies creates a new species label in the database
func (db *DB) CreateSpecies(sp *Species) error {
	query := `INSERT INTO species (label, scientific_name) VALUES (?, ?)`

	result, err := db.DB.Exec(query, sp.Label, sp.ScientificName)
	if err != nil {
		return fmt.Errorf("failed to create species: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	sp.ID = id
	return nil
}

// GetSpeciesByLabel retrieves a species by its label
func (db *DB) GetSpeciesByLabel(label string) (*Species, error) {
	query := `SELECT id, label, scientific_name FROM species WHERE label = ?`

	var sp Species
	err := db.DB.QueryRow(query, label).Scan(&sp.ID, &sp.Label, &sp.ScientificName)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("species not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get species: %w", err)
	}

	return &sp, nil
}

// GetAllSpecies retrieves the full label vocabulary ordered by label
func (db *DB) GetAllSpecies() ([]Species, error) {
	query := `SELECT id, label, scientific_name FROM species ORDER BY label ASC`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query species: %w", err)
	}
	defer rows.Close()

	var species []Species
	for rows.Next() {
		var sp Species
		if err := rows.Scan(&sp.ID, &sp.Label, &sp.ScientificName); err != nil {
			return nil, fmt.Errorf("failed to scan species: %w", err)
		}
		species = append(species, sp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating species: %w", err)
	}

	return species, nil
}
