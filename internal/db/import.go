package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/benthic-data/consensus.report/internal/media"
)

// The importers load the catalogue CSVs (sites, movies, species, subjects)
// that the rest of the system joins against. Required columns must be
// present and non-null in every row; a single bad row fails the whole
// import so a half-loaded catalogue never goes unnoticed.

// isNullField reports whether a CSV value is one of the usual null spellings.
func isNullField(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "na", "nan", "none":
		return true
	}
	return false
}

type csvTable struct {
	columns map[string]int
	reader  *csv.Reader
	path    string
	line    int
}

func openCSV(path string, required ...string) (*csvTable, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			f.Close()
			return nil, nil, fmt.Errorf("%s is missing required column %q", path, name)
		}
	}

	return &csvTable{columns: columns, reader: r, path: path, line: 1}, f, nil
}

// next returns the following record, or nil at end of input.
func (t *csvTable) next() ([]string, error) {
	record, err := t.reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.path, err)
	}
	t.line++
	return record, nil
}

// field returns the named column of the record, or "" when the column does
// not exist in this file.
func (t *csvTable) field(record []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// require returns the named column of the record, rejecting null values.
func (t *csvTable) require(record []string, name string) (string, error) {
	v := t.field(record, name)
	if isNullField(v) {
		return "", fmt.Errorf("%s line %d: column %q is null", t.path, t.line, name)
	}
	return v, nil
}

func (t *csvTable) optFloat(record []string, name string) (*float64, error) {
	v := t.field(record, name)
	if isNullField(v) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s line %d: column %q: %w", t.path, t.line, name, err)
	}
	return &f, nil
}

func (t *csvTable) optInt(record []string, name string) (*int64, error) {
	v := t.field(record, name)
	if isNullField(v) {
		return nil, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s line %d: column %q: %w", t.path, t.line, name, err)
	}
	return &i, nil
}

func (t *csvTable) optString(record []string, name string) *string {
	v := t.field(record, name)
	if isNullField(v) {
		return nil
	}
	return &v
}

// ImportSitesCSV loads survey sites from a CSV with at least a name column.
// Returns the number of sites created.
func (db *DB) ImportSitesCSV(path string) (int, error) {
	table, f, err := openCSV(path, "name")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	for {
		record, err := table.next()
		if err != nil {
			return count, err
		}
		if record == nil {
			return count, nil
		}

		name, err := table.require(record, "name")
		if err != nil {
			return count, err
		}
		lat, err := table.optFloat(record, "latitude")
		if err != nil {
			return count, err
		}
		lon, err := table.optFloat(record, "longitude")
		if err != nil {
			return count, err
		}

		site := &Site{
			Name:      name,
			Location:  table.field(record, "location"),
			Latitude:  lat,
			Longitude: lon,
			Notes:     table.optString(record, "notes"),
		}
		if err := db.CreateSite(site); err != nil {
			return count, fmt.Errorf("%s line %d: %w", path, table.line, err)
		}
		count++
	}
}

// ImportMoviesCSV loads movies from a CSV with at least a filename column.
// A site_name column, when present, is resolved against the sites table.
func (db *DB) ImportMoviesCSV(path string) (int, error) {
	table, f, err := openCSV(path, "filename")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	for {
		record, err := table.next()
		if err != nil {
			return count, err
		}
		if record == nil {
			return count, nil
		}

		filename, err := table.require(record, "filename")
		if err != nil {
			return count, err
		}
		if !media.HasMovieExtension(filename) {
			return count, fmt.Errorf("%s line %d: movie %q: extension must be one of %s",
				path, table.line, filename, media.GetMovieExtensionsString())
		}
		duration, err := table.optFloat(record, "duration")
		if err != nil {
			return count, err
		}
		samplingStart, err := table.optFloat(record, "sampling_start")
		if err != nil {
			return count, err
		}
		samplingEnd, err := table.optFloat(record, "sampling_end")
		if err != nil {
			return count, err
		}

		// Fill missing sampling bounds from the movie duration.
		if duration != nil {
			s := media.DefaultSampling(samplingStart, samplingEnd, *duration)
			if err := s.Check(*duration); err != nil {
				return count, fmt.Errorf("%s line %d: movie %q: %w", path, table.line, filename, err)
			}
			samplingStart, samplingEnd = &s.Start, &s.End
		}

		var siteID *int64
		if siteName := table.field(record, "site_name"); !isNullField(siteName) {
			site, err := db.GetSiteByName(siteName)
			if err != nil {
				return count, fmt.Errorf("%s line %d: site %q: %w", path, table.line, siteName, err)
			}
			siteID = &site.ID
		}

		movie := &Movie{
			SiteID:        siteID,
			Filename:      filename,
			Fpath:         table.field(record, "fpath"),
			Duration:      duration,
			SamplingStart: samplingStart,
			SamplingEnd:   samplingEnd,
			CreatedOn:     table.optString(record, "created_on"),
		}
		if err := db.CreateMovie(movie); err != nil {
			return count, fmt.Errorf("%s line %d: %w", path, table.line, err)
		}
		count++
	}
}

// ImportSpeciesCSV loads the label vocabulary from a CSV with at least a
// label column.
func (db *DB) ImportSpeciesCSV(path string) (int, error) {
	table, f, err := openCSV(path, "label")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	for {
		record, err := table.next()
		if err != nil {
			return count, err
		}
		if record == nil {
			return count, nil
		}

		label, err := table.require(record, "label")
		if err != nil {
			return count, err
		}

		sp := &Species{
			Label:          label,
			ScientificName: table.optString(record, "scientific_name"),
		}
		if err := db.CreateSpecies(sp); err != nil {
			return count, fmt.Errorf("%s line %d: %w", path, table.line, err)
		}
		count++
	}
}

// ImportSubjectsCSV loads subjects from a CSV with id and subject_type
// columns. Clip subjects must carry clip_start_time; frame subjects must
// carry frame_number.
func (db *DB) ImportSubjectsCSV(path string) (int, error) {
	table, f, err := openCSV(path, "id", "subject_type")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	for {
		record, err := table.next()
		if err != nil {
			return count, err
		}
		if record == nil {
			return count, nil
		}

		idField, err := table.require(record, "id")
		if err != nil {
			return count, err
		}
		id, err := strconv.ParseInt(idField, 10, 64)
		if err != nil {
			return count, fmt.Errorf("%s line %d: column \"id\": %w", path, table.line, err)
		}

		typeField, err := table.require(record, "subject_type")
		if err != nil {
			return count, err
		}
		subjectType := agg.SubjectType(typeField)

		clipStart, err := table.optFloat(record, "clip_start_time")
		if err != nil {
			return count, err
		}
		clipEnd, err := table.optFloat(record, "clip_end_time")
		if err != nil {
			return count, err
		}
		movieID, err := table.optInt(record, "movie_id")
		if err != nil {
			return count, err
		}
		workflowID, err := table.optInt(record, "workflow_id")
		if err != nil {
			return count, err
		}

		var frameNumber *int
		switch subjectType {
		case agg.SubjectClip:
			if clipStart == nil {
				return count, fmt.Errorf("%s line %d: clip subject %d has no clip_start_time", path, table.line, id)
			}
		case agg.SubjectFrame:
			frameField, err := table.require(record, "frame_number")
			if err != nil {
				return count, err
			}
			fn, err := strconv.Atoi(frameField)
			if err != nil {
				return count, fmt.Errorf("%s line %d: column \"frame_number\": %w", path, table.line, err)
			}
			frameNumber = &fn
		default:
			return count, fmt.Errorf("%s line %d: unknown subject_type %q", path, table.line, typeField)
		}

		subject := &Subject{
			Subject: agg.Subject{
				ID:            id,
				Type:          subjectType,
				Filename:      table.field(record, "filename"),
				MediaURL:      table.field(record, "media_url"),
				ClipStartTime: clipStart,
				ClipEndTime:   clipEnd,
				FrameNumber:   frameNumber,
				MovieID:       movieID,
			},
			WorkflowID: workflowID,
			CreatedOn:  table.optString(record, "created_on"),
		}
		if err := db.CreateSubject(subject); err != nil {
			return count, fmt.Errorf("%s line %d: %w", path, table.line, err)
		}
		count++
	}
}
