// Package ingest loads Zooniverse classification export files into the
// store. An export is a CSV with one classification per row; only rows for
// the configured workflow at or above the minimum version are kept.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/benthic-data/consensus.report/internal/db"
)

// Options selects which classifications of an export to ingest.
type Options struct {
	WorkflowID int64
	MinVersion float64
}

// Result summarises one ingest pass over an export file.
type Result struct {
	Read       int // data rows in the file
	Inserted   int // new classifications stored
	Duplicates int // classifications already present
	Skipped    int // rows for other workflows or older versions
}

// exportColumns are the header names the importer needs. Zooniverse exports
// carry more columns; extras are ignored.
var exportColumns = []string{
	"classification_id",
	"user_name",
	"workflow_id",
	"workflow_version",
	"created_at",
	"annotations",
	"subject_ids",
}

// ImportExportCSV reads a classification export and stores the matching
// rows. Re-running over the same file only counts duplicates.
func ImportExportCSV(store *db.DB, path string, opts Options) (*Result, error) {
	if opts.WorkflowID == 0 {
		return nil, fmt.Errorf("workflow id required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read export header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range exportColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("export is missing required column %q", name)
		}
	}

	res := &Result{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("failed to read export: %w", err)
		}
		line++
		res.Read++

		field := func(name string) string {
			return strings.TrimSpace(record[columns[name]])
		}

		workflowID, err := strconv.ParseInt(field("workflow_id"), 10, 64)
		if err != nil {
			return res, fmt.Errorf("line %d: workflow_id: %w", line, err)
		}
		version, err := strconv.ParseFloat(field("workflow_version"), 64)
		if err != nil {
			return res, fmt.Errorf("line %d: workflow_version: %w", line, err)
		}
		if workflowID != opts.WorkflowID || version < opts.MinVersion {
			res.Skipped++
			continue
		}

		id, err := strconv.ParseInt(field("classification_id"), 10, 64)
		if err != nil {
			return res, fmt.Errorf("line %d: classification_id: %w", line, err)
		}
		subjectID, err := parseSubjectID(field("subject_ids"))
		if err != nil {
			return res, fmt.Errorf("line %d: subject_ids: %w", line, err)
		}

		c := &agg.Classification{
			ID:              id,
			UserName:        field("user_name"),
			WorkflowID:      workflowID,
			WorkflowVersion: version,
			SubjectID:       subjectID,
			CreatedAt:       field("created_at"),
			Annotations:     field("annotations"),
		}
		inserted, err := store.InsertClassification(c)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Duplicates++
		}
	}
}

// parseSubjectID accepts the subject_ids column as a bare id or a
// single-element JSON-ish list like [12345].
func parseSubjectID(v string) (int64, error) {
	v = strings.Trim(v, "[]\" ")
	if i := strings.IndexAny(v, ",;"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if v == "" {
		return 0, fmt.Errorf("empty subject id")
	}
	return strconv.ParseInt(v, 10, 64)
}
