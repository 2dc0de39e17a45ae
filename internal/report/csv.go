// Package report renders aggregation run outputs: CSV tables for
// spreadsheets, echarts HTML for quick inspection, and PNG scatter plots of
// consensus boxes. Everything is derived from an agg result; nothing here
// touches the store.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benthic-data/consensus.report/internal/agg"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBox(b *agg.Box) []string {
	if b == nil {
		return []string{"", "", "", ""}
	}
	return []string{formatFloat(b.X), formatFloat(b.Y), formatFloat(b.W), formatFloat(b.H)}
}

func formatRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ";")
}

// WriteFrameCSV writes the aggregated frame table. Empty-frame consensus
// rows have blank box columns.
func WriteFrameCSV(w io.Writer, rows []agg.FrameAggregate) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"subject_id", "subject_type", "filename", "https_location", "frame_number", "label", "x", "y", "w", "h", "rows"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		frame := ""
		if r.FrameNumber != nil {
			frame = strconv.Itoa(*r.FrameNumber)
		}
		record := []string{
			strconv.FormatInt(r.SubjectID, 10),
			string(r.SubjectType),
			r.Filename,
			r.MediaURL,
			frame,
			r.Label,
		}
		record = append(record, formatBox(r.Box)...)
		record = append(record, formatRows(r.Rows))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFrameRawCSV writes the flattened audit table. The row column is the
// index referenced by the aggregated table's rows column.
func WriteFrameRawCSV(w io.Writer, raw []agg.FrameAnnotation) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"row", "classification_id", "subject_id", "user_name", "label", "x", "y", "w", "h", "frame_number", "filename", "https_location"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range raw {
		frame := ""
		if r.FrameNumber != nil {
			frame = strconv.Itoa(*r.FrameNumber)
		}
		record := []string{
			strconv.Itoa(i),
			strconv.FormatInt(r.ClassificationID, 10),
			strconv.FormatInt(r.SubjectID, 10),
			r.UserName,
			r.Label,
		}
		record = append(record, formatBox(r.Box)...)
		record = append(record, frame, r.Filename, r.MediaURL)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteClipCSV writes the aggregated clip table.
func WriteClipCSV(w io.Writer, rows []agg.ClipAggregate) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"subject_id", "subject_type", "https_location", "label", "how_many", "first_seen"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.SubjectID, 10),
			string(r.SubjectType),
			r.MediaURL,
			r.Label,
			formatFloat(r.HowMany),
			formatFloat(r.FirstSeen),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteClipRawCSV writes the flattened clip audit table.
func WriteClipRawCSV(w io.Writer, raw []agg.ClipAnnotation) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"row", "classification_id", "subject_id", "user_name", "label", "first_seen", "how_many", "https_location"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range raw {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatInt(r.ClassificationID, 10),
			strconv.FormatInt(r.SubjectID, 10),
			r.UserName,
			r.Label,
			formatFloat(r.FirstSeen),
			formatFloat(r.HowMany),
			r.MediaURL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// rawSibling derives the audit table path from the aggregated table path.
func rawSibling(path string) string {
	return strings.TrimSuffix(path, ".csv") + "-raw.csv"
}

// WriteFrameResultFiles writes the aggregated table to path and the raw
// audit table alongside it with a -raw.csv suffix.
func WriteFrameResultFiles(path string, res *agg.FrameResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteFrameCSV(f, res.Rows); err != nil {
		return err
	}

	rawPath := rawSibling(path)
	fRaw, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rawPath, err)
	}
	defer fRaw.Close()
	return WriteFrameRawCSV(fRaw, res.Raw)
}

// WriteClipResultFiles writes the aggregated table to path and the raw
// audit table alongside it with a -raw.csv suffix.
func WriteClipResultFiles(path string, res *agg.ClipResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteClipCSV(f, res.Rows); err != nil {
		return err
	}

	rawPath := rawSibling(path)
	fRaw, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rawPath, err)
	}
	defer fRaw.Close()
	return WriteClipRawCSV(fRaw, res.Raw)
}
