// internal/ingest/csv.go
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"icfes-recommender/internal/recommendation"
)

// DefaultIDColumns are tried in order when Options.IDColumn is empty.
var DefaultIDColumns = []string{"estudiante_id", "ESTU_CONSECUTIVO", "id"}

type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// IDColumn names the column holding the student id. When empty the
	// first of DefaultIDColumns present in the header is used, if any.
	IDColumn string
}

// Cohort is a parsed score file.
type Cohort struct {
	Rows []recommendation.Row
	// ScoreColumns lists the PUNT_* columns found in the header.
	ScoreColumns []string
	// MissingAreas lists the areas with no column in the file. Every row
	// lacks them and will fail recommendation.
	MissingAreas []recommendation.Area
}

// ReadCSV parses a cohort file. Cells of PUNT_* columns that are empty,
// NaN or not numeric count as 0, as do cells of rows shorter than the
// header.
// Columns that contain PUNT_ but are not one of the five areas are kept
// in ScoreColumns and otherwise ignored.
func ReadCSV(r io.Reader, opts Options) (*Cohort, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	areaCols := map[recommendation.Area]int{}
	cohort := &Cohort{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if strings.Contains(name, "PUNT_") {
			cohort.ScoreColumns = append(cohort.ScoreColumns, name)
			if a, ok := recommendation.AreaFromColumn(name); ok {
				areaCols[a] = i
			}
		}
	}
	idCol := findIDColumn(header, opts.IDColumn)
	if opts.IDColumn != "" && idCol < 0 {
		return nil, fmt.Errorf("id column %q not found in header", opts.IDColumn)
	}
	for _, a := range recommendation.Areas {
		if _, ok := areaCols[a]; !ok {
			cohort.MissingAreas = append(cohort.MissingAreas, a)
		}
	}

	for index := 0; ; index++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", index, err)
		}

		row := recommendation.Row{
			Index:  index,
			Scores: make(recommendation.ScoreRecord, len(areaCols)),
		}
		if idCol >= 0 && idCol < len(record) {
			row.StudentID = strings.TrimSpace(record[idCol])
		}
		for a, col := range areaCols {
			row.Scores[a] = parseScore(record, col)
		}
		cohort.Rows = append(cohort.Rows, row)
	}

	return cohort, nil
}

func findIDColumn(header []string, name string) int {
	candidates := DefaultIDColumns
	if name != "" {
		candidates = []string{name}
	}
	for _, c := range candidates {
		for i, h := range header {
			if h == c {
				return i
			}
		}
	}
	return -1
}

func parseScore(record []string, col int) float64 {
	if col >= len(record) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}
