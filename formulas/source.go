package formulas

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// RowSource supplies the raw rows of the formula table.
// Implementations only read; building and validation happen in Load.
type RowSource interface {
	Rows(ctx context.Context) ([]Row, error)
}

// CSVSource reads the formula table from a CSV file with a header row
type CSVSource struct {
	Path string
}

// NewCSVSource creates a RowSource for the CSV file at path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Rows opens and parses the CSV file
func (s *CSVSource) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open formula file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses CSV text into rows keyed by the header names.
// A leading UTF-8 byte order mark is ignored.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &DataIntegrityError{Reason: "formula file is empty"}
	}
	if err != nil {
		return nil, &DataIntegrityError{Reason: "unreadable header", Err: err}
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DataIntegrityError{Row: len(rows) + 1, Reason: "unreadable record", Err: err}
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteCSV writes rows with the canonical column order and a header row
func WriteCSV(w io.Writer, rows []Row) error {
	cols := AllColumns()
	cw := csv.NewWriter(w)

	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// StaticSource serves a fixed set of rows, mostly useful in tests and tools
type StaticSource []Row

// Rows returns the rows unchanged
func (s StaticSource) Rows(ctx context.Context) ([]Row, error) {
	return s, ctx.Err()
}
