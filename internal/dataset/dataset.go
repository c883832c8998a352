// Package dataset reads the exported activity and stream tables.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrMissingInput is returned when an input table does not exist
var ErrMissingInput = errors.New("input table not found")

// openTable opens a CSV file, mapping a missing file to ErrMissingInput
func openTable(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// readTable reads the header and calls fn for every record.
// line is the 1-based line of the record in the file.
func readTable(r io.Reader, required []string, fn func(h header, record []string, line int) error) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("empty table: missing header")
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	h := newHeader(first)
	for _, col := range required {
		if !h.has(col) {
			return fmt.Errorf("missing required column %q", col)
		}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		if err := fn(h, record, line); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
