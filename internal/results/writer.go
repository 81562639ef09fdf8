package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
)

// EnsureAbsent fails with ErrDestinationExists if anything is present at path.
func EnsureAbsent(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDestinationExists, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to stat result destination %s: %w", path, err)
	}
}

// Writer streams rows into a freshly created result file. Each row is flushed as soon
// as it is written so a sequential scan leaves its progress visible on disk.
type Writer struct {
	path string
	m    int
	file *os.File
	csv  *csv.Writer
}

// Create opens path exclusively and writes the header. An existing file is never
// truncated.
func Create(path string, m int) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return nil, fmt.Errorf("failed to create result file %s: %w", path, err)
	}

	w := &Writer{path: path, m: m, file: f, csv: csv.NewWriter(f)}
	if err := w.write(Header(m)); err != nil {
		_ = w.Abort()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Path() string {
	return w.path
}

// WriteRow appends one grid point.
func (w *Writer) WriteRow(r Row) error {
	if len(r.Members) != w.m {
		return fmt.Errorf("%w: %d members, want %d", ErrMalformedRow, len(r.Members), w.m)
	}
	return w.write(r.Record())
}

func (w *Writer) write(rec []string) error {
	if err := w.csv.Write(rec); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush result row: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to flush result file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close result file: %w", err)
	}
	return nil
}

// Abort closes and removes the partially written file.
func (w *Writer) Abort() error {
	_ = w.file.Close()
	if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove partial result file: %w", err)
	}
	log.Warn().Str("path", w.path).Msg("removed partial result file")
	return nil
}

// Write stores a complete result set at path in one go.
func Write(path string, m int, rows []Row) (err error) {
	w, err := Create(path, m)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = w.Abort()
		}
	}()

	for _, r := range rows {
		if err = w.WriteRow(r); err != nil {
			return err
		}
	}
	return w.Close()
}

// Read parses a result file written by Writer. The subset size is taken from the header.
func Read(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read result header: %w", err)
	}
	m := len(header) - 3
	if m < 1 || header[0] != "alpha" || header[1] != "beta" || header[2] != "min_val" {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedRow, header)
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read result row %d: %w", len(rows)+1, err)
		}
		row, err := ParseRecord(rec, m)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
