package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"go-archive-merger/internal/model"
)

// Delimiter separates output fields.
const Delimiter = '|'

// Sink is the pipe-delimited output file of one job. The header is written by
// the first Append; later Appends add rows only, unless they bring new
// columns, in which case the file is rewritten once with the widened header.
// A Sink has a single writer and is not safe for concurrent use.
type Sink struct {
	path    string
	schema  *Schema
	rows    int
	written bool
}

func NewSink(path string) *Sink {
	return &Sink{path: path, schema: NewSchema()}
}

func (s *Sink) Path() string { return s.path }

// Columns returns the header as currently written.
func (s *Sink) Columns() []string { return s.schema.Columns() }

// Rows returns the number of data rows written so far.
func (s *Sink) Rows() int { return s.rows }

// Append writes rs to the file and syncs it. Rows are aligned to the header;
// columns rs does not carry get their missing value.
func (s *Sink) Append(rs RowSet) error {
	added := s.schema.Add(rs.Columns...)

	switch {
	case !s.written:
		if err := s.create(rs); err != nil {
			return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
		}
		s.written = true
	case len(added) > 0:
		if err := s.widen(rs); err != nil {
			return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
		}
	default:
		if err := s.append(rs); err != nil {
			return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
		}
	}
	s.rows += len(rs.Rows)
	return nil
}

// Finalize makes sure the output file exists, so a job without data still
// has a downloadable (empty) result.
func (s *Sink) Finalize() error {
	if s.written {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
	}
	s.written = true
	return nil
}

func (s *Sink) create(rs RowSet) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	rw := s.newRowWriter(f)
	if err := rw.header(); err != nil {
		f.Close()
		return err
	}
	if err := rw.writeSet(rs); err != nil {
		f.Close()
		return err
	}
	return syncClose(f)
}

func (s *Sink) append(rs RowSet) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	if err := s.newRowWriter(f).writeSet(rs); err != nil {
		f.Close()
		return err
	}
	return syncClose(f)
}

// widen streams the existing rows into a temp file under the grown header,
// appends rs and renames the temp file into place.
func (s *Sink) widen(rs RowSet) error {
	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer src.Close()

	reader := csv.NewReader(src)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	oldHeader, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read output header: %w", err)
	}
	oldHeader = slices.Clone(oldHeader)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".widen-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.rewrite(tmp, reader, oldHeader, rs); err != nil {
		tmp.Close()
		return err
	}
	if err := syncClose(tmp); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}

// rewrite copies the remaining records of reader one at a time, then rs.
func (s *Sink) rewrite(w io.Writer, reader *csv.Reader, oldHeader []string, rs RowSet) error {
	rw := s.newRowWriter(w)
	if err := rw.header(); err != nil {
		return err
	}
	positions := rw.positions(oldHeader)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read output file: %w", err)
		}
		if err := rw.write(positions, record); err != nil {
			return err
		}
	}
	return rw.writeSet(rs)
}

// rowWriter writes records aligned to the sink schema.
type rowWriter struct {
	cw      *csv.Writer
	w       io.Writer
	columns []string
	record  []string
}

func (s *Sink) newRowWriter(w io.Writer) *rowWriter {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	columns := s.schema.Columns()
	return &rowWriter{cw: cw, w: w, columns: columns, record: make([]string, len(columns))}
}

func (rw *rowWriter) header() error {
	if err := rw.cw.Write(rw.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// positions maps each schema column to its index in setColumns, or -1.
func (rw *rowWriter) positions(setColumns []string) []int {
	positions := make([]int, len(rw.columns))
	for j, col := range rw.columns {
		positions[j] = slices.Index(setColumns, col)
	}
	return positions
}

func (rw *rowWriter) write(positions []int, row []string) error {
	for j, col := range rw.columns {
		if k := positions[j]; k >= 0 && k < len(row) {
			rw.record[j] = row[k]
		} else {
			rw.record[j] = MissingValue(col)
		}
	}
	return writeRecord(rw.cw, rw.w, rw.record)
}

// writeSet writes every row of rs and flushes.
func (rw *rowWriter) writeSet(rs RowSet) error {
	positions := rw.positions(rs.Columns)
	for _, row := range rs.Rows {
		if err := rw.write(positions, row); err != nil {
			return err
		}
	}
	rw.cw.Flush()
	if err := rw.cw.Error(); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// writeRecord writes one record. A lone empty field is written as "" because
// the csv writer would emit a blank line, which readers skip.
func writeRecord(cw *csv.Writer, w io.Writer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		if _, err := io.WriteString(w, "\"\"\n"); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		return nil
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

func syncClose(f *os.File) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
