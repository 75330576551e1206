package pipeline

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"go-archive-merger/internal/model"
	"go-archive-merger/pkg/utils"
)

// ------------------- Archive -------------------

// Archive is an opened zip holding only its data entries, in archive order.
type Archive struct {
	Path    string
	reader  *zip.ReadCloser
	entries []*zip.File
}

// OpenArchive opens a zip for random access and filters its entries with IsDataEntry.
func OpenArchive(archivePath string) (*Archive, error) {
	// Non-local names are fine: Extract flattens them.
	r, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrArchiveOpen, filepath.Base(archivePath), err)
	}

	a := &Archive{Path: archivePath, reader: r}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !IsDataEntry(f.Name) {
			continue
		}
		a.entries = append(a.entries, f)
	}
	return a, nil
}

// Len returns the number of data entries.
func (a *Archive) Len() int { return len(a.entries) }

// Name returns the name of the i-th data entry.
func (a *Archive) Name(i int) string { return a.entries[i].Name }

// Names yields data entry names in archive order.
func (a *Archive) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range a.entries {
			if !yield(f.Name) {
				return
			}
		}
	}
}

// Extract copies the i-th entry into dir and returns the written path.
// The file name is flattened and prefixed with the index, so entries
// can never escape dir.
func (a *Archive) Extract(i int, dir string) (string, error) {
	if i < 0 || i >= len(a.entries) {
		return "", fmt.Errorf("entry index %d out of range", i)
	}
	f := a.entries[i]

	base := utils.SecureFilename(path.Base(f.Name))
	if base == "" {
		base = "entry"
	}
	dst := filepath.Join(dir, fmt.Sprintf("%05d_%s", i, base))

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open entry: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to extract entry: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to extract entry: %w", err)
	}
	return dst, nil
}

func (a *Archive) Close() error {
	return a.reader.Close()
}

// IsDataEntry reports whether an entry name is data. Any name containing
// "info" or "readme", in any case and anywhere in the path, is not.
func IsDataEntry(name string) bool {
	lower := strings.ToLower(name)
	return !strings.Contains(lower, "info") && !strings.Contains(lower, "readme")
}

// ------------------- Entry parsing -------------------

var errNoColumns = errors.New("no columns to parse from file")

// ParseEntry parses an extracted entry into a row set. name is the entry's
// name inside the archive and selects the format: .xlsx workbooks are read
// from their first sheet, everything else as comma-separated text.
func ParseEntry(filePath, name string) (RowSet, error) {
	var (
		records [][]string
		err     error
	)
	if strings.EqualFold(path.Ext(name), ".xlsx") {
		records, err = readWorkbook(filePath)
	} else {
		records, err = readDelimited(filePath)
	}
	if err != nil {
		return RowSet{}, err
	}
	return buildRowSet(name, records)
}

func readDelimited(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		records = append(records, record)
	}
}

func readWorkbook(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoColumns
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	// GetRows keeps blank rows as empty slices
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			records = append(records, row)
		}
	}
	return records, nil
}

func buildRowSet(name string, records [][]string) (RowSet, error) {
	if len(records) == 0 {
		return RowSet{}, errNoColumns
	}

	header := cleanHeader(records[0])
	rs := RowSet{Source: name, Columns: header, Rows: make([][]string, 0, len(records)-1)}

	for n, record := range records[1:] {
		line := n + 2
		row, err := validateRecord(header, record)
		if err != nil {
			return RowSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}
