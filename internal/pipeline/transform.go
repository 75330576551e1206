package pipeline

import (
	"fmt"
	"strconv"

	"go-archive-merger/pkg/utils"
)

// numericColumns are coerced to integers; everything else is text.
var numericColumns = map[string]bool{
	"runs_off_bat": true,
	"extras":       true,
	"wides":        true,
	"noballs":      true,
	"byes":         true,
	"legbyes":      true,
	"penalty":      true,
}

// naValues are the cell values read as missing.
var naValues = map[string]bool{
	"":         true,
	"NA":       true,
	"N/A":      true,
	"n/a":      true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"NaN":      true,
	"-NaN":     true,
	"nan":      true,
	"-nan":     true,
	"null":     true,
	"NULL":     true,
	"None":     true,
	"<NA>":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
}

func IsNumericColumn(col string) bool { return numericColumns[col] }

// IsMissing reports whether a raw cell value stands for a missing value.
func IsMissing(v string) bool { return naValues[v] }

// MissingValue is the fill value for an absent or missing cell of col.
func MissingValue(col string) string {
	if IsNumericColumn(col) {
		return "0"
	}
	return ""
}

// CoerceValue normalizes one parsed cell. Missing cells become "" and are
// filled later by FillMissing; numeric columns are rendered as integers.
func CoerceValue(col, v string) (string, error) {
	if IsMissing(v) {
		return "", nil
	}
	if !IsNumericColumn(col) {
		return v, nil
	}
	n, err := utils.ParseInt(v)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", col, err)
	}
	return strconv.FormatInt(n, 10), nil
}

// ------------------- Schema -------------------

// Schema is an ordered set of column names in first-seen order.
type Schema struct {
	columns []string
	index   map[string]int
}

func NewSchema(columns ...string) *Schema {
	s := &Schema{index: make(map[string]int)}
	s.Add(columns...)
	return s
}

// Add appends the columns not yet present and returns them.
func (s *Schema) Add(columns ...string) []string {
	var added []string
	for _, c := range columns {
		if _, ok := s.index[c]; ok {
			continue
		}
		s.index[c] = len(s.columns)
		s.columns = append(s.columns, c)
		added = append(added, c)
	}
	return added
}

func (s *Schema) Index(col string) (int, bool) {
	i, ok := s.index[col]
	return i, ok
}

func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the column names.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// ------------------- Row sets -------------------

// RowSet is the table parsed from one entry, or the concatenation of several.
type RowSet struct {
	Source  string
	Columns []string
	Rows    [][]string
}

// Concat joins row sets by column name. Columns are the outer union in
// first-seen order; rows keep input order and absent cells are "".
func Concat(sets ...RowSet) RowSet {
	schema := NewSchema()
	total := 0
	for _, rs := range sets {
		schema.Add(rs.Columns...)
		total += len(rs.Rows)
	}

	out := RowSet{Columns: schema.Columns(), Rows: make([][]string, 0, total)}
	for _, rs := range sets {
		positions := make([]int, len(rs.Columns))
		for i, c := range rs.Columns {
			positions[i], _ = schema.Index(c)
		}
		for _, row := range rs.Rows {
			aligned := make([]string, schema.Len())
			for i, v := range row {
				if i < len(positions) {
					aligned[positions[i]] = v
				}
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out
}

// FillMissing replaces empty cells with their column's missing value.
func FillMissing(rs *RowSet) {
	for j, col := range rs.Columns {
		fill := MissingValue(col)
		if fill == "" {
			continue
		}
		for _, row := range rs.Rows {
			if j < len(row) && row[j] == "" {
				row[j] = fill
			}
		}
	}
}
