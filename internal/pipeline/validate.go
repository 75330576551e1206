package pipeline

import (
	"fmt"
	"strings"
)

// validateRecord checks one data row against the header and coerces its
// cells. Short rows are padded with missing cells; long rows are rejected.
func validateRecord(header, record []string) ([]string, error) {
	if len(record) > len(header) {
		return nil, fmt.Errorf("expected %d fields, saw %d", len(header), len(record))
	}
	row := make([]string, len(header))
	for j, cell := range record {
		v, err := CoerceValue(header[j], cell)
		if err != nil {
			return nil, err
		}
		row[j] = v
	}
	return row, nil
}

// cleanHeader strips the BOM and surrounding whitespace, names blank
// columns "Unnamed: i" and renames repeats to name.1, name.2, ...
func cleanHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}

		col := h
		if n, ok := seen[h]; ok {
			for {
				n++
				col = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[col]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[col] = 0
		header[i] = col
	}
	return header
}
