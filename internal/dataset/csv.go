// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/rentsense/pkg/types"
)

// Header names recognized for the identifier, display name, and rent
// columns, matched case-insensitively in this order.
var (
	idColumns   = []string{"nta2020", "ntacode", "nta_code", "id"}
	nameColumns = []string{"nta_name", "ntaname", "name"}
	rentColumns = []string{"median_rent", "median_gross_rent_usd"}
)

// LoadCSVFile reads candidates from the scores CSV at path.
func LoadCSVFile(path string) ([]types.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	cands, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return cands, nil
}

// LoadCSV parses a scores table. The identifier is taken from a known id
// column or else the first column; the name falls back to the id. Each
// dimension column that is present becomes a score, clamped to [0,1]. An
// empty cell leaves that dimension absent for the row.
func LoadCSV(r io.Reader) ([]types.Candidate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol := findColumn(header, idColumns)
	if idCol < 0 {
		idCol = 0
	}
	nameCol := findColumn(header, nameColumns)
	rentCol := findColumn(header, rentColumns)

	dimCols := make(map[int]types.Dimension)
	for i, h := range header {
		if d, ok := types.DimensionForColumn(strings.ToLower(strings.TrimSpace(h))); ok {
			dimCols[i] = d
		}
	}
	if len(dimCols) == 0 {
		return nil, fmt.Errorf("no score columns found in header %v", header)
	}

	var cands []types.Candidate
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		c := types.Candidate{
			ID:     strings.TrimSpace(rec[idCol]),
			Scores: make(map[types.Dimension]float64, len(dimCols)),
		}
		if c.ID == "" {
			return nil, fmt.Errorf("line %d: empty id", line)
		}
		c.Name = c.ID
		if nameCol >= 0 && strings.TrimSpace(rec[nameCol]) != "" {
			c.Name = strings.TrimSpace(rec[nameCol])
		}
		if rentCol >= 0 {
			if v, ok, err := parseCell(rec[rentCol]); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, header[rentCol], err)
			} else if ok && v > 0 {
				c.MedianRent = v
			}
		}
		for i, d := range dimCols {
			v, ok, err := parseCell(rec[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, header[i], err)
			}
			if ok {
				c.Scores[d] = min(max(v, 0), 1)
			}
		}
		cands = append(cands, c)
	}
	return cands, nil
}

// parseCell reads a numeric cell. Blank and NaN cells report ok=false.
func parseCell(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing %q: %w", s, err)
	}
	return v, true, nil
}

func findColumn(header []string, names []string) int {
	for _, n := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), n) {
				return i
			}
		}
	}
	return -1
}
