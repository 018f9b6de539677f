// Package listing folds raw page files into the canonical business table.
package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/atxeats/harvester/internal/venue"
)

// Result is the consolidator output: the canonical table plus the per-cell
// raw counts that drive adaptive subdivision.
type Result struct {
	Canonical  []venue.Listing
	CellCounts map[string]int
}

// Consolidate is a pure fold over the given page files. Files are processed
// in name order so the first-seen tie-break for scalar fields is deterministic
// across runs. Each business_id yields exactly one canonical row whose
// tag_list is the union of every observed tag set, in first-seen order.
func Consolidate(paths []string) (Result, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	result := Result{CellCounts: make(map[string]int)}
	index := make(map[string]int)
	tagSets := make(map[string][]string)
	tagSeen := make(map[string]map[string]struct{})

	for _, path := range sorted {
		page, err := readPage(path)
		if err != nil {
			return Result{}, err
		}
		result.CellCounts[page.CellID] += len(page.Listings)

		for _, row := range page.Listings {
			if row.BusinessID == "" {
				continue
			}
			pos, seen := index[row.BusinessID]
			if !seen {
				index[row.BusinessID] = len(result.Canonical)
				result.Canonical = append(result.Canonical, row)
				tagSeen[row.BusinessID] = make(map[string]struct{})
				pos = index[row.BusinessID]
			}
			for _, tag := range row.Tags() {
				if _, dup := tagSeen[row.BusinessID][tag]; dup {
					continue
				}
				tagSeen[row.BusinessID][tag] = struct{}{}
				tagSets[row.BusinessID] = append(tagSets[row.BusinessID], tag)
			}
			result.Canonical[pos].TagList = strings.Join(tagSets[row.BusinessID], venue.TagSeparator)
		}
	}

	return result, nil
}

// SaturatedCells returns the cells whose raw count reached the per-query
// result cap, in sorted order.
func (r Result) SaturatedCells(resultCap int) []string {
	var cells []string
	for cell, count := range r.CellCounts {
		if count >= resultCap {
			cells = append(cells, cell)
		}
	}
	sort.Strings(cells)
	return cells
}

func readPage(path string) (venue.QueryPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return venue.QueryPage{}, fmt.Errorf("read page %s: %w", path, err)
	}
	var page venue.QueryPage
	if err := json.Unmarshal(data, &page); err != nil {
		return venue.QueryPage{}, fmt.Errorf("decode page %s: %w", path, err)
	}
	return page, nil
}
