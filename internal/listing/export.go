package listing

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/atxeats/harvester/internal/venue"
)

// WriteCanonicalCSV writes the canonical business table, the read-only
// tabular export downstream consumers (storage, search, scoring) work from.
func WriteCanonicalCSV(path string, rows []venue.Listing) error {
	file, err := createWithDirs(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"business_id", "name", "status", "price_level", "rating", "rating_count", "address", "lat", "lng", "tag_list", "cell_id"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.BusinessID,
			row.Name,
			row.Status,
			strconv.Itoa(row.PriceLevel),
			strconv.FormatFloat(row.Rating, 'f', 1, 64),
			strconv.Itoa(row.RatingCount),
			row.Address,
			strconv.FormatFloat(row.Lat, 'f', 6, 64),
			strconv.FormatFloat(row.Lng, 'f', 6, 64),
			row.TagList,
			row.CellID,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.BusinessID, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCellCountsCSV persists the per-cell raw counts next to the canonical
// table for crawl audits.
func WriteCellCountsCSV(path string, counts map[string]int) error {
	file, err := createWithDirs(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"cell_id", "raw_count"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cells := make([]string, 0, len(counts))
	for cell := range counts {
		cells = append(cells, cell)
	}
	sort.Strings(cells)
	for _, cell := range cells {
		if err := w.Write([]string{cell, strconv.Itoa(counts[cell])}); err != nil {
			return fmt.Errorf("write row %s: %w", cell, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCanonicalCSV loads a canonical business table previously written by
// WriteCanonicalCSV, so the review phase can run from a finished crawl.
func ReadCanonicalCSV(path string) ([]venue.Listing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open canonical table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 11
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read canonical table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]venue.Listing, 0, len(records)-1)
	for _, rec := range records[1:] {
		priceLevel, _ := strconv.Atoi(rec[3])
		rating, _ := strconv.ParseFloat(rec[4], 64)
		ratingCount, _ := strconv.Atoi(rec[5])
		lat, _ := strconv.ParseFloat(rec[7], 64)
		lng, _ := strconv.ParseFloat(rec[8], 64)
		rows = append(rows, venue.Listing{
			BusinessID:  rec[0],
			Name:        rec[1],
			Status:      rec[2],
			PriceLevel:  priceLevel,
			Rating:      rating,
			RatingCount: ratingCount,
			Address:     rec[6],
			Lat:         lat,
			Lng:         lng,
			TagList:     rec[9],
			CellID:      rec[10],
		})
	}
	return rows, nil
}

func createWithDirs(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return file, nil
}
