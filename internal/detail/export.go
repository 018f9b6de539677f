package detail

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSVs persists the exploded detail output as three tables under dir:
// one row per business, one per photo attribution, one per native review.
func WriteCSVs(dir string, batches []Batch) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create details dir: %w", err)
	}

	details := [][]string{{"business_id", "name", "phone", "website", "summary", "hours_text", "fetch_status"}}
	photos := [][]string{{"business_id", "photo_reference", "width", "height", "attribution"}}
	reviews := [][]string{{"business_id", "author", "rating", "text", "relative_time"}}

	for _, batch := range batches {
		r := batch.Record
		details = append(details, []string{r.BusinessID, r.Name, r.Phone, r.Website, r.Summary, r.HoursText, string(r.FetchStatus)})
		for _, p := range batch.Photos {
			photos = append(photos, []string{p.BusinessID, p.PhotoReference, strconv.Itoa(p.Width), strconv.Itoa(p.Height), p.Attribution})
		}
		for _, v := range batch.Reviews {
			reviews = append(reviews, []string{v.BusinessID, v.Author, strconv.FormatFloat(v.Rating, 'f', 1, 64), v.Text, v.RelativeTime})
		}
	}

	if err := writeCSV(filepath.Join(dir, "place_details.csv"), details); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, "photos.csv"), photos); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "native_reviews.csv"), reviews)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Error()
}
