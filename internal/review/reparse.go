package review

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/venue"
)

var structuredHeader = []string{"business_id", "author", "rating", "text", "relative_time", "scraped_at"}

// ReadRawComments loads the primary comments file written by the harvest
// runs. The header row is validated by position, matching how the file is
// produced. Rows with a malformed score or timestamp are kept with zero
// values and counted, never fatal.
func ReadRawComments(path string, logger *zap.Logger) ([]venue.RawComment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open comments file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 6
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read comments file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	malformed := 0
	rows := make([]venue.RawComment, 0, len(records)-1)
	for i, rec := range records[1:] {
		score, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			malformed++
			score = 0
			logger.Warn("malformed match score",
				zap.Int("line", i+2),
				zap.String("business_id", rec[0]),
				zap.String("value", rec[2]))
		}
		scrapedAt, err := time.Parse(time.RFC3339, rec[5])
		if err != nil {
			malformed++
			scrapedAt = time.Time{}
			logger.Warn("malformed scraped_at",
				zap.Int("line", i+2),
				zap.String("business_id", rec[0]),
				zap.String("value", rec[5]))
		}
		rows = append(rows, venue.RawComment{
			BusinessID: rec[0],
			Name:       rec[1],
			MatchScore: score,
			Text:       rec[3],
			HTML:       rec[4],
			ScrapedAt:  scrapedAt,
		})
	}
	if malformed > 0 {
		logger.Info("comments loaded with malformed fields",
			zap.Int("rows", len(rows)),
			zap.Int("malformed_fields", malformed))
	}
	return rows, nil
}

// Reparse runs the offline second pass: every captured comment's markup is
// parsed into a structured review without touching the network. Rows whose
// markup cannot be parsed are skipped and counted, never fatal.
func Reparse(rows []venue.RawComment, logger *zap.Logger) []venue.ScrapedReview {
	if logger == nil {
		logger = zap.NewNop()
	}
	reviews := make([]venue.ScrapedReview, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		review, err := ParseStructured(row)
		if err != nil {
			skipped++
			logger.Warn("unparseable comment markup",
				zap.String("business_id", row.BusinessID),
				zap.Error(err))
			continue
		}
		reviews = append(reviews, review)
	}
	if skipped > 0 {
		logger.Info("reparse complete with skips",
			zap.Int("parsed", len(reviews)),
			zap.Int("skipped", skipped))
	}
	return reviews
}

// WriteStructuredCSV writes the second-pass output file.
func WriteStructuredCSV(path string, reviews []venue.ScrapedReview) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	records := [][]string{structuredHeader}
	for _, r := range reviews {
		records = append(records, []string{
			r.BusinessID,
			r.Author,
			strconv.FormatFloat(r.Rating, 'f', 1, 64),
			r.Text,
			r.RelativeTime,
			r.ScrapedAt.Format(time.RFC3339),
		})
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
