// Package backup appends every successful unit of work to a primary output
// file and an immutable timestamped snapshot.
package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/clock"
	"github.com/atxeats/harvester/internal/venue"
)

var slugChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var commentHeader = []string{"business_id", "restaurant_name", "match_score", "comment_text", "comment_html", "scraped_at"}

// Mirror replicates snapshot bytes to a secondary location.
type Mirror interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Config captures the writer's destinations.
type Config struct {
	// PrimaryPath is the growing main CSV; append/union-only, never
	// truncated or rewritten in place.
	PrimaryPath string
	// BackupDir receives one immutable snapshot per unit of work, giving
	// point-in-time recovery if the primary is corrupted mid-write.
	BackupDir string
	// Mirror optionally replicates each snapshot; nil disables mirroring.
	Mirror Mirror
	// MirrorPrefix prefixes mirrored object paths.
	MirrorPrefix string
}

// Writer owns the durable outputs of the harvest loop.
type Writer struct {
	cfg    Config
	clock  clock.Clock
	logger *zap.Logger
}

// NewWriter validates destinations and creates the backup directory.
func NewWriter(cfg Config, clk clock.Clock, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(cfg.PrimaryPath) == "" {
		return nil, fmt.Errorf("primary path is required")
	}
	if strings.TrimSpace(cfg.BackupDir) == "" {
		return nil, fmt.Errorf("backup dir is required")
	}
	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.PrimaryPath), 0o750); err != nil {
		return nil, fmt.Errorf("create primary dir: %w", err)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{cfg: cfg, clock: clk, logger: logger}, nil
}

// Append writes the unit's rows to the primary file and one snapshot named
// with the run timestamp and a business-name slug. Zero rows is a valid
// outcome and writes nothing.
func (w *Writer) Append(ctx context.Context, businessName string, rows []venue.RawComment) error {
	if len(rows) == 0 {
		return nil
	}

	if err := w.appendPrimary(rows); err != nil {
		return err
	}

	snapshot := w.snapshotPath(businessName)
	payload, err := encodeCSV(true, rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(snapshot, payload, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snapshot, err)
	}
	w.logger.Debug("snapshot written", zap.String("path", snapshot), zap.Int("rows", len(rows)))

	if w.cfg.Mirror != nil {
		object := filepath.ToSlash(filepath.Join(w.cfg.MirrorPrefix, filepath.Base(snapshot)))
		uri, err := w.cfg.Mirror.PutObject(ctx, object, "text/csv", payload)
		if err != nil {
			// The local snapshot is the durability guarantee; a mirror
			// failure is logged, not fatal.
			w.logger.Warn("snapshot mirror failed", zap.String("object", object), zap.Error(err))
		} else {
			w.logger.Debug("snapshot mirrored", zap.String("uri", uri))
		}
	}
	return nil
}

func (w *Writer) appendPrimary(rows []venue.RawComment) error {
	_, statErr := os.Stat(w.cfg.PrimaryPath)
	fresh := os.IsNotExist(statErr)

	file, err := os.OpenFile(w.cfg.PrimaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open primary %s: %w", w.cfg.PrimaryPath, err)
	}
	defer file.Close()

	payload, err := encodeCSV(fresh, rows)
	if err != nil {
		return err
	}
	if _, err := file.Write(payload); err != nil {
		return fmt.Errorf("append primary: %w", err)
	}
	return nil
}

func (w *Writer) snapshotPath(businessName string) string {
	ts := w.clock.Now().Format("20060102_150405")
	slug := slugChars.ReplaceAllString(strings.ReplaceAll(businessName, " ", "_"), "")
	if slug == "" {
		slug = "unnamed"
	}
	return filepath.Join(w.cfg.BackupDir, fmt.Sprintf("backup_%s_%s.csv", ts, slug))
}

func encodeCSV(withHeader bool, rows []venue.RawComment) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if withHeader {
		if err := cw.Write(commentHeader); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		record := []string{
			row.BusinessID,
			row.Name,
			strconv.FormatFloat(row.MatchScore, 'f', 2, 64),
			row.Text,
			row.HTML,
			row.ScrapedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("encode row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
