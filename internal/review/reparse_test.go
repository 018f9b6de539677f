package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atxeats/harvester/internal/backup"
	"github.com/atxeats/harvester/internal/venue"
)

type reparseClock struct{ at time.Time }

func (c reparseClock) Now() time.Time { return c.at }

// The second pass reads exactly what the harvest runs write.
func TestReparse_RoundTripThroughPrimaryFile(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "restaurant_comments.csv")
	at := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	writer, err := backup.NewWriter(backup.Config{
		PrimaryPath: primary,
		BackupDir:   filepath.Join(dir, "backups"),
	}, reparseClock{at}, nil)
	require.NoError(t, err)

	target := venue.Target{BusinessID: "biz-1", Name: "Franklin Barbecue", MatchScore: 0.95}
	rows, err := ExtractRaw(expandedPage, target, at)
	require.NoError(t, err)
	require.NoError(t, writer.Append(context.Background(), "Franklin Barbecue", rows))

	loaded, err := ReadRawComments(primary, nil)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "biz-1", loaded[0].BusinessID)
	require.Equal(t, at, loaded[0].ScrapedAt)
	require.Contains(t, loaded[0].HTML, "comment-content")

	reviews := Reparse(loaded, nil)
	require.Len(t, reviews, 2)
	require.Equal(t, "Alice", reviews[0].Author)
	require.InDelta(t, 4.0, reviews[0].Rating, 1e-9)
	require.Equal(t, "Bob", reviews[1].Author)
	require.InDelta(t, 5.0, reviews[1].Rating, 1e-9)

	out := filepath.Join(dir, "structured_comments.csv")
	require.NoError(t, WriteStructuredCSV(out, reviews))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "business_id,author,rating,text,relative_time,scraped_at", lines[0])
	require.Contains(t, lines[1], "Alice")
	require.Contains(t, lines[1], "4.0")
}

func TestReadRawComments_MissingFile(t *testing.T) {
	_, err := ReadRawComments(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.Error(t, err)
}

func TestReadRawComments_MalformedFieldsZeroedAndLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurant_comments.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"business_id,business_name,match_score,comment_text,comment_html,scraped_at\n"+
			"biz-1,Franklin Barbecue,not-a-score,So good.,<div></div>,2026-08-26T09:00:00Z\n"+
			"biz-2,Franklin Barbecue,0.95,Would eat again.,<div></div>,yesterday\n"+
			"biz-3,Franklin Barbecue,0.90,Fine.,<div></div>,2026-08-26T09:05:00Z\n",
	), 0o600))

	core, logs := observer.New(zapcore.WarnLevel)
	rows, err := ReadRawComments(path, zap.New(core))
	require.NoError(t, err)
	require.Len(t, rows, 3, "corrupted rows are kept, not dropped")

	require.Zero(t, rows[0].MatchScore)
	require.True(t, rows[1].ScrapedAt.IsZero())
	require.InDelta(t, 0.90, rows[2].MatchScore, 1e-9)
	require.False(t, rows[2].ScrapedAt.IsZero())

	require.Equal(t, 1, logs.FilterMessage("malformed match score").Len())
	require.Equal(t, 1, logs.FilterMessage("malformed scraped_at").Len())
}
