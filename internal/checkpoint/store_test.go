package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress", "scraper_progress.json")
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	store, err := Open(path, fixedClock{now}, nil)
	require.NoError(t, err)
	require.Zero(t, store.Len())
	require.False(t, store.Contains("biz-1"))

	require.NoError(t, store.MarkDone("biz-1"))
	require.NoError(t, store.MarkDone("Biz-2"))
	require.True(t, store.Contains("biz-1"))
	require.True(t, store.Contains("BIZ-2"), "membership is case-insensitive")

	// A fresh open sees the persisted set.
	reopened, err := Open(path, fixedClock{now}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Len())
	require.True(t, reopened.Contains("biz-2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var shape struct {
		Scraped    []string  `json:"scraped"`
		LastUpdate time.Time `json:"last_update"`
	}
	require.NoError(t, json.Unmarshal(data, &shape))
	require.ElementsMatch(t, []string{"biz-1", "biz-2"}, shape.Scraped)
	require.Equal(t, now, shape.LastUpdate)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nope.json"), nil, nil)
	require.NoError(t, err)
	require.Zero(t, store.Len())
}

func TestStore_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path, nil, nil)
	require.Error(t, err)
}

func TestStore_MarkDoneIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	store, err := Open(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.MarkDone("biz-1"))
	require.NoError(t, store.MarkDone("biz-1"))
	require.Equal(t, 1, store.Len())
}
