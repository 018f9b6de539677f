// Package checkpoint persists the set of already-processed businesses so a
// crawl run can resume safely after interruption.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/clock"
)

// fileShape is the serialized form: one set plus a last-update timestamp.
type fileShape struct {
	Scraped    []string  `json:"scraped"`
	LastUpdate time.Time `json:"last_update"`
}

// Store owns the resume state. Each successful append rewrites the whole
// set; at a few thousand keys that is a scalability limit, not a correctness
// one, since runs are single-process.
type Store struct {
	path   string
	clock  clock.Clock
	logger *zap.Logger
	seen   map[string]struct{}
}

// Open loads the checkpoint file if it exists; a missing file is an empty
// checkpoint, not an error.
func Open(path string, clk clock.Clock, logger *zap.Logger) (*Store, error) {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{
		path:   path,
		clock:  clk,
		logger: logger,
		seen:   make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}

	var shape fileShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	for _, key := range shape.Scraped {
		store.seen[normalize(key)] = struct{}{}
	}
	logger.Info("loaded checkpoint",
		zap.String("path", path),
		zap.Int("scraped", len(store.seen)),
		zap.Time("last_update", shape.LastUpdate))
	return store, nil
}

// Contains reports whether the key is already checkpointed. Matching is
// case-insensitive.
func (s *Store) Contains(key string) bool {
	_, ok := s.seen[normalize(key)]
	return ok
}

// Len returns the number of checkpointed keys.
func (s *Store) Len() int {
	return len(s.seen)
}

// MarkDone adds the key and persists the whole set. The write goes through a
// temp file and rename so an interrupted write never truncates the previous
// checkpoint.
func (s *Store) MarkDone(key string) error {
	s.seen[normalize(key)] = struct{}{}

	keys := make([]string, 0, len(s.seen))
	for k := range s.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload, err := json.MarshalIndent(fileShape{
		Scraped:    keys,
		LastUpdate: s.clock.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write checkpoint temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
