package places

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/atxeats/harvester/internal/venue"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._+-]+`)

// PageSink persists one fetched page as one file. The file boundary is the
// crash-safety unit: a crash mid-run loses at most the in-flight page.
type PageSink interface {
	WritePage(ctx context.Context, page venue.QueryPage) (string, error)
	HasFirstPage(category, cellID string) bool
}

// FSPageSink writes page files under root/pages/<category>/.
type FSPageSink struct {
	root string
}

// NewFSPageSink returns a sink rooted at dir, creating it if needed.
func NewFSPageSink(root string) (*FSPageSink, error) {
	if err := os.MkdirAll(filepath.Join(root, "pages"), 0o750); err != nil {
		return nil, fmt.Errorf("create pages dir: %w", err)
	}
	return &FSPageSink{root: root}, nil
}

// WritePage serializes the page to its deterministic path.
func (s *FSPageSink) WritePage(ctx context.Context, page venue.QueryPage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	target := s.pagePath(page.Category, page.CellID, page.PageIndex)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create page dir for %s: %w", target, err)
	}
	payload, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal page: %w", err)
	}
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return "", fmt.Errorf("write page %s: %w", target, err)
	}
	return target, nil
}

// HasFirstPage reports whether page 1 of the cell already exists, enabling
// cell-level resume. Token chains cannot resume mid-chain, so the cell is the
// resume granularity.
func (s *FSPageSink) HasFirstPage(category, cellID string) bool {
	_, err := os.Stat(s.pagePath(category, cellID, 1))
	return err == nil
}

// ListPages returns every page file under the sink, sorted by name so folds
// over them are deterministic across runs.
func (s *FSPageSink) ListPages() ([]string, error) {
	var files []string
	root := filepath.Join(s.root, "pages")
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk pages dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *FSPageSink) pagePath(category, cellID string, page int) string {
	cat := unsafePathChars.ReplaceAllString(category, "_")
	cell := unsafePathChars.ReplaceAllString(cellID, "_")
	return filepath.Join(s.root, "pages", cat, fmt.Sprintf("%s_p%d.json", cell, page))
}
