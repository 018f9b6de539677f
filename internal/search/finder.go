// Package search resolves canonical businesses to their comments-source
// pages. It scrapes the source's search results and gates the best candidate
// through a fuzzy name match.
package search

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/match"
	"github.com/atxeats/harvester/internal/venue"
)

// Candidate is one scored search hit.
type Candidate struct {
	Name  string
	URL   string
	Score float64
}

// Config captures the finder's target site and limits.
type Config struct {
	// BaseURL is the comments source root, e.g. https://www.restaurantji.com.
	BaseURL string
	// Location biases the search, e.g. "Austin, TX".
	Location string
	// UserAgent identifies the collector.
	UserAgent string
	// Timeout bounds each search request.
	Timeout time.Duration
}

// Finder scrapes the search page with a Colly collector.
type Finder struct {
	cfg    Config
	scorer match.Scorer
	logger *zap.Logger
}

// NewFinder constructs a Finder.
func NewFinder(cfg Config, scorer match.Scorer, logger *zap.Logger) (*Finder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{cfg: cfg, scorer: scorer, logger: logger}, nil
}

// Find searches for the business by name and returns the harvester target
// for the best-scoring candidate. No candidates is an error; a low score is
// not, since the harvester applies the gate and skips low-score businesses
// without checkpointing them.
func (f *Finder) Find(ctx context.Context, biz venue.Listing) (venue.Target, error) {
	candidates, err := f.searchCandidates(ctx, biz.Name)
	if err != nil {
		return venue.Target{}, err
	}
	if len(candidates) == 0 {
		return venue.Target{}, fmt.Errorf("no candidates for %q", biz.Name)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	best := candidates[0]
	f.logger.Debug("best candidate",
		zap.String("query", biz.Name),
		zap.String("candidate", best.Name),
		zap.Float64("score", best.Score))

	return venue.Target{
		BusinessID:  biz.BusinessID,
		Name:        best.Name,
		CommentsURL: best.URL + "comments/",
		MatchScore:  best.Score,
	}, nil
}

func (f *Finder) searchCandidates(ctx context.Context, name string) ([]Candidate, error) {
	collector := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
	)
	collector.SetRequestTimeout(f.cfg.Timeout)

	var candidates []Candidate
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !isVenuePath(href) {
			return
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return
		}
		candidates = append(candidates, Candidate{
			Name:  text,
			URL:   f.cfg.BaseURL + href,
			Score: f.scorer.Score(name, text),
		})
	})

	var fetchErr error
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(f.searchURL(name))
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("search canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit search page: %w", err)
		}
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("search request: %w", fetchErr)
	}
	return candidates, nil
}

func (f *Finder) searchURL(name string) string {
	q := url.Values{}
	q.Set("query", name)
	if f.cfg.Location != "" {
		q.Set("place", f.cfg.Location)
	}
	return f.cfg.BaseURL + "/search/?" + q.Encode()
}

// isVenuePath keeps only venue profile links: a relative path with exactly
// four slashes, slash-delimited on both ends (/city/state/name/).
func isVenuePath(href string) bool {
	return strings.Count(href, "/") == 4 &&
		strings.HasPrefix(href, "/") &&
		strings.HasSuffix(href, "/")
}
