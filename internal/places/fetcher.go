package places

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/clock"
	"github.com/atxeats/harvester/internal/geo"
	"github.com/atxeats/harvester/internal/metrics"
	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/venue"
)

// PageState is the pagination state machine position for one
// (grid point, category) batch.
type PageState string

// Machine states. ERROR is reachable from any state; a failed page
// contributes zero rows but never aborts the batch.
const (
	StateFirstPage PageState = "FIRST_PAGE"
	StateNextPage  PageState = "NEXT_PAGE"
	StateDone      PageState = "DONE"
	StateError     PageState = "ERROR"
)

// SearchAPI is the slice of the client the fetcher needs.
type SearchAPI interface {
	NearbySearch(ctx context.Context, req NearbyRequest) (NearbyResponse, error)
}

// FetcherConfig bounds the pagination loop.
type FetcherConfig struct {
	// PageCap limits pages per (grid point, category); the directory API
	// serves at most three.
	PageCap int
	// ResultCap is the API's fixed per-query result limit; hitting it marks
	// the cell for subdivision.
	ResultCap int
	// TokenDelay is the mandatory activation wait before a next-page token
	// becomes valid. It is a fixed sleep, not a retry loop.
	TokenDelay time.Duration
	// Resume skips cells whose first page file already exists.
	Resume bool
}

// Fetcher drives the pagination state machine and persists each page
// immediately.
type Fetcher struct {
	api    SearchAPI
	sink   PageSink
	pause  pace.Pauser
	clock  clock.Clock
	cfg    FetcherConfig
	logger *zap.Logger
}

// CellResult summarizes one (grid point, category) batch.
type CellResult struct {
	CellID    string
	Category  string
	Pages     int
	RawCount  int
	State     PageState
	Skipped   bool
	Saturated bool
}

// NewFetcher constructs a Fetcher.
func NewFetcher(api SearchAPI, sink PageSink, pause pace.Pauser, clk clock.Clock, cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.PageCap <= 0 {
		cfg.PageCap = 3
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = 60
	}
	if pause == nil {
		pause = pace.Timer{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{api: api, sink: sink, pause: pause, clock: clk, cfg: cfg, logger: logger}
}

// FetchCell runs FIRST_PAGE -> NEXT_PAGE(token) -> ... -> DONE for one grid
// point and category, writing one file per successful page.
func (f *Fetcher) FetchCell(ctx context.Context, pt geo.Point, category string) CellResult {
	result := CellResult{CellID: pt.ID, Category: category, State: StateFirstPage}

	if f.cfg.Resume && f.sink.HasFirstPage(category, pt.ID) {
		f.logger.Debug("cell already fetched, skipping",
			zap.String("cell_id", pt.ID), zap.String("category", category))
		result.State = StateDone
		result.Skipped = true
		return result
	}

	token := ""
	for result.State == StateFirstPage || result.State == StateNextPage {
		if result.State == StateNextPage {
			// Tokens are invalid until a short activation delay has passed.
			f.pause.Pause(ctx, f.cfg.TokenDelay)
		}
		if err := ctx.Err(); err != nil {
			result.State = StateError
			return result
		}

		resp, err := f.api.NearbySearch(ctx, NearbyRequest{
			Location:     pt.Location,
			RadiusMeters: pt.RadiusMeters(),
			Category:     category,
			PageToken:    token,
		})
		if err != nil {
			metrics.RequestErrors.Inc()
			f.logger.Warn("page fetch failed",
				zap.String("cell_id", pt.ID),
				zap.String("category", category),
				zap.Int("page", result.Pages+1),
				zap.Error(err))
			result.State = StateError
			return result
		}

		result.Pages++
		page := venue.QueryPage{
			Category:      category,
			CellID:        pt.ID,
			PageIndex:     result.Pages,
			NextPageToken: resp.NextPageToken,
			FetchedAt:     f.clock.Now(),
			Listings:      toListings(resp.Results, pt.ID),
		}
		if _, err := f.sink.WritePage(ctx, page); err != nil {
			f.logger.Warn("page write failed",
				zap.String("cell_id", pt.ID), zap.Error(err))
			result.State = StateError
			return result
		}
		metrics.PagesFetched.Inc()
		result.RawCount += len(resp.Results)

		if resp.NextPageToken != "" && result.Pages < f.cfg.PageCap {
			token = resp.NextPageToken
			result.State = StateNextPage
		} else {
			result.State = StateDone
		}
	}

	result.Saturated = result.RawCount >= f.cfg.ResultCap
	return result
}

func toListings(results []PlaceResult, cellID string) []venue.Listing {
	out := make([]venue.Listing, 0, len(results))
	for _, r := range results {
		out = append(out, venue.Listing{
			BusinessID:  r.PlaceID,
			Name:        r.Name,
			Status:      r.BusinessStatus,
			PriceLevel:  r.PriceLevel,
			Rating:      r.Rating,
			RatingCount: r.UserRatingsTotal,
			Address:     r.Vicinity,
			Lat:         r.Geometry.Location.Lat,
			Lng:         r.Geometry.Location.Lng,
			TagList:     strings.Join(r.Types, venue.TagSeparator),
			CellID:      cellID,
		})
	}
	return out
}
