package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/config"
	"github.com/atxeats/harvester/internal/detail"
	"github.com/atxeats/harvester/internal/geo"
	"github.com/atxeats/harvester/internal/listing"
	"github.com/atxeats/harvester/internal/metrics"
	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/places"
	"github.com/atxeats/harvester/internal/progress"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the directory API over the spatial grid",
		Long: `Generates the grid of overlapping query circles, runs the paginated
directory crawl for every (grid point, category) pair, subdivides saturated
cells, consolidates the page files into the canonical business table, and
enriches each business with detail attributes.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Cfg, rt.Logger
	ctx := cmd.Context()

	client, err := places.NewClient(places.ClientConfig{
		BaseURL:   cfg.Places.BaseURL,
		APIKey:    cfg.Places.APIKey,
		UserAgent: cfg.Places.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init places client: %w", err)
	}

	sink, err := places.NewFSPageSink(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("init page sink: %w", err)
	}

	fetcher := places.NewFetcher(client, sink, pace.Timer{}, nil, places.FetcherConfig{
		PageCap:    cfg.Crawler.PageCap,
		ResultCap:  cfg.Crawler.ResultCap,
		TokenDelay: cfg.Crawler.TokenDelay,
		Resume:     cfg.Crawler.Resume,
	}, logger)

	tracker := progress.NewTracker("crawl", nil, logger)

	result, err := runGridCrawl(ctx, cfg, fetcher, sink, tracker, logger)
	if err != nil {
		return err
	}
	metrics.ListingsConsolidated.Add(float64(len(result.Canonical)))

	canonicalPath := filepath.Join(cfg.Output.Dir, "canonical_businesses.csv")
	if err := listing.WriteCanonicalCSV(canonicalPath, result.Canonical); err != nil {
		return fmt.Errorf("write canonical table: %w", err)
	}
	if err := listing.WriteCellCountsCSV(filepath.Join(cfg.Output.Dir, "cell_counts.csv"), result.CellCounts); err != nil {
		return fmt.Errorf("write cell counts: %w", err)
	}
	logger.Info("canonical table written",
		zap.String("path", canonicalPath),
		zap.Int("businesses", len(result.Canonical)))

	enricher := detail.New(client, pace.Timer{}, detail.Config{
		RequestDelay: cfg.Crawler.RequestDelay,
	}, logger)
	batches := enricher.EnrichAll(ctx, result.Canonical)
	if err := detail.WriteCSVs(filepath.Join(cfg.Output.Dir, "details"), batches); err != nil {
		return fmt.Errorf("write detail tables: %w", err)
	}

	tracker.Done()
	return nil
}

// runGridCrawl fetches the full grid, then repeatedly subdivides saturated
// cells and fetches the children, up to the configured depth. It returns the
// consolidation of every page file on disk, including those from prior runs.
func runGridCrawl(
	ctx context.Context,
	cfg config.Config,
	fetcher *places.Fetcher,
	sink *places.FSPageSink,
	tracker *progress.Tracker,
	logger *zap.Logger,
) (listing.Result, error) {
	center := orb.Point{cfg.Crawler.CenterLng, cfg.Crawler.CenterLat}
	frontier := geo.Grid(center, cfg.Crawler.TotalRadiusMiles, cfg.Crawler.PointRadiusMiles)
	points := make(map[string]geo.Point, len(frontier))

	var result listing.Result
	for depth := 0; ; depth++ {
		logger.Info("crawling grid pass",
			zap.Int("depth", depth),
			zap.Int("points", len(frontier)))
		for _, pt := range frontier {
			points[pt.ID] = pt
			if err := fetchPoint(ctx, cfg, fetcher, tracker, pt); err != nil {
				return listing.Result{}, err
			}
		}

		paths, err := sink.ListPages()
		if err != nil {
			return listing.Result{}, err
		}
		result, err = listing.Consolidate(paths)
		if err != nil {
			return listing.Result{}, fmt.Errorf("consolidate pages: %w", err)
		}

		if depth >= cfg.Crawler.MaxSubdivisionDepth {
			break
		}
		frontier = nextFrontier(result, points, cfg.Crawler.ResultCap)
		if len(frontier) == 0 {
			break
		}
		logger.Info("subdividing saturated cells", zap.Int("children", len(frontier)))
	}
	return result, nil
}

func fetchPoint(ctx context.Context, cfg config.Config, fetcher *places.Fetcher, tracker *progress.Tracker, pt geo.Point) error {
	for _, category := range cfg.Crawler.Categories {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl canceled: %w", err)
		}
		res := fetcher.FetchCell(ctx, pt, category)
		unit := fmt.Sprintf("%s/%s", category, pt.ID)
		switch {
		case res.Skipped:
			tracker.UnitSkip(unit)
		case res.State == places.StateError:
			tracker.UnitError(unit, fmt.Errorf("batch ended in %s after %d pages", res.State, res.Pages))
		default:
			tracker.UnitDone(unit,
				zap.Int("pages", res.Pages),
				zap.Int("raw_count", res.RawCount),
				zap.Bool("saturated", res.Saturated))
		}
	}
	return nil
}

// nextFrontier expands every saturated cell into its half-radius children.
// Cells without a known grid point (stale files from an older geometry) are
// left alone.
func nextFrontier(result listing.Result, points map[string]geo.Point, resultCap int) []geo.Point {
	var frontier []geo.Point
	for _, cellID := range result.SaturatedCells(resultCap) {
		parent, ok := points[cellID]
		if !ok {
			continue
		}
		frontier = append(frontier, geo.Subdivide(parent)...)
	}
	return frontier
}
