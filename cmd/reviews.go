package cmd

import (
	"fmt"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/backup"
	"github.com/atxeats/harvester/internal/checkpoint"
	"github.com/atxeats/harvester/internal/listing"
	"github.com/atxeats/harvester/internal/match"
	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/progress"
	"github.com/atxeats/harvester/internal/review"
	"github.com/atxeats/harvester/internal/search"
)

func newReviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviews",
		Short: "Harvests review text for the canonical businesses",
		Long: `Walks the canonical business table, resolves each business to its
comments page on the source site, expands and captures the comments with a
headless browser, and appends them to the primary output file. Completed
businesses are checkpointed, so an interrupted run resumes where it stopped.`,
		RunE: runReviewsCommand,
	}
}

func runReviewsCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Cfg, rt.Logger
	ctx := cmd.Context()

	businesses, err := listing.ReadCanonicalCSV(filepath.Join(cfg.Output.Dir, "canonical_businesses.csv"))
	if err != nil {
		return fmt.Errorf("load canonical table (run crawl first): %w", err)
	}

	finder, err := search.NewFinder(search.Config{
		BaseURL:   cfg.Review.SourceBaseURL,
		Location:  cfg.Review.Location,
		UserAgent: cfg.Review.UserAgent,
		Timeout:   cfg.Review.NavTimeout,
	}, match.PartialRatioScorer{}, logger)
	if err != nil {
		return fmt.Errorf("init finder: %w", err)
	}

	browser, err := review.NewBrowser(review.BrowserConfig{
		UserAgent:         cfg.Review.UserAgent,
		NavigationTimeout: cfg.Review.NavTimeout,
		Visible:           cfg.Review.ShowBrowser,
	})
	if err != nil {
		return fmt.Errorf("init browser: %w", err)
	}
	defer browser.Close()

	store, err := checkpoint.Open(filepath.Join(cfg.Output.Dir, "scraper_progress.json"), nil, logger)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	mirror, err := buildMirror(cmd, cfg.Backup.GCSBucket)
	if err != nil {
		return err
	}
	writer, err := backup.NewWriter(backup.Config{
		PrimaryPath:  filepath.Join(cfg.Output.Dir, "reviews", "restaurant_comments.csv"),
		BackupDir:    filepath.Join(cfg.Output.Dir, "backups"),
		Mirror:       mirror,
		MirrorPrefix: cfg.Backup.Prefix,
	}, nil, logger)
	if err != nil {
		return fmt.Errorf("init backup writer: %w", err)
	}

	harvester, err := review.NewHarvester(finder, browser, writer, store, pace.Timer{}, nil, review.Config{
		LoadMoreSelector: cfg.Review.LoadMoreSelector,
		ExpandIterations: cfg.Review.ExpandIterations,
		ClickTimeout:     cfg.Review.ClickTimeout,
		SettleDelay:      cfg.Review.SettleDelay,
		PolitenessDelay:  cfg.Review.RequestDelay,
		MinMatchScore:    cfg.Review.MinMatchScore,
	}, logger)
	if err != nil {
		return fmt.Errorf("init harvester: %w", err)
	}

	tracker := progress.NewTracker("reviews", nil, logger)
	outcomes, err := harvester.HarvestAll(ctx, businesses)
	for _, o := range outcomes {
		switch o.State {
		case review.StateSaved:
			tracker.UnitDone(o.Name, zap.Int("rows", o.Rows))
		case review.StateFailed:
			tracker.UnitError(o.Name, o.Err)
		case review.StateSkipped:
			tracker.UnitSkip(o.Name)
		}
	}
	tracker.Done()
	return err
}

// buildMirror returns a GCS snapshot mirror when a bucket is configured,
// otherwise nil (mirroring disabled).
func buildMirror(cmd *cobra.Command, bucket string) (backup.Mirror, error) {
	if bucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return backup.NewGCSMirror(client, bucket)
}
