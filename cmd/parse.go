package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/review"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Re-parses captured comment markup into structured reviews",
		Long: `Runs the offline second pass over the primary comments file: the raw
markup captured during harvesting is parsed into author, star rating, and
relative-time fields without re-fetching any page.`,
		RunE: runParseCommand,
	}
}

func runParseCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Cfg, rt.Logger

	primary := filepath.Join(cfg.Output.Dir, "reviews", "restaurant_comments.csv")
	rows, err := review.ReadRawComments(primary, logger)
	if err != nil {
		return fmt.Errorf("load comments (run reviews first): %w", err)
	}

	reviews := review.Reparse(rows, logger)

	out := filepath.Join(cfg.Output.Dir, "reviews", "structured_comments.csv")
	if err := review.WriteStructuredCSV(out, reviews); err != nil {
		return fmt.Errorf("write structured reviews: %w", err)
	}
	logger.Info("structured reviews written",
		zap.String("path", out),
		zap.Int("comments", len(rows)),
		zap.Int("reviews", len(reviews)))
	return nil
}
