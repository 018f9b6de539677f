package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/clock"
	"github.com/atxeats/harvester/internal/metrics"
	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/venue"
)

// State is the terminal outcome of one business's harvest.
type State string

// Harvest outcomes.
const (
	StateSaved   State = "saved"
	StateFailed  State = "failed"
	StateSkipped State = "skipped"
)

// TargetFinder resolves a canonical business to its comments page.
type TargetFinder interface {
	Find(ctx context.Context, biz venue.Listing) (venue.Target, error)
}

// CommentSink persists one business's harvested rows as a unit.
type CommentSink interface {
	Append(ctx context.Context, businessName string, rows []venue.RawComment) error
}

// Checkpoint tracks completed units across runs.
type Checkpoint interface {
	Contains(key string) bool
	MarkDone(key string) error
}

// Config tunes the harvest loop.
type Config struct {
	// LoadMoreSelector matches the control that appends more comments.
	LoadMoreSelector string
	// ExpandIterations caps how many times the control is clicked.
	ExpandIterations int
	// ClickTimeout bounds the wait for the control; expiry means the page is
	// fully expanded.
	ClickTimeout time.Duration
	// SettleDelay is the fixed pause after each expansion click.
	SettleDelay time.Duration
	// PolitenessDelay is the fixed pause between businesses.
	PolitenessDelay time.Duration
	// MinMatchScore gates candidates; lower-scoring businesses are skipped
	// without being checkpointed, so a better matcher can retry them later.
	MinMatchScore float64
}

// Outcome summarizes one business's harvest for the progress report.
type Outcome struct {
	BusinessID string
	Name       string
	State      State
	Rows       int
	MatchScore float64
	Err        error
}

// Harvester walks the canonical business list, one browser page at a time.
type Harvester struct {
	finder     TargetFinder
	sessions   SessionFactory
	sink       CommentSink
	checkpoint Checkpoint
	pause      pace.Pauser
	clock      clock.Clock
	cfg        Config
	logger     *zap.Logger
}

// NewHarvester wires the harvest loop's collaborators.
func NewHarvester(
	finder TargetFinder,
	sessions SessionFactory,
	sink CommentSink,
	checkpoint Checkpoint,
	pause pace.Pauser,
	clk clock.Clock,
	cfg Config,
	logger *zap.Logger,
) (*Harvester, error) {
	if finder == nil || sessions == nil || sink == nil || checkpoint == nil {
		return nil, fmt.Errorf("finder, sessions, sink and checkpoint are required")
	}
	if cfg.LoadMoreSelector == "" {
		return nil, fmt.Errorf("load-more selector is required")
	}
	if cfg.ExpandIterations <= 0 {
		return nil, fmt.Errorf("expand iterations must be > 0")
	}
	if cfg.ClickTimeout <= 0 {
		cfg.ClickTimeout = 5 * time.Second
	}
	if pause == nil {
		pause = pace.Nop{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		finder:     finder,
		sessions:   sessions,
		sink:       sink,
		checkpoint: checkpoint,
		pause:      pause,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// HarvestAll processes businesses strictly in order, pausing between them.
// A failed business never stops the run; it is reported in its outcome and
// left out of the checkpoint so the next run retries it.
func (h *Harvester) HarvestAll(ctx context.Context, businesses []venue.Listing) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(businesses))
	for i, biz := range businesses {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("harvest canceled: %w", err)
		}

		outcome, requested := h.harvestOne(ctx, biz)
		outcomes = append(outcomes, outcome)
		h.record(outcome)

		// Only a checkpoint skip touches no upstream; everything else, a
		// low-score skip included, issued at least the search request and
		// owes the politeness pause.
		if i < len(businesses)-1 && requested {
			h.pause.Pause(ctx, h.cfg.PolitenessDelay)
		}
	}
	return outcomes, nil
}

// harvestOne processes one business and reports whether any upstream
// request was issued, which decides if the politeness pause applies.
func (h *Harvester) harvestOne(ctx context.Context, biz venue.Listing) (Outcome, bool) {
	outcome := Outcome{BusinessID: biz.BusinessID, Name: biz.Name}
	key := checkpointKey(biz)

	if h.checkpoint.Contains(key) {
		h.logger.Debug("already harvested", zap.String("business", biz.Name))
		outcome.State = StateSkipped
		return outcome, false
	}

	target, err := h.finder.Find(ctx, biz)
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = fmt.Errorf("find comments page: %w", err)
		return outcome, true
	}
	outcome.MatchScore = target.MatchScore

	if target.MatchScore < h.cfg.MinMatchScore {
		h.logger.Info("match below threshold, skipping",
			zap.String("business", biz.Name),
			zap.String("candidate", target.Name),
			zap.Float64("score", target.MatchScore))
		outcome.State = StateSkipped
		return outcome, true
	}

	rows, err := h.fetchComments(ctx, target)
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = err
		return outcome, true
	}
	outcome.Rows = len(rows)

	if err := h.sink.Append(ctx, biz.Name, rows); err != nil {
		outcome.State = StateFailed
		outcome.Err = fmt.Errorf("save comments: %w", err)
		return outcome, true
	}

	// Zero comments is still a completed unit; only persist failures keep a
	// business out of the checkpoint.
	if err := h.checkpoint.MarkDone(key); err != nil {
		outcome.State = StateFailed
		outcome.Err = fmt.Errorf("checkpoint %s: %w", key, err)
		return outcome, true
	}

	outcome.State = StateSaved
	return outcome, true
}

func (h *Harvester) fetchComments(ctx context.Context, target venue.Target) ([]venue.RawComment, error) {
	session, err := h.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser page: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, target.CommentsURL); err != nil {
		return nil, err
	}

	h.expand(ctx, session, target)

	html, err := session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ExtractRaw(html, target, h.clock.Now())
	if err != nil {
		return nil, err
	}
	h.logger.Info("comments extracted",
		zap.String("business", target.Name),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// expand clicks the load-more control up to the configured cap, settling
// after each click. Expansion is best effort: a vanished or broken control
// ends it, and extraction proceeds on whatever is loaded.
func (h *Harvester) expand(ctx context.Context, session Session, target venue.Target) {
	for i := 0; i < h.cfg.ExpandIterations; i++ {
		err := session.Click(ctx, h.cfg.LoadMoreSelector, h.cfg.ClickTimeout)
		if errors.Is(err, ErrControlGone) {
			h.logger.Debug("comments fully expanded",
				zap.String("business", target.Name),
				zap.Int("clicks", i))
			return
		}
		if err != nil {
			h.logger.Warn("expansion click failed",
				zap.String("business", target.Name),
				zap.Error(err))
			return
		}
		h.pause.Pause(ctx, h.cfg.SettleDelay)
	}
}

func (h *Harvester) record(o Outcome) {
	switch o.State {
	case StateSaved:
		metrics.BusinessesSaved.Inc()
		metrics.ReviewsScraped.Add(float64(o.Rows))
	case StateFailed:
		metrics.BusinessesFailed.Inc()
		h.logger.Warn("business failed", zap.String("business", o.Name), zap.Error(o.Err))
	case StateSkipped:
		metrics.BusinessesSkipped.Inc()
	}
}

func checkpointKey(biz venue.Listing) string {
	if biz.BusinessID != "" {
		return strings.ToLower(biz.BusinessID)
	}
	return strings.ToLower(biz.Name)
}
