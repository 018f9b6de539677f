// Package progress reports per-unit milestones and run tallies for the
// sequential pipeline.
package progress

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/clock"
)

// Stage denotes the type of milestone recorded by the tracker.
type Stage string

// Supported run stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageUnitDone  Stage = "UNIT_DONE"
	StageUnitError Stage = "UNIT_ERROR"
	StageUnitSkip  Stage = "UNIT_SKIP"
)

// Tracker tags every log line with the run ID and keeps the tallies the
// final summary reports. It is used from a single goroutine.
type Tracker struct {
	runID   uuid.UUID
	phase   string
	logger  *zap.Logger
	clock   clock.Clock
	started time.Time

	done    int
	errored int
	skipped int
}

// NewTracker mints a run ID and logs the run start.
func NewTracker(phase string, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		runID:   uuid.New(),
		phase:   phase,
		logger:  logger,
		clock:   clk,
		started: clk.Now(),
	}
	t.logger.Info("run started",
		zap.String("run_id", t.runID.String()),
		zap.String("phase", phase),
		zap.String("stage", string(StageRunStart)))
	return t
}

// RunID returns the minted run identifier.
func (t *Tracker) RunID() uuid.UUID {
	return t.runID
}

// UnitDone records one completed unit of work.
func (t *Tracker) UnitDone(unit string, fields ...zap.Field) {
	t.done++
	t.emit(StageUnitDone, unit, fields...)
}

// UnitError records one failed unit of work.
func (t *Tracker) UnitError(unit string, err error, fields ...zap.Field) {
	t.errored++
	t.emit(StageUnitError, unit, append(fields, zap.Error(err))...)
}

// UnitSkip records one skipped unit of work.
func (t *Tracker) UnitSkip(unit string, fields ...zap.Field) {
	t.skipped++
	t.emit(StageUnitSkip, unit, fields...)
}

// Done logs the final summary and returns the tallies.
func (t *Tracker) Done() (done, errored, skipped int) {
	t.logger.Info("run finished",
		zap.String("run_id", t.runID.String()),
		zap.String("phase", t.phase),
		zap.String("stage", string(StageRunDone)),
		zap.Int("done", t.done),
		zap.Int("errored", t.errored),
		zap.Int("skipped", t.skipped),
		zap.Duration("elapsed", t.clock.Now().Sub(t.started)))
	return t.done, t.errored, t.skipped
}

func (t *Tracker) emit(stage Stage, unit string, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("run_id", t.runID.String()),
		zap.String("phase", t.phase),
		zap.String("stage", string(stage)),
		zap.String("unit", unit),
		zap.Duration("elapsed", t.clock.Now().Sub(t.started)),
	}
	t.logger.Info("progress", append(base, fields...)...)
}
