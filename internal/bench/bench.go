// Package bench runs the strategy benchmark grid: every requested reduction
// crossed with every requested regressor, each cell scored by k-fold
// cross-validation and timed for fit and predict cost. The grid runs in a
// background goroutine; the dashboard polls the state.
package bench

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fieldline-data/rom.report/internal/monitoring"
	"github.com/fieldline-data/rom.report/internal/rom"
	"github.com/fieldline-data/rom.report/internal/timeutil"
)

// Status represents the current state of a benchmark run.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Request defines the grid for one benchmark run. Empty kind lists mean
// every kind the engine supports.
type Request struct {
	Reductions []string `json:"reductions,omitempty"`
	Regressors []string `json:"regressors,omitempty"`
	Component  string   `json:"component,omitempty"`
	Folds      int      `json:"folds"`
	Seed       int64    `json:"seed"`
}

// CellResult holds the outcome for one reduction+regressor cell.
type CellResult struct {
	Reduction     string    `json:"reduction"`
	Regressor     string    `json:"regressor"`
	KFoldMean     float64   `json:"kfold_mean"`
	FoldErrors    []float64 `json:"fold_errors,omitempty"`
	FitSeconds    float64   `json:"fit_seconds"`
	PredictMicros float64   `json:"predict_micros"`
	AllocMB       float64   `json:"alloc_mb"`
	Err           string    `json:"error,omitempty"`
}

// Strategy returns the cell's display name, e.g. "POD+RBF".
func (c CellResult) Strategy() string {
	return c.Reduction + "+" + c.Regressor
}

// State holds the current state and results of a benchmark run.
type State struct {
	Status         Status       `json:"status"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	TotalCells     int          `json:"total_cells"`
	CompletedCells int          `json:"completed_cells"`
	CurrentCell    *CellResult  `json:"current_cell,omitempty"`
	Results        []CellResult `json:"results"`
	Best           *CellResult  `json:"best,omitempty"`
	Error          string       `json:"error,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
	Request        *Request     `json:"request,omitempty"`
}

// Factory builds the strategy instances a run benchmarks. Tests swap in
// stubs; the dashboard installs config-tuned builders.
type Factory struct {
	Reduction func(rom.ReductionKind) (rom.Reduction, error)
	Regressor func(rom.RegressorKind) (rom.Regressor, error)
}

func defaultFactory() Factory {
	return Factory{Reduction: rom.NewReduction, Regressor: rom.NewRegressor}
}

// Runner orchestrates benchmark runs over one dataset.
type Runner struct {
	db      *rom.Database
	clock   timeutil.Clock
	factory Factory

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
}

// NewRunner builds a runner over the given database. A nil clock means the
// real one.
func NewRunner(db *rom.Database, clock timeutil.Clock) *Runner {
	return NewRunnerWith(db, clock, defaultFactory())
}

// NewRunnerWith is NewRunner with explicit strategy builders.
func NewRunnerWith(db *rom.Database, clock timeutil.Clock, factory Factory) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if factory.Reduction == nil {
		factory.Reduction = rom.NewReduction
	}
	if factory.Regressor == nil {
		factory.Regressor = rom.NewRegressor
	}
	return &Runner{
		db:      db,
		clock:   clock,
		factory: factory,
		state:   State{Status: StatusIdle},
	}
}

// State returns a copy of the current benchmark state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	results := make([]CellResult, len(r.state.Results))
	copy(results, r.state.Results)
	state.Results = results
	if r.state.Warnings != nil {
		state.Warnings = append([]string(nil), r.state.Warnings...)
	}
	return state
}

// addWarning appends a warning message to the run state.
func (r *Runner) addWarning(msg string) {
	r.mu.Lock()
	r.state.Warnings = append(r.state.Warnings, msg)
	r.mu.Unlock()
}

// cell pairs one reduction kind with one regressor kind.
type cell struct {
	reduction rom.ReductionKind
	regressor rom.RegressorKind
}

// Start validates the request and launches the grid in the background. It
// returns an error when the request is unusable or a run is in progress.
func (r *Runner) Start(ctx context.Context, req Request) error {
	if r.db == nil || r.db.Len() == 0 {
		return fmt.Errorf("bench: no dataset loaded")
	}

	if req.Folds == 0 {
		req.Folds = 7
	}
	if req.Folds < 2 {
		return fmt.Errorf("bench: folds must be at least 2, got %d", req.Folds)
	}
	if req.Folds > r.db.Len() {
		return fmt.Errorf("bench: %d folds over %d snapshots", req.Folds, r.db.Len())
	}
	if req.Seed == 0 {
		req.Seed = 1
	}

	reductions, err := parseReductions(req.Reductions)
	if err != nil {
		return err
	}
	regressors, err := parseRegressors(req.Regressors)
	if err != nil {
		return err
	}

	cells := make([]cell, 0, len(reductions)*len(regressors))
	for _, red := range reductions {
		for _, reg := range regressors {
			cells = append(cells, cell{reduction: red, regressor: reg})
		}
	}
	if len(cells) == 0 {
		return fmt.Errorf("bench: no strategy cells to run")
	}

	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return fmt.Errorf("bench: benchmark already in progress")
	}

	now := r.clock.Now()
	r.state = State{
		Status:     StatusRunning,
		StartedAt:  &now,
		TotalCells: len(cells),
		Results:    make([]CellResult, 0, len(cells)),
		Request:    &req,
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(runCtx, req, cells)

	return nil
}

// Stop cancels a running benchmark.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// run executes the grid in a background goroutine.
func (r *Runner) run(ctx context.Context, req Request, cells []cell) {
	total := len(cells)

	for i, c := range cells {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.state.Status = StatusError
			r.state.Error = fmt.Sprintf("benchmark stopped at cell %d/%d: %v", i, total, ctx.Err())
			now := r.clock.Now()
			r.state.CompletedAt = &now
			r.mu.Unlock()
			return
		default:
		}

		monitoring.Logf("[bench] cell %d/%d: %s+%s", i+1, total, c.reduction, c.regressor)

		result := r.runCell(req, c)
		if result.Err != "" {
			r.addWarning(fmt.Sprintf("cell %d (%s): %s", i+1, result.Strategy(), result.Err))
		}

		r.mu.Lock()
		r.state.Results = append(r.state.Results, result)
		r.state.CompletedCells = i + 1
		r.state.CurrentCell = &result
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.state.Status = StatusComplete
	r.state.Best = bestCell(r.state.Results)
	now := r.clock.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	monitoring.Logf("[bench] benchmark complete: %d cells evaluated", total)
}

// runCell scores one strategy pair. Failures land in the cell's Err field
// rather than aborting the grid, so one broken strategy does not hide the
// others.
func (r *Runner) runCell(req Request, c cell) CellResult {
	result := CellResult{
		Reduction: c.reduction.String(),
		Regressor: c.regressor.String(),
	}

	reduction, err := r.factory.Reduction(c.reduction)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	regressor, err := r.factory.Regressor(c.regressor)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	foldErrs, err := rom.KFoldErrors(r.db, reduction, regressor, req.Folds, req.Seed)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.FoldErrors = foldErrs
	result.KFoldMean = stat.Mean(foldErrs, nil)

	// Refit on the full dataset for the timing and memory columns.
	model, err := rom.New(r.db, reduction, regressor)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fitStart := r.clock.Now()
	if err := model.Fit(); err != nil {
		result.Err = err.Error()
		return result
	}
	result.FitSeconds = r.clock.Since(fitStart).Seconds()
	runtime.ReadMemStats(&after)
	result.AllocMB = float64(after.TotalAlloc-before.TotalAlloc) / (1 << 20)

	param := mat.Row(nil, 0, r.db.Params)
	predStart := r.clock.Now()
	if _, err := model.PredictOne(param); err != nil {
		result.Err = err.Error()
		return result
	}
	result.PredictMicros = float64(r.clock.Since(predStart).Microseconds())

	return result
}

// bestCell picks the cell with the lowest cross-validated error, ignoring
// cells that failed. Nil when every cell failed.
func bestCell(results []CellResult) *CellResult {
	var best *CellResult
	for i := range results {
		if results[i].Err != "" {
			continue
		}
		if best == nil || results[i].KFoldMean < best.KFoldMean {
			best = &results[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func parseReductions(names []string) ([]rom.ReductionKind, error) {
	if len(names) == 0 {
		return rom.ReductionKinds(), nil
	}
	kinds := make([]rom.ReductionKind, 0, len(names))
	for _, name := range names {
		k, err := rom.ParseReductionKind(name)
		if err != nil {
			return nil, fmt.Errorf("bench: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func parseRegressors(names []string) ([]rom.RegressorKind, error) {
	if len(names) == 0 {
		return rom.RegressorKinds(), nil
	}
	kinds := make([]rom.RegressorKind, 0, len(names))
	for _, name := range names {
		k, err := rom.ParseRegressorKind(name)
		if err != nil {
			return nil, fmt.Errorf("bench: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
