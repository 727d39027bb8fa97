package bench

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/fieldline-data/rom.report/internal/rom"
)

// benchDatabase builds a small scalar-parameter database with smooth,
// strictly positive snapshot values.
func benchDatabase(t *testing.T, n int) *rom.Database {
	t.Helper()
	params := make([]float64, n)
	data := make([]float64, n*4)
	for i := 0; i < n; i++ {
		params[i] = float64(i)
		for j := 0; j < 4; j++ {
			data[i*4+j] = 1.0 + 0.5*float64(i) + 0.25*float64(j)
		}
	}
	db, err := rom.NewScalarDatabase(params, mat.NewDense(n, 4, data))
	if err != nil {
		t.Fatalf("NewScalarDatabase: %v", err)
	}
	return db
}

func waitForStatus(t *testing.T, r *Runner, want Status) State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		state := r.State()
		if state.Status == want {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %q, last status %q", want, r.State().Status)
	return State{}
}

// identityReduction passes snapshots through unchanged.
type identityReduction struct{}

func (identityReduction) Fit(*mat.Dense) error                          { return nil }
func (identityReduction) Transform(s *mat.Dense) (*mat.Dense, error)    { return s, nil }
func (identityReduction) Inverse(reduced *mat.Dense) (*mat.Dense, error) { return reduced, nil }
func (identityReduction) Name() string                                  { return "identity" }

// zeroRegressor predicts all zeros. The first Fit closes started; every Fit
// then blocks until release is closed.
type zeroRegressor struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	outDim  int
}

func newZeroRegressor(blocking bool) *zeroRegressor {
	z := &zeroRegressor{started: make(chan struct{}), release: make(chan struct{})}
	if !blocking {
		close(z.release)
	}
	return z
}

func (z *zeroRegressor) Fit(x, y *mat.Dense) error {
	_, z.outDim = y.Dims()
	z.once.Do(func() { close(z.started) })
	<-z.release
	return nil
}

func (z *zeroRegressor) Predict(x *mat.Dense) (*mat.Dense, error) {
	rows, _ := x.Dims()
	return mat.NewDense(rows, z.outDim, nil), nil
}

func (z *zeroRegressor) Name() string { return "zero" }

func stubFactory(reg *zeroRegressor) Factory {
	return Factory{
		Reduction: func(rom.ReductionKind) (rom.Reduction, error) { return identityReduction{}, nil },
		Regressor: func(rom.RegressorKind) (rom.Regressor, error) { return reg, nil },
	}
}

func TestStartValidation(t *testing.T) {
	db := benchDatabase(t, 10)

	tests := []struct {
		name    string
		db      *rom.Database
		req     Request
		wantErr string
	}{
		{"nil database", nil, Request{}, "no dataset loaded"},
		{"folds too small", db, Request{Folds: 1}, "folds must be at least 2"},
		{"folds exceed samples", db, Request{Folds: 20}, "folds over"},
		{"unknown reduction", db, Request{Folds: 5, Reductions: []string{"PCA"}}, "unknown reduction"},
		{"unknown regressor", db, Request{Folds: 5, Regressors: []string{"SVM"}}, "unknown regressor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(tt.db, nil)
			err := r.Start(context.Background(), tt.req)
			if err == nil {
				t.Fatalf("Start(%+v) succeeded, want error containing %q", tt.req, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Start error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunnerInitialState(t *testing.T) {
	r := NewRunner(benchDatabase(t, 10), nil)
	state := r.State()
	if state.Status != StatusIdle {
		t.Errorf("initial status = %q, want %q", state.Status, StatusIdle)
	}
	r.Stop() // no run in progress; must not panic
}

func TestRunnerCompletes(t *testing.T) {
	r := NewRunner(benchDatabase(t, 10), nil)
	req := Request{
		Reductions: []string{"POD"},
		Regressors: []string{"KNeighbors"},
		Folds:      5,
	}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForStatus(t, r, StatusComplete)

	if state.TotalCells != 1 || state.CompletedCells != 1 {
		t.Errorf("cells = %d/%d, want 1/1", state.CompletedCells, state.TotalCells)
	}
	if len(state.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(state.Results))
	}
	cell := state.Results[0]
	if cell.Err != "" {
		t.Fatalf("cell failed: %s", cell.Err)
	}
	if cell.Reduction != "POD" || cell.Regressor != "KNeighbors" {
		t.Errorf("cell strategy = %s, want POD+KNeighbors", cell.Strategy())
	}
	if len(cell.FoldErrors) != 5 {
		t.Errorf("got %d fold errors, want 5", len(cell.FoldErrors))
	}
	if math.IsNaN(cell.KFoldMean) || cell.KFoldMean < 0 {
		t.Errorf("kfold mean = %v, want finite non-negative", cell.KFoldMean)
	}
	if cell.FitSeconds < 0 || cell.PredictMicros < 0 {
		t.Errorf("negative timings: fit=%v predict=%v", cell.FitSeconds, cell.PredictMicros)
	}
	if state.Best == nil {
		t.Fatal("best cell not set")
	}
	if state.Best.Strategy() != "POD+KNeighbors" {
		t.Errorf("best = %s, want POD+KNeighbors", state.Best.Strategy())
	}
	if state.StartedAt == nil || state.CompletedAt == nil {
		t.Error("started/completed timestamps not set")
	}
	if state.Request == nil || state.Request.Seed != 1 {
		t.Errorf("request not carried with defaulted seed, got %+v", state.Request)
	}
}

func TestRunnerGridCounts(t *testing.T) {
	reg := newZeroRegressor(false)
	r := NewRunnerWith(benchDatabase(t, 10), nil, stubFactory(reg))
	req := Request{
		Reductions: []string{"POD", "AE"},
		Regressors: []string{"RBF", "GPR", "ANN"},
		Folds:      5,
	}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForStatus(t, r, StatusComplete)
	if state.TotalCells != 6 {
		t.Errorf("total cells = %d, want 6", state.TotalCells)
	}
	if len(state.Results) != 6 {
		t.Errorf("got %d results, want 6", len(state.Results))
	}
	// Snapshot values are strictly positive, so the all-zero prediction has
	// an error near one in every cell.
	for _, cell := range state.Results {
		if cell.Err != "" {
			t.Errorf("cell %s failed: %s", cell.Strategy(), cell.Err)
		}
		if cell.KFoldMean <= 0 {
			t.Errorf("cell %s mean = %v, want positive", cell.Strategy(), cell.KFoldMean)
		}
	}
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	reg := newZeroRegressor(true)
	r := NewRunnerWith(benchDatabase(t, 10), nil, stubFactory(reg))
	req := Request{Reductions: []string{"POD"}, Regressors: []string{"RBF", "GPR"}, Folds: 5}

	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-reg.started

	if err := r.Start(context.Background(), req); err == nil {
		t.Error("second Start succeeded, want already-in-progress error")
	} else if !strings.Contains(err.Error(), "already in progress") {
		t.Errorf("second Start error = %q, want already-in-progress", err)
	}

	r.Stop()
	close(reg.release)

	state := waitForStatus(t, r, StatusError)
	if !strings.Contains(state.Error, "stopped at cell") {
		t.Errorf("error = %q, want stopped-at-cell message", state.Error)
	}
	// The first cell was already in flight when Stop hit; the cancel lands
	// at the next cell boundary.
	if state.CompletedCells != 1 {
		t.Errorf("completed cells = %d, want 1", state.CompletedCells)
	}
	if state.CompletedAt == nil {
		t.Error("completed timestamp not set after stop")
	}
}

func TestRunnerRecordsCellError(t *testing.T) {
	reg := newZeroRegressor(false)
	factory := stubFactory(reg)
	factory.Regressor = func(k rom.RegressorKind) (rom.Regressor, error) {
		if k == rom.RegressorGPR {
			return nil, errors.New("kernel hyperparameters diverged")
		}
		return reg, nil
	}

	r := NewRunnerWith(benchDatabase(t, 10), nil, factory)
	req := Request{Reductions: []string{"POD"}, Regressors: []string{"RBF", "GPR"}, Folds: 5}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForStatus(t, r, StatusComplete)
	if len(state.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(state.Results))
	}
	var failed, ok int
	for _, cell := range state.Results {
		if cell.Err != "" {
			failed++
		} else {
			ok++
		}
	}
	if failed != 1 || ok != 1 {
		t.Errorf("failed/ok = %d/%d, want 1/1", failed, ok)
	}
	if len(state.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(state.Warnings))
	}
	if state.Best == nil || state.Best.Regressor != "RBF" {
		t.Errorf("best = %+v, want the surviving RBF cell", state.Best)
	}
}

func TestBestCell(t *testing.T) {
	tests := []struct {
		name    string
		results []CellResult
		want    string // strategy of expected best, "" for nil
	}{
		{"empty", nil, ""},
		{
			"all failed",
			[]CellResult{{Reduction: "POD", Regressor: "RBF", Err: "boom"}},
			"",
		},
		{
			"picks lowest mean",
			[]CellResult{
				{Reduction: "POD", Regressor: "RBF", KFoldMean: 0.05},
				{Reduction: "POD", Regressor: "GPR", KFoldMean: 0.01},
				{Reduction: "AE", Regressor: "RBF", KFoldMean: 0.20},
			},
			"POD+GPR",
		},
		{
			"skips failed cells with lower mean",
			[]CellResult{
				{Reduction: "POD", Regressor: "RBF", KFoldMean: 0.0, Err: "singular"},
				{Reduction: "POD", Regressor: "ANN", KFoldMean: 0.3},
			},
			"POD+ANN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bestCell(tt.results)
			if tt.want == "" {
				if got != nil {
					t.Errorf("bestCell = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("bestCell = nil, want %s", tt.want)
			}
			if got.Strategy() != tt.want {
				t.Errorf("bestCell = %s, want %s", got.Strategy(), tt.want)
			}
		})
	}
}

func TestStateDeepCopy(t *testing.T) {
	r := NewRunner(benchDatabase(t, 10), nil)
	r.mu.Lock()
	r.state.Results = []CellResult{{Reduction: "POD", Regressor: "RBF", KFoldMean: 0.1}}
	r.state.Warnings = []string{"w"}
	r.mu.Unlock()

	state := r.State()
	state.Results[0].KFoldMean = 99
	state.Warnings[0] = "mutated"

	orig := r.State()
	if orig.Results[0].KFoldMean != 0.1 {
		t.Error("State did not deep-copy results")
	}
	if orig.Warnings[0] != "w" {
		t.Error("State did not deep-copy warnings")
	}
}
