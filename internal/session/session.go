// Package session holds per-browser experiment state. Every value lives in
// process memory: sessions are created on first contact, cleared by an
// explicit reset, and evicted after sitting idle. Nothing survives a server
// restart.
package session

import (
	"sync"
	"time"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/mesh"
	"github.com/fieldline-data/rom.report/internal/metrics"
)

// FileInfo describes the mesh file a session's dataset came from.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Points     int       `json:"points"`
	Tags       []string  `json:"tags"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PredSeries holds one held-out tag's truth, prediction, and per-point
// guarded relative error.
type PredSeries struct {
	Tag     string          `json:"tag"`
	Param   float64         `json:"param"`
	Truth   []float64       `json:"-"`
	Pred    []float64       `json:"-"`
	Errors  []float64       `json:"-"`
	Summary metrics.Summary `json:"summary"`
}

// PredictionResult is the outcome of one prediction test, kept so the
// predict page can re-render without refitting and so the threshold view
// can color the worst tag's error field.
type PredictionResult struct {
	Strategy  string          `json:"strategy"`
	Component string          `json:"component"`
	Mode      string          `json:"mode"` // "single" or "multi"
	Series    []PredSeries    `json:"series"`
	Relative  metrics.Summary `json:"relative"`
	WorstTag  string          `json:"worst_tag"`
	WorstIdx  int             `json:"worst_idx"`
	WorstErr  float64         `json:"worst_err"`
	FitSecs   float64         `json:"fit_secs"`
	CreatedAt time.Time       `json:"created_at"`
}

// WorstSeries returns the series for the worst tag, nil when absent.
func (r *PredictionResult) WorstSeries() *PredSeries {
	for i := range r.Series {
		if r.Series[i].Tag == r.WorstTag {
			return &r.Series[i]
		}
	}
	return nil
}

// KFoldResult is the outcome of one cross-validation run.
type KFoldResult struct {
	Strategy   string    `json:"strategy"`
	Component  string    `json:"component"`
	K          int       `json:"k"`
	Seed       int64     `json:"seed"`
	FoldErrors []float64 `json:"fold_errors"`
	Mean       float64   `json:"mean"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlotRecord is one generated image or chart kept for the gallery page.
type PlotRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Config    string    `json:"config"`
	MIME      string    `json:"mime"`
	Stage     string    `json:"stage"`
	Attempts  []string  `json:"attempts"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one user's working state. All access goes through the
// accessors, which take the session's own lock; handlers for the same
// session may run concurrently (browser tabs), so the lock is not optional.
type Session struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	lastSeen time.Time

	dataset  *field.Dataset
	mesh     *mesh.Mesh
	fileInfo *FileInfo
	savePath string

	prediction *PredictionResult
	kfold      *KFoldResult
	bench      *bench.Runner

	plots []PlotRecord
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now, lastSeen: now}
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was first seen.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastSeen returns the time of the most recent touch.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// SetDataset installs the assembled dataset and the mesh it came from.
func (s *Session) SetDataset(d *field.Dataset, m *mesh.Mesh, info *FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = d
	s.mesh = m
	s.fileInfo = info
	// A new dataset invalidates results computed against the old one.
	s.prediction = nil
	s.kfold = nil
}

// Dataset returns the session's dataset, or nil before any import.
func (s *Session) Dataset() *field.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Mesh returns the mesh backing the dataset, or nil when the dataset was
// loaded from array dumps rather than a mesh file.
func (s *Session) Mesh() *mesh.Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh
}

// FileInfo returns upload metadata, or nil before any import.
func (s *Session) FileInfo() *FileInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileInfo
}

// SetSavePath remembers the directory the user last saved arrays to.
func (s *Session) SetSavePath(path string) {
	s.mu.Lock()
	s.savePath = path
	s.mu.Unlock()
}

// SavePath returns the remembered save directory, empty if never set.
func (s *Session) SavePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savePath
}

// SetPrediction caches the latest prediction result.
func (s *Session) SetPrediction(r *PredictionResult) {
	s.mu.Lock()
	s.prediction = r
	s.mu.Unlock()
}

// Prediction returns the cached prediction result, or nil.
func (s *Session) Prediction() *PredictionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prediction
}

// SetKFold caches the latest cross-validation result.
func (s *Session) SetKFold(r *KFoldResult) {
	s.mu.Lock()
	s.kfold = r
	s.mu.Unlock()
}

// KFold returns the cached cross-validation result, or nil.
func (s *Session) KFold() *KFoldResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kfold
}

// SetBench installs the session's benchmark runner. The previous runner, if
// any, is the caller's to stop.
func (s *Session) SetBench(r *bench.Runner) {
	s.mu.Lock()
	s.bench = r
	s.mu.Unlock()
}

// Bench returns the session's benchmark runner, or nil before the first run.
func (s *Session) Bench() *bench.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bench
}

// AddPlot records a generated plot for the gallery.
func (s *Session) AddPlot(p PlotRecord) {
	s.mu.Lock()
	s.plots = append(s.plots, p)
	s.mu.Unlock()
}

// Plots returns the gallery records, newest last.
func (s *Session) Plots() []PlotRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlotRecord, len(s.plots))
	copy(out, s.plots)
	return out
}

// Plot looks a gallery record up by ID.
func (s *Session) Plot(id string) (PlotRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plots {
		if p.ID == id {
			return p, true
		}
	}
	return PlotRecord{}, false
}

// ClearPlots empties the gallery.
func (s *Session) ClearPlots() {
	s.mu.Lock()
	s.plots = nil
	s.mu.Unlock()
}

// Reset clears everything except the session's identity. A running
// benchmark is stopped first.
func (s *Session) Reset() {
	s.mu.Lock()
	runner := s.bench
	s.dataset = nil
	s.mesh = nil
	s.fileInfo = nil
	s.savePath = ""
	s.prediction = nil
	s.kfold = nil
	s.bench = nil
	s.plots = nil
	s.mu.Unlock()

	if runner != nil {
		runner.Stop()
	}
}
