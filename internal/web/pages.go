package web

import (
	"net/http"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/monitoring"
	"github.com/fieldline-data/rom.report/internal/render"
	"github.com/fieldline-data/rom.report/internal/rom"
	"github.com/fieldline-data/rom.report/internal/session"
	"github.com/fieldline-data/rom.report/internal/version"
)

// pageCommon carries the fields every page template uses: the nav state and
// the one-shot alert passed through the redirect query.
type pageCommon struct {
	Title   string
	Active  string
	Error   string
	Notice  string
	Version string
}

func (ws *WebServer) common(r *http.Request, title, active string) pageCommon {
	q := r.URL.Query()
	return pageCommon{
		Title:   title,
		Active:  active,
		Error:   q.Get("error"),
		Notice:  q.Get("notice"),
		Version: version.Version,
	}
}

func (ws *WebServer) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ws.tmpl.ExecuteTemplate(w, name, data); err != nil {
		monitoring.Logf("web: render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// strategyOptions feeds the model-configuration fieldset shared by the
// predict, k-fold and benchmark forms.
type strategyOptions struct {
	Reductions  []rom.ReductionKind
	Regressors  []rom.RegressorKind
	RBFKernels  []rom.RBFBasis
	GPRKernels  []rom.GPRKernelKind
	Activations []rom.Activation
	Weightings  []rom.Weighting
	Components  []field.Component
	Defaults    *strategySpec
}

func (ws *WebServer) strategyOptions() strategyOptions {
	return strategyOptions{
		Reductions:  rom.ReductionKinds(),
		Regressors:  rom.RegressorKinds(),
		RBFKernels:  rom.RBFBases(),
		GPRKernels:  rom.GPRKernelKinds(),
		Activations: rom.Activations(),
		Weightings:  rom.Weightings(),
		Components:  field.Components[:],
		Defaults:    ws.defaultStrategy(),
	}
}

type datasetSummary struct {
	Tags       []string
	Params     []float64
	Components []string
	PointCount int
	Aligned    bool
}

func summarize(ds *field.Dataset) *datasetSummary {
	if ds == nil {
		return nil
	}
	s := &datasetSummary{
		Tags:       ds.Tags,
		Params:     ds.Params,
		PointCount: ds.PointCount,
		Aligned:    ds.Aligned(),
	}
	for _, c := range ds.Available() {
		s.Components = append(s.Components, c.String())
	}
	return s
}

type dataPageData struct {
	pageCommon
	File       *session.FileInfo
	HasMesh    bool
	Dataset    *datasetSummary
	SavePath   string
	ParamStart float64
	ParamEnd   float64
	ParamStep  float64
}

func (ws *WebServer) handleDataPage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	ws.renderPage(w, "data", dataPageData{
		pageCommon: ws.common(r, "Data", "data"),
		File:       sess.FileInfo(),
		HasMesh:    sess.Mesh() != nil,
		Dataset:    summarize(sess.Dataset()),
		SavePath:   sess.SavePath(),
		ParamStart: ws.cfg.GetParamStart(),
		ParamEnd:   ws.cfg.GetParamEnd(),
		ParamStep:  ws.cfg.GetParamStep(),
	})
}

// tagOption is one selectable parameter point.
type tagOption struct {
	Index int
	Tag   string
	Param float64
}

func tagOptions(ds *field.Dataset) []tagOption {
	if ds == nil {
		return nil
	}
	out := make([]tagOption, len(ds.Tags))
	for i, tag := range ds.Tags {
		out[i] = tagOption{Index: i, Tag: tag}
		if i < len(ds.Params) {
			out[i].Param = ds.Params[i]
		}
	}
	return out
}

type predictPageData struct {
	pageCommon
	HasDataset bool
	Tags       []tagOption
	Options    strategyOptions
	Result     *session.PredictionResult
}

func (ws *WebServer) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	ds := sess.Dataset()
	ws.renderPage(w, "predict", predictPageData{
		pageCommon: ws.common(r, "Predict", "predict"),
		HasDataset: ds != nil,
		Tags:       tagOptions(ds),
		Options:    ws.strategyOptions(),
		Result:     sess.Prediction(),
	})
}

type kfoldPageData struct {
	pageCommon
	HasDataset  bool
	SampleCount int
	DefaultK    int
	DefaultSeed int64
	Options     strategyOptions
	Result      *session.KFoldResult
}

func (ws *WebServer) handleKFoldPage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	ds := sess.Dataset()
	n := 0
	if ds != nil {
		n = len(ds.Tags)
	}
	k := ws.cfg.GetKFolds()
	if n > 0 && k > n {
		k = n
	}
	ws.renderPage(w, "kfold", kfoldPageData{
		pageCommon:  ws.common(r, "K-Fold", "kfold"),
		HasDataset:  ds != nil,
		SampleCount: n,
		DefaultK:    k,
		DefaultSeed: ws.cfg.GetKFoldSeed(),
		Options:     ws.strategyOptions(),
		Result:      sess.KFold(),
	})
}

type benchPageData struct {
	pageCommon
	HasDataset bool
	Options    strategyOptions
	Folds      int
	Seed       int64
	State      bench.State
}

func (ws *WebServer) handleBenchPage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	state := bench.State{Status: bench.StatusIdle}
	if runner := sess.Bench(); runner != nil {
		state = runner.State()
	}
	ws.renderPage(w, "bench", benchPageData{
		pageCommon: ws.common(r, "Benchmark", "bench"),
		HasDataset: sess.Dataset() != nil,
		Options:    ws.strategyOptions(),
		Folds:      ws.cfg.GetBenchFolds(),
		Seed:       ws.cfg.GetKFoldSeed(),
		State:      state,
	})
}

type visualizePageData struct {
	pageCommon
	HasMesh    bool
	HasDataset bool
	Fields     []string
	Tags       []string
	Colormaps  []string
	Views      []render.View
	WarpFactor float64
	Colormap   string
	Prediction *session.PredictionResult
	Latest     *session.PlotRecord
}

func (ws *WebServer) handleVisualizePage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	m := sess.Mesh()
	ds := sess.Dataset()

	data := visualizePageData{
		pageCommon: ws.common(r, "Visualize", "visualize"),
		HasMesh:    m != nil,
		HasDataset: ds != nil,
		Colormaps:  render.Colormaps(),
		Views:      render.Views(),
		WarpFactor: ws.cfg.GetWarpFactor(),
		Colormap:   ws.cfg.GetColormap(),
		Prediction: sess.Prediction(),
	}
	if m != nil {
		data.Fields = m.ScalarNames()
	}
	if ds != nil {
		data.Tags = ds.Tags
	}
	if plots := sess.Plots(); len(plots) > 0 {
		data.Latest = &plots[len(plots)-1]
	}
	ws.renderPage(w, "visualize", data)
}

type galleryPageData struct {
	pageCommon
	Plots []session.PlotRecord
}

func (ws *WebServer) handleGalleryPage(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	plots := sess.Plots()
	// Newest first.
	for i, j := 0, len(plots)-1; i < j; i, j = i+1, j-1 {
		plots[i], plots[j] = plots[j], plots[i]
	}
	ws.renderPage(w, "gallery", galleryPageData{
		pageCommon: ws.common(r, "Gallery", "gallery"),
		Plots:      plots,
	})
}
