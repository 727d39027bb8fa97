package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/metrics"
	"github.com/fieldline-data/rom.report/internal/rom"
	"github.com/fieldline-data/rom.report/internal/session"
)

// modelingDataset returns the session dataset with row agreement restored.
// Partial extractions leave component sets of unequal length; restricting to
// the shared tags keeps positional indexing safe everywhere downstream.
func modelingDataset(sess *session.Session) (*field.Dataset, error) {
	ds := sess.Dataset()
	if ds == nil {
		return nil, fmt.Errorf("no dataset assembled; load one on the data page first")
	}
	if !ds.Aligned() {
		return ds.AlignedSubset()
	}
	return ds, nil
}

// componentDatabase builds the scalar-parameter training database for one
// component of the dataset.
func componentDatabase(ds *field.Dataset, comp field.Component) (*rom.Database, error) {
	set := ds.Set(comp)
	if set.Empty() {
		return nil, fmt.Errorf("no %s snapshots in the dataset", comp)
	}
	return rom.NewScalarDatabase(ds.Params, set.Matrix())
}

// parseHoldout reads the comma-separated validation indexes, defaulting to
// the first min(3, n-1) rows.
func parseHoldout(r *http.Request, n int) ([]int, error) {
	raw := strings.TrimSpace(r.FormValue("holdout"))
	if raw == "" {
		count := 3
		if count > n-1 {
			count = n - 1
		}
		idx := make([]int, count)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}

	var idx []int
	seen := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid holdout index %q", part)
		}
		if v < 0 || v >= n {
			return nil, fmt.Errorf("holdout index %d out of range [0, %d)", v, n)
		}
		if seen[v] {
			return nil, fmt.Errorf("duplicate holdout index %d", v)
		}
		seen[v] = true
		idx = append(idx, v)
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("no holdout indexes given")
	}
	if len(idx) >= n {
		return nil, fmt.Errorf("holdout covers every row; leave at least one for training")
	}
	return idx, nil
}

// handlePredict runs a prediction test. Single mode fits a fresh model per
// held-out point; multi mode fits once on the complement and predicts every
// held-out point with the same model.
func (ws *WebServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	ds, err := modelingDataset(sess)
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}
	comp, err := field.ParseComponent(r.FormValue("component"))
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}
	db, err := componentDatabase(ds, comp)
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}
	spec, err := ws.strategyFromForm(r)
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}
	holdout, err := parseHoldout(r, db.Len())
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}
	mode := r.FormValue("mode")
	if mode == "" {
		mode = "single"
	}
	if mode != "single" && mode != "multi" {
		redirectBack(w, r, "/predict", fmt.Errorf("unknown validation mode %q", mode))
		return
	}

	started := ws.clock.Now()
	var series []session.PredSeries
	switch mode {
	case "single":
		series, err = ws.predictSingle(ds, db, spec, holdout)
	case "multi":
		series, err = ws.predictMulti(ds, db, spec, holdout)
	}
	if err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}

	result := &session.PredictionResult{
		Strategy:  spec.Name(),
		Component: comp.Key(),
		Mode:      mode,
		Series:    series,
		FitSecs:   ws.clock.Since(started).Seconds(),
		CreatedAt: ws.clock.Now(),
	}

	var all []float64
	result.WorstErr = -1
	for _, s := range series {
		all = append(all, s.Errors...)
		if idx, val := metrics.MaxPoint(s.Errors); val > result.WorstErr {
			result.WorstTag, result.WorstIdx, result.WorstErr = s.Tag, idx, val
		}
	}
	if result.Relative, err = metrics.Summarize(all); err != nil {
		redirectBack(w, r, "/predict", err)
		return
	}

	sess.SetPrediction(result)
	redirectNotice(w, r, "/predict", fmt.Sprintf("%s on %s (%s mode): mean relative error %.4g over %d point(s)",
		spec.Name(), comp, mode, result.Relative.Mean, len(series)))
}

// predictSingle trains one model per held-out row, excluding only that row.
func (ws *WebServer) predictSingle(ds *field.Dataset, db *rom.Database, spec *strategySpec, holdout []int) ([]session.PredSeries, error) {
	series := make([]session.PredSeries, 0, len(holdout))
	for _, idx := range holdout {
		train, test, err := db.Split([]int{idx})
		if err != nil {
			return nil, err
		}
		pred, err := ws.fitPredict(train, test, spec)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", ds.Tags[idx], err)
		}
		s, err := newPredSeries(ds, idx, test.Snapshots.RawRowView(0), pred.RawRowView(0))
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

// predictMulti trains once on the complement of the holdout set.
func (ws *WebServer) predictMulti(ds *field.Dataset, db *rom.Database, spec *strategySpec, holdout []int) ([]session.PredSeries, error) {
	train, test, err := db.Split(holdout)
	if err != nil {
		return nil, err
	}
	pred, err := ws.fitPredict(train, test, spec)
	if err != nil {
		return nil, err
	}
	series := make([]session.PredSeries, 0, len(holdout))
	for row, idx := range holdout {
		s, err := newPredSeries(ds, idx, test.Snapshots.RawRowView(row), pred.RawRowView(row))
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

func (ws *WebServer) fitPredict(train, test *rom.Database, spec *strategySpec) (*mat.Dense, error) {
	reduction, err := spec.buildReduction()
	if err != nil {
		return nil, err
	}
	regressor, err := spec.buildRegressor()
	if err != nil {
		return nil, err
	}
	model, err := rom.New(train, reduction, regressor)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(); err != nil {
		return nil, err
	}
	return model.Predict(test.Params)
}

func newPredSeries(ds *field.Dataset, idx int, truth, pred []float64) (session.PredSeries, error) {
	errs, err := metrics.RelativeError(truth, pred)
	if err != nil {
		return session.PredSeries{}, err
	}
	summary, err := metrics.Summarize(errs)
	if err != nil {
		return session.PredSeries{}, err
	}
	return session.PredSeries{
		Tag:     ds.Tags[idx],
		Param:   ds.Params[idx],
		Truth:   append([]float64(nil), truth...),
		Pred:    append([]float64(nil), pred...),
		Errors:  errs,
		Summary: summary,
	}, nil
}

// handleKFold cross-validates the selected strategy over the dataset.
func (ws *WebServer) handleKFold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	ds, err := modelingDataset(sess)
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}
	comp, err := field.ParseComponent(r.FormValue("component"))
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}
	db, err := componentDatabase(ds, comp)
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}
	spec, err := ws.strategyFromForm(r)
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}

	defaultK := ws.cfg.GetKFolds()
	if defaultK > db.Len() {
		defaultK = db.Len()
	}
	k, err := formInt(r, "k", defaultK)
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}
	seed, err := formInt64(r, "seed", ws.cfg.GetKFoldSeed())
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}

	reduction, err := spec.buildReduction()
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}
	regressor, err := spec.buildRegressor()
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}

	foldErrs, err := rom.KFoldErrors(db, reduction, regressor, k, seed)
	if err != nil {
		redirectBack(w, r, "/kfold", err)
		return
	}

	sess.SetKFold(&session.KFoldResult{
		Strategy:   spec.Name(),
		Component:  comp.Key(),
		K:          k,
		Seed:       seed,
		FoldErrors: foldErrs,
		Mean:       stat.Mean(foldErrs, nil),
		CreatedAt:  ws.clock.Now(),
	})
	redirectNotice(w, r, "/kfold", fmt.Sprintf("%s on %s: %d-fold mean relative error %.4g",
		spec.Name(), comp, k, stat.Mean(foldErrs, nil)))
}
