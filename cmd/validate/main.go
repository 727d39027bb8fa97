// Validate runs a leave-one-out check of a reduction+regression strategy
// against a saved snapshot dataset: it refits the model without one
// snapshot row, predicts that row back, reports the guarded relative error,
// and renders the comparison figures plus a k-fold cross-validation chart.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/metrics"
	"github.com/fieldline-data/rom.report/internal/rom"
)

// Config holds the validation run settings.
type Config struct {
	DataDir   string
	Component string
	Holdout   int
	Reduction string
	Regressor string
	Rank      int
	Epsilon   float64
	Neighbors int
	Radius    float64
	Folds     int
	Seed      int64
	OutDir    string
}

// validation carries everything the summary and the figures need.
type validation struct {
	Strategy   string
	Component  field.Component
	HoldoutTag string
	Param      float64
	Points     int

	TrainParams []float64
	TrainMeans  []float64
	TruthMean   float64
	PredMean    float64

	Truth     []float64
	Predicted []float64
	RelErrors []float64
	Summary   metrics.Summary
	MaxIdx    int

	FoldErrors []float64
	FoldStats  metrics.Summary
}

func main() {
	cfg := parseFlags()
	if cfg.DataDir == "" {
		log.Fatal("Dataset directory is required (-data)")
	}

	v, err := runValidation(cfg)
	if err != nil {
		log.Fatalf("validation failed: %v", err)
	}
	printSummary(v, cfg)

	if cfg.OutDir == "" {
		return
	}
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}
	figures := []struct {
		name string
		draw func(string) error
	}{
		{"mean_comparison.png", func(p string) error { return meanComparisonPlot(v, p) }},
		{"max_error_point.png", func(p string) error { return maxPointPlot(v, p) }},
		{"point_comparison.png", func(p string) error { return pointComparisonPlot(v, p) }},
		{"kfold_errors.png", func(p string) error { return kfoldPlot(v, p) }},
	}
	for _, fig := range figures {
		path := filepath.Join(cfg.OutDir, fig.name)
		if err := fig.draw(path); err != nil {
			log.Fatalf("render %s: %v", fig.name, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DataDir, "data", "", "directory holding the NPY dataset dumps")
	flag.StringVar(&cfg.Component, "component", "S", "field component to validate (X, Y, Z or S)")
	flag.IntVar(&cfg.Holdout, "holdout", 3, "snapshot row index to leave out")
	flag.StringVar(&cfg.Reduction, "reduction", "POD", "reduction strategy (POD, PODAE, AE)")
	flag.StringVar(&cfg.Regressor, "regressor", "RBF", "regression strategy (RBF, GPR, ANN, KNeighbors, RadiusNeighbors)")
	flag.IntVar(&cfg.Rank, "rank", 0, "POD modes to keep (0 keeps all)")
	flag.Float64Var(&cfg.Epsilon, "epsilon", 0.02, "RBF shape parameter")
	flag.IntVar(&cfg.Neighbors, "neighbors", 5, "neighbor count for KNeighbors")
	flag.Float64Var(&cfg.Radius, "radius", 60, "neighbor radius for RadiusNeighbors")
	flag.IntVar(&cfg.Folds, "folds", 7, "cross-validation fold count")
	flag.Int64Var(&cfg.Seed, "seed", 1, "cross-validation shuffle seed")
	flag.StringVar(&cfg.OutDir, "out", "plots", "directory for the PNG figures (empty: summary only)")

	flag.Parse()

	return cfg
}

func runValidation(cfg Config) (*validation, error) {
	fsys := fsutil.OSFileSystem{}
	ds, files, err := field.LoadDataset(fsys, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	comp, err := field.ParseComponent(cfg.Component)
	if err != nil {
		return nil, err
	}
	set := ds.Set(comp)
	if set.Empty() {
		return nil, fmt.Errorf("no %s snapshots in %s (loaded %s)", comp, cfg.DataDir, strings.Join(files, ", "))
	}
	db, err := rom.NewScalarDatabase(ds.Params, set.Matrix())
	if err != nil {
		return nil, err
	}
	if cfg.Holdout < 0 || cfg.Holdout >= db.Len() {
		return nil, fmt.Errorf("holdout row %d out of range [0, %d)", cfg.Holdout, db.Len())
	}

	train, test, err := db.Split([]int{cfg.Holdout})
	if err != nil {
		return nil, err
	}
	reduction, err := buildReduction(cfg)
	if err != nil {
		return nil, err
	}
	regressor, err := buildRegressor(cfg)
	if err != nil {
		return nil, err
	}
	model, err := rom.New(train, reduction, regressor)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	predicted, err := model.PredictOne(test.Params.RawRowView(0))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	truth := test.Snapshots.RawRowView(0)

	rel, err := metrics.RelativeError(truth, predicted)
	if err != nil {
		return nil, err
	}
	summary, err := metrics.Summarize(rel)
	if err != nil {
		return nil, err
	}
	maxIdx, _ := metrics.MaxPoint(rel)

	v := &validation{
		Strategy:   model.Name(),
		Component:  comp,
		HoldoutTag: field.FormatTag(test.Params.At(0, 0)),
		Param:      test.Params.At(0, 0),
		Points:     len(truth),
		TruthMean:  stat.Mean(truth, nil),
		PredMean:   stat.Mean(predicted, nil),
		Truth:      truth,
		Predicted:  predicted,
		RelErrors:  rel,
		Summary:    summary,
		MaxIdx:     maxIdx,
	}
	rows, _ := train.Snapshots.Dims()
	for i := 0; i < rows; i++ {
		v.TrainParams = append(v.TrainParams, train.Params.At(i, 0))
		v.TrainMeans = append(v.TrainMeans, stat.Mean(train.Snapshots.RawRowView(i), nil))
	}

	// KFoldErrors refits the pair in place, so the holdout model keeps its
	// own instances.
	kfReduction, err := buildReduction(cfg)
	if err != nil {
		return nil, err
	}
	kfRegressor, err := buildRegressor(cfg)
	if err != nil {
		return nil, err
	}
	v.FoldErrors, err = rom.KFoldErrors(db, kfReduction, kfRegressor, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("k-fold: %w", err)
	}
	if v.FoldStats, err = metrics.Summarize(v.FoldErrors); err != nil {
		return nil, err
	}
	return v, nil
}

func buildReduction(cfg Config) (rom.Reduction, error) {
	kind, err := rom.ParseReductionKind(cfg.Reduction)
	if err != nil {
		return nil, err
	}
	if kind == rom.ReductionPOD && cfg.Rank > 0 {
		return rom.NewPOD(cfg.Rank), nil
	}
	return rom.NewReduction(kind)
}

func buildRegressor(cfg Config) (rom.Regressor, error) {
	kind, err := rom.ParseRegressorKind(cfg.Regressor)
	if err != nil {
		return nil, err
	}
	switch kind {
	case rom.RegressorRBF:
		return rom.NewRBF(rom.RBFOptions{Epsilon: cfg.Epsilon}), nil
	case rom.RegressorKNeighbors:
		return rom.NewKNeighbors(rom.KNeighborsOptions{K: cfg.Neighbors}), nil
	case rom.RegressorRadius:
		return rom.NewRadiusNeighbors(rom.RadiusOptions{Radius: cfg.Radius}), nil
	}
	return rom.NewRegressor(kind)
}

func printSummary(v *validation, cfg Config) {
	fmt.Printf("strategy: %s\n", v.Strategy)
	fmt.Printf("component: %s\n", v.Component)
	fmt.Printf("holdout: row %d (deltaT=%s)\n", cfg.Holdout, v.HoldoutTag)
	fmt.Printf("points per snapshot: %d\n", v.Points)
	fmt.Printf("mean relative error: %.4e\n", v.Summary.Mean)
	fmt.Printf("max relative error: %.4e at point %d\n", v.Summary.Max, v.MaxIdx)
	fmt.Printf("%d-fold cross-validation: mean %.4e, min %.4e, max %.4e\n",
		len(v.FoldErrors), v.FoldStats.Mean, v.FoldStats.Min, v.FoldStats.Max)
}

// matplotlib tab palette, same hues the analysis notebooks used.
var (
	colorTrain = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorPred  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorTruth = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// meanComparisonPlot scatters the training snapshot means over deltaT with
// the predicted and true means of the held-out snapshot.
func meanComparisonPlot(v *validation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s leave-one-out, %s", v.Strategy, v.Component)
	p.X.Label.Text = "deltaT"
	p.Y.Label.Text = "snapshot mean"
	p.Add(plotter.NewGrid())

	train := make(plotter.XYs, len(v.TrainParams))
	for i := range v.TrainParams {
		train[i] = plotter.XY{X: v.TrainParams[i], Y: v.TrainMeans[i]}
	}
	if err := addScatter(p, "training data", train, colorTrain); err != nil {
		return err
	}
	if err := addScatter(p, "prediction", plotter.XYs{{X: v.Param, Y: v.PredMean}}, colorPred); err != nil {
		return err
	}
	if err := addScatter(p, "validation", plotter.XYs{{X: v.Param, Y: v.TruthMean}}, colorTruth); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// maxPointPlot marks the single worst-predicted point against the training
// means.
func maxPointPlot(v *validation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Max error point %d, relative error %.2f%%", v.MaxIdx, v.RelErrors[v.MaxIdx]*100)
	p.X.Label.Text = "deltaT"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	train := make(plotter.XYs, len(v.TrainParams))
	for i := range v.TrainParams {
		train[i] = plotter.XY{X: v.TrainParams[i], Y: v.TrainMeans[i]}
	}
	if err := addScatter(p, "training means", train, colorTrain); err != nil {
		return err
	}
	if err := addScatter(p, "prediction", plotter.XYs{{X: v.Param, Y: v.Predicted[v.MaxIdx]}}, colorPred); err != nil {
		return err
	}
	if err := addScatter(p, "validation", plotter.XYs{{X: v.Param, Y: v.Truth[v.MaxIdx]}}, colorTruth); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// pointComparisonPlot overlays truth and prediction for every point of the
// held-out snapshot.
func pointComparisonPlot(v *validation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Point-by-point comparison, deltaT=%s", v.HoldoutTag)
	p.X.Label.Text = "point index"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	truthPts := make(plotter.XYs, len(v.Truth))
	predPts := make(plotter.XYs, len(v.Predicted))
	for i := range v.Truth {
		truthPts[i] = plotter.XY{X: float64(i), Y: v.Truth[i]}
		predPts[i] = plotter.XY{X: float64(i), Y: v.Predicted[i]}
	}
	if err := addScatter(p, "real data", truthPts, colorTruth); err != nil {
		return err
	}
	if err := addScatter(p, "predicted data", predPts, colorPred); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// kfoldPlot draws the per-fold cross-validation errors with the mean as a
// dashed line.
func kfoldPlot(v *validation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d-fold cross-validation, %s", len(v.FoldErrors), v.Strategy)
	p.Y.Label.Text = "mean relative error"

	bars, err := plotter.NewBarChart(plotter.Values(v.FoldErrors), vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = colorTrain
	bars.LineStyle.Width = 0
	p.Add(bars)

	labels := make([]string, len(v.FoldErrors))
	for i := range labels {
		labels[i] = fmt.Sprintf("fold %d", i+1)
	}
	p.NominalX(labels...)

	mean := plotter.XYs{
		{X: -0.5, Y: v.FoldStats.Mean},
		{X: float64(len(v.FoldErrors)) - 0.5, Y: v.FoldStats.Mean},
	}
	line, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	line.LineStyle.Color = colorPred
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("mean %.2e", v.FoldStats.Mean), line)

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func addScatter(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)
	p.Legend.Add(label, sc)
	return nil
}
