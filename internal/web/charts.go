package web

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/httputil"
	"github.com/fieldline-data/rom.report/internal/units"
)

const chartAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

var viridisStops = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// handlePredictionChart renders the stored prediction as a truth-vs-predicted
// scatter, one series per held-out tag. Points on the diagonal are exact.
func (ws *WebServer) handlePredictionChart(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	pred := sess.Prediction()
	if pred == nil {
		httputil.NotFound(w, "no prediction available")
		return
	}

	// Snapshot matrices store displacements in meters and stress in pascals;
	// the units query parameter rescales the plot.
	unit := strings.TrimSpace(r.URL.Query().Get("units"))
	isStress := pred.Component == field.ComponentStress.Key()
	switch {
	case unit == "":
		if isStress {
			unit = units.Pascal
		} else {
			unit = units.Meter
		}
	case isStress && !units.IsValidStress(unit):
		httputil.BadRequest(w, fmt.Sprintf("invalid stress units %q (valid: %s)", unit, units.GetValidStressUnitsString()))
		return
	case !isStress && !units.IsValidDisplacement(unit):
		httputil.BadRequest(w, fmt.Sprintf("invalid displacement units %q (valid: %s)", unit, units.GetValidDisplacementUnitsString()))
		return
	}
	convert := func(v float64) float64 {
		if isStress {
			return units.ConvertStress(v, unit)
		}
		return units.ConvertDisplacement(v, unit)
	}

	total := 0
	for _, s := range pred.Series {
		total += len(s.Truth)
	}
	// Downsample by stride to keep the payload browser-friendly.
	stride := 1
	if total > 6000 {
		stride = int(math.Ceil(float64(total) / 6000.0))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range pred.Series {
		for i := 0; i < len(s.Truth); i += stride {
			truth, guess := convert(s.Truth[i]), convert(s.Pred[i])
			if truth < lo {
				lo = truth
			}
			if truth > hi {
				hi = truth
			}
			if guess < lo {
				lo = guess
			}
			if guess > hi {
				hi = guess
			}
		}
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Prediction vs Truth", Theme: "dark", Width: "100%", Height: "640px", AssetsHost: chartAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Prediction vs Truth — %s", pred.Strategy),
			Subtitle: fmt.Sprintf("component=%s units=%s mode=%s mean_rel_err=%.4g stride=%d (diagonal = exact)", pred.Component, units.Symbol(unit), pred.Mode, pred.Relative.Mean, stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo - pad, Max: hi + pad, Name: fmt.Sprintf("truth (%s)", units.Symbol(unit)), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: lo - pad, Max: hi + pad, Name: fmt.Sprintf("predicted (%s)", units.Symbol(unit)), NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	for _, s := range pred.Series {
		data := make([]opts.ScatterData, 0, len(s.Truth)/stride+1)
		for i := 0; i < len(s.Truth); i += stride {
			data = append(data, opts.ScatterData{Value: []interface{}{convert(s.Truth[i]), convert(s.Pred[i])}})
		}
		scatter.AddSeries(fmt.Sprintf("deltaT=%s", s.Tag), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	ws.renderChartPage(w, scatter)
}

// handleKFoldChart renders the stored cross-validation as a per-fold bar
// chart; the mean rides in the subtitle.
func (ws *WebServer) handleKFoldChart(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	kf := sess.KFold()
	if kf == nil {
		httputil.NotFound(w, "no cross-validation result available")
		return
	}

	x := make([]string, len(kf.FoldErrors))
	y := make([]opts.BarData, len(kf.FoldErrors))
	for i, e := range kf.FoldErrors {
		x[i] = fmt.Sprintf("fold %d", i+1)
		y[i] = opts.BarData{Value: e}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "520px", AssetsHost: chartAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%d-Fold Cross-Validation — %s", kf.K, kf.Strategy),
			Subtitle: fmt.Sprintf("component=%s seed=%d mean=%.4g", kf.Component, kf.Seed, kf.Mean),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("relative error", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(chartAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// handleBenchHeatmapChart renders the benchmark grid as a colored scatter:
// x is the regressor, y the reduction, color the k-fold mean error. Failed
// cells show as grey points.
func (ws *WebServer) handleBenchHeatmapChart(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	runner := sess.Bench()
	if runner == nil {
		httputil.NotFound(w, "no benchmark available")
		return
	}
	state := runner.State()
	if len(state.Results) == 0 {
		httputil.NotFound(w, "no benchmark cells finished yet")
		return
	}

	redIdx, regIdx := map[string]int{}, map[string]int{}
	var reds, regs []string
	for _, c := range state.Results {
		if _, ok := redIdx[c.Reduction]; !ok {
			redIdx[c.Reduction] = len(reds)
			reds = append(reds, c.Reduction)
		}
		if _, ok := regIdx[c.Regressor]; !ok {
			regIdx[c.Regressor] = len(regs)
			regs = append(regs, c.Regressor)
		}
	}

	var ok, failed []opts.ScatterData
	maxErr := 0.0
	for _, c := range state.Results {
		pt := opts.ScatterData{Value: []interface{}{regIdx[c.Regressor], redIdx[c.Reduction], c.KFoldMean}}
		if c.Err != "" {
			failed = append(failed, opts.ScatterData{Value: []interface{}{regIdx[c.Regressor], redIdx[c.Reduction], 0}})
			continue
		}
		if c.KFoldMean > maxErr {
			maxErr = c.KFoldMean
		}
		ok = append(ok, pt)
	}
	if maxErr == 0 {
		maxErr = 1
	}

	subtitle := fmt.Sprintf("x: %s — y: %s", strings.Join(regs, ", "), strings.Join(reds, ", "))
	if state.Best != nil {
		subtitle += fmt.Sprintf(" — best %s (%.4g)", state.Best.Strategy(), state.Best.KFoldMean)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Benchmark Heatmap", Theme: "dark", Width: "100%", Height: "520px", AssetsHost: chartAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Benchmark Error Heatmap", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -0.5, Max: float64(len(regs)) - 0.5, Name: "regressor", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -0.5, Max: float64(len(reds)) - 0.5, Name: "reduction", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxErr),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisStops},
		}),
	)
	scatter.AddSeries("error", ok, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 40}))
	if len(failed) > 0 {
		scatter.AddSeries("failed", failed, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 40}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	}

	ws.renderChartPage(w, scatter)
}

// handleBenchFitTimeChart renders fit cost per strategy pair.
func (ws *WebServer) handleBenchFitTimeChart(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	runner := sess.Bench()
	if runner == nil {
		httputil.NotFound(w, "no benchmark available")
		return
	}
	state := runner.State()
	if len(state.Results) == 0 {
		httputil.NotFound(w, "no benchmark cells finished yet")
		return
	}

	var x []string
	var y []opts.BarData
	for _, c := range state.Results {
		if c.Err != "" {
			continue
		}
		x = append(x, c.Strategy())
		y = append(y, opts.BarData{Value: c.FitSeconds})
	}
	if len(x) == 0 {
		httputil.NotFound(w, "every benchmark cell failed")
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "520px", AssetsHost: chartAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Fit Time by Strategy", Subtitle: "seconds per final refit"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("fit seconds", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(chartAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func (ws *WebServer) renderChartPage(w http.ResponseWriter, chart chartRenderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
