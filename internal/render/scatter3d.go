package render

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// echartsAssetsPrefix serves the chart runtime to the browser. The rendered
// document is otherwise self-contained.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Scatter3DRenderer draws the scene as an interactive 3D point cloud. The
// output is an HTML document; the camera is controlled in the browser, so
// view presets do not apply to this stage.
type Scatter3DRenderer struct {
	Width  string // default "900px"
	Height string // default "900px"
}

func (r *Scatter3DRenderer) Stage() Stage { return Stage3D }

func (r *Scatter3DRenderer) Render(scene *Scene) (*Result, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	width, height := r.Width, r.Height
	if width == "" {
		width = "900px"
	}
	if height == "" {
		height = "900px"
	}

	symbolSize := scene.PointSize
	if symbolSize <= 0 {
		symbolSize = 4
	}

	scatter := charts.NewScatter3D()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: scene.Title, Theme: "dark", Width: width, Height: height, AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: scene.Title, Subtitle: scene.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithGrid3DOpts(opts.Grid3D{Show: opts.Bool(true), BoxWidth: 100, BoxDepth: 100}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X", Show: opts.Bool(true)}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y", Show: opts.Bool(true)}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z", Show: opts.Bool(true)}),
	}

	switch {
	case scene.Classes != nil:
		scatter.SetGlobalOptions(global...)
		above, below := splitClasses(scene)
		aboveColor, belowColor := scene.Classes.AboveColor, scene.Classes.BelowColor
		if aboveColor == "" {
			aboveColor = "#FF0000"
		}
		if belowColor == "" {
			belowColor = "#0000FF"
		}
		aboveAlpha, belowAlpha := scene.Classes.AboveAlpha, scene.Classes.BelowAlpha
		if aboveAlpha == 0 {
			aboveAlpha = 1.0
		}
		if belowAlpha == 0 {
			belowAlpha = 0.3
		}
		scatter.AddSeries("above threshold", above,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: float32(symbolSize)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: aboveColor, Opacity: opts.Float(float32(aboveAlpha))}))
		scatter.AddSeries("below threshold", below,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: float32(symbolSize)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: belowColor, Opacity: opts.Float(float32(belowAlpha))}))

	case scene.Scalar != nil:
		cm := DefaultColormap()
		if scene.Colormap != "" {
			parsed, err := ParseColormap(scene.Colormap)
			if err != nil {
				return nil, err
			}
			cm = parsed
		}
		lo, hi := scalarRange(scene.Scalar)
		global = append(global, charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "3",
			InRange:    &opts.VisualMapInRange{Color: cm.Hex()},
		}))
		scatter.SetGlobalOptions(global...)
		data := make([]opts.Chart3DData, len(scene.X))
		for i := range scene.X {
			data[i] = opts.Chart3DData{Value: []interface{}{scene.X[i], scene.Y[i], scene.Z[i], scene.Scalar[i]}}
		}
		name := scene.ScalarName
		if name == "" {
			name = "field"
		}
		scatter.AddSeries(name, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: float32(symbolSize)}))

	default:
		scatter.SetGlobalOptions(global...)
		data := make([]opts.Chart3DData, len(scene.X))
		for i := range scene.X {
			data[i] = opts.Chart3DData{Value: []interface{}{scene.X[i], scene.Y[i], scene.Z[i]}}
		}
		scatter.AddSeries("points", data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: float32(symbolSize)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#31688e"}))
	}

	if len(scene.Undeformed) > 0 {
		ghost := make([]opts.Chart3DData, len(scene.Undeformed))
		for i, p := range scene.Undeformed {
			ghost[i] = opts.Chart3DData{Value: []interface{}{p[0], p[1], p[2]}}
		}
		scatter.AddSeries("undeformed", ghost,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: float32(symbolSize) * 0.5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e", Opacity: opts.Float(0.25)}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return nil, fmt.Errorf("render: 3d scatter: %w", err)
	}
	return &Result{Stage: Stage3D, MIME: "text/html; charset=utf-8", Data: buf.Bytes()}, nil
}

// splitClasses partitions the scene's points into above/below series.
func splitClasses(scene *Scene) (above, below []opts.Chart3DData) {
	inAbove := make(map[int]bool, len(scene.Classes.Above))
	for _, i := range scene.Classes.Above {
		inAbove[i] = true
	}
	for i := range scene.X {
		pt := opts.Chart3DData{Value: []interface{}{scene.X[i], scene.Y[i], scene.Z[i]}}
		if inAbove[i] {
			above = append(above, pt)
		} else {
			below = append(below, pt)
		}
	}
	return above, below
}

func scalarRange(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 1
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}
