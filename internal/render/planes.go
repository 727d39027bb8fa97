package render

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlanesRenderer is the last stage: three axis-aligned 2D projections plus a
// text summary panel, tiled on a single canvas. It depends on nothing but
// the in-process rasterizer, so it is the stage that must not fail for a
// valid scene.
type PlanesRenderer struct {
	Width  vg.Length // default 12 inch
	Height vg.Length // default 9 inch
}

func (r *PlanesRenderer) Stage() Stage { return Stage2DProjection }

func (r *PlanesRenderer) Render(scene *Scene) (*Result, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	width, height := r.Width, r.Height
	if width == 0 {
		width = 12 * vg.Inch
	}
	if height == 0 {
		height = 9 * vg.Inch
	}

	views := []View{ViewXY, ViewXZ, ViewYZ}
	plots := make([][]*plot.Plot, 2)
	for i := range plots {
		plots[i] = make([]*plot.Plot, 2)
	}

	style := glyphStyles(scene)
	for i, v := range views {
		p := plot.New()
		uLabel, vLabel := projectionLabels(v)
		p.Title.Text = uLabel + vLabel + " plane"
		p.X.Label.Text = uLabel
		p.Y.Label.Text = vLabel

		pts := make(plotter.XYs, len(scene.X))
		for j := range scene.X {
			u, w := project(v, scene.X[j], scene.Y[j], scene.Z[j])
			pts[j] = plotter.XY{X: u, Y: w}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("render: %s plane: %w", v, err)
		}
		sc.GlyphStyleFunc = style
		p.Add(sc)
		plots[i/2][i%2] = p
	}

	summary, err := summaryPanel(scene)
	if err != nil {
		return nil, err
	}
	plots[1][1] = summary

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2, Cols: 2,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render: planes png: %w", err)
	}
	return &Result{Stage: Stage2DProjection, MIME: "image/png", Data: buf.Bytes()}, nil
}

// summaryPanel renders the scene's numbers as a text-only tile.
func summaryPanel(scene *Scene) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = scene.Title
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	lines := []string{
		fmt.Sprintf("points: %d", len(scene.X)),
		fmt.Sprintf("x: [%.4g, %.4g]", sliceMin(scene.X), sliceMax(scene.X)),
		fmt.Sprintf("y: [%.4g, %.4g]", sliceMin(scene.Y), sliceMax(scene.Y)),
		fmt.Sprintf("z: [%.4g, %.4g]", sliceMin(scene.Z), sliceMax(scene.Z)),
	}
	if scene.Scalar != nil {
		name := scene.ScalarName
		if name == "" {
			name = "scalar"
		}
		lo, hi := scalarRange(scene.Scalar)
		lines = append(lines, fmt.Sprintf("%s: [%.4g, %.4g]", name, lo, hi))
	}
	if scene.Classes != nil {
		lines = append(lines, fmt.Sprintf("above threshold: %d of %d", len(scene.Classes.Above), len(scene.X)))
	}

	xys := make(plotter.XYs, len(lines))
	for i := range lines {
		xys[i] = plotter.XY{X: 0.05, Y: 0.9 - 0.12*float64(i)}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: lines})
	if err != nil {
		return nil, fmt.Errorf("render: summary panel: %w", err)
	}
	p.Add(labels)
	return p, nil
}

func sliceMin(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func sliceMax(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
