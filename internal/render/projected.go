package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Projected3DRenderer draws the scene as a static scatter of
// camera-projected points. The view preset selects the projection; the
// isometric preset is the default.
type Projected3DRenderer struct {
	Width  vg.Length // default 8 inch
	Height vg.Length // default 6 inch
}

func (r *Projected3DRenderer) Stage() Stage { return Stage3DScatter }

func (r *Projected3DRenderer) Render(scene *Scene) (*Result, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	width, height := r.Width, r.Height
	if width == 0 {
		width = 8 * vg.Inch
	}
	if height == 0 {
		height = 6 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = scene.Title
	uLabel, vLabel := projectionLabels(scene.View)
	p.X.Label.Text = uLabel
	p.Y.Label.Text = vLabel

	pts := make(plotter.XYs, len(scene.X))
	for i := range scene.X {
		u, v := project(scene.View, scene.X[i], scene.Y[i], scene.Z[i])
		pts[i] = plotter.XY{X: u, Y: v}
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("render: projected scatter: %w", err)
	}
	sc.GlyphStyleFunc = glyphStyles(scene)
	p.Add(sc)

	if len(scene.Undeformed) > 0 {
		ghost := make(plotter.XYs, len(scene.Undeformed))
		for i, pt := range scene.Undeformed {
			u, v := project(scene.View, pt[0], pt[1], pt[2])
			ghost[i] = plotter.XY{X: u, Y: v}
		}
		gs, err := plotter.NewScatter(ghost)
		if err != nil {
			return nil, fmt.Errorf("render: undeformed overlay: %w", err)
		}
		gs.GlyphStyle = draw.GlyphStyle{
			Color:  color.RGBA{R: 158, G: 158, B: 158, A: 64},
			Radius: vg.Points(1),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(gs)
		p.Legend.Add("undeformed", gs)
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}

	var buf bytes.Buffer
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("render: projected png: %w", err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render: projected png: %w", err)
	}
	return &Result{Stage: Stage3DScatter, MIME: "image/png", Data: buf.Bytes()}, nil
}

// project maps a 3D point onto the preset's 2D plane. The isometric preset
// uses the standard 30-degree axonometric projection.
func project(v View, x, y, z float64) (u, w float64) {
	switch v {
	case ViewXY:
		return x, y
	case ViewXZ:
		return x, z
	case ViewYZ:
		return y, z
	default:
		cos30 := math.Sqrt(3) / 2
		return (x - y) * cos30, z + (x+y)/2
	}
}

func projectionLabels(v View) (u, w string) {
	switch v {
	case ViewXY:
		return "X", "Y"
	case ViewXZ:
		return "X", "Z"
	case ViewYZ:
		return "Y", "Z"
	default:
		return "U (iso)", "V (iso)"
	}
}

// glyphStyles builds the per-point style function: two-class colors when a
// split is present, colormap lookup when a scalar is present, a single
// neutral color otherwise.
func glyphStyles(scene *Scene) func(int) draw.GlyphStyle {
	radius := vg.Points(2)
	if scene.PointSize > 0 {
		radius = vg.Points(scene.PointSize / 2)
	}
	shape := draw.CircleGlyph{}

	if scene.Classes != nil {
		aboveColor := parseHex(orHex(scene.Classes.AboveColor, "#FF0000"), alphaByte(scene.Classes.AboveAlpha, 1.0))
		belowColor := parseHex(orHex(scene.Classes.BelowColor, "#0000FF"), alphaByte(scene.Classes.BelowAlpha, 0.3))
		inAbove := make(map[int]bool, len(scene.Classes.Above))
		for _, i := range scene.Classes.Above {
			inAbove[i] = true
		}
		return func(i int) draw.GlyphStyle {
			c := belowColor
			if inAbove[i] {
				c = aboveColor
			}
			return draw.GlyphStyle{Color: c, Radius: radius, Shape: shape}
		}
	}

	if scene.Scalar != nil {
		cm := DefaultColormap()
		if scene.Colormap != "" {
			if parsed, err := ParseColormap(scene.Colormap); err == nil {
				cm = parsed
			}
		}
		norm := Normalize(scene.Scalar)
		return func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: cm.At(norm[i]), Radius: radius, Shape: shape}
		}
	}

	steel := color.RGBA{R: 49, G: 104, B: 142, A: 255}
	return func(int) draw.GlyphStyle {
		return draw.GlyphStyle{Color: steel, Radius: radius, Shape: shape}
	}
}

func orHex(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func alphaByte(alpha, fallback float64) uint8 {
	if alpha <= 0 {
		alpha = fallback
	}
	if alpha > 1 {
		alpha = 1
	}
	return uint8(alpha*255 + 0.5)
}
