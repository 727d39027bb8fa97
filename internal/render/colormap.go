package render

import (
	"fmt"
	"image/color"
	"strconv"
)

// colormapStops holds each palette as ordered hex stops, low to high. The
// interactive stage hands the stops to the chart's visual map; the static
// stages interpolate between them per point.
var colormapStops = map[string][]string{
	"viridis":  {"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"plasma":   {"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"},
	"inferno":  {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"magma":    {"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"},
	"cividis":  {"#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8678", "#a59c74", "#c3b369", "#e1cc55", "#fee838"},
	"rainbow":  {"#8000ff", "#0080ff", "#00ffff", "#00ff80", "#80ff00", "#ffff00", "#ff8000", "#ff0000"},
	"jet":      {"#000080", "#0000ff", "#0080ff", "#00ffff", "#80ff80", "#ffff00", "#ff8000", "#ff0000", "#800000"},
	"coolwarm": {"#3b4cc0", "#6688ee", "#88bbff", "#b8d0f9", "#dddddd", "#f5c4ac", "#ff9977", "#dd6655", "#b40426"},
}

// colormapOrder fixes the presentation order of Colormaps().
var colormapOrder = []string{"viridis", "plasma", "inferno", "magma", "cividis", "rainbow", "jet", "coolwarm"}

// Colormap is a named color ramp.
type Colormap struct {
	name  string
	stops []string
}

// Colormaps lists the palette names in presentation order.
func Colormaps() []string {
	out := make([]string, len(colormapOrder))
	copy(out, colormapOrder)
	return out
}

// ParseColormap resolves a palette by name.
func ParseColormap(name string) (Colormap, error) {
	stops, ok := colormapStops[name]
	if !ok {
		return Colormap{}, fmt.Errorf("render: unknown colormap %q", name)
	}
	return Colormap{name: name, stops: stops}, nil
}

// DefaultColormap is the palette used when a scene names none.
func DefaultColormap() Colormap {
	cm, _ := ParseColormap("viridis")
	return cm
}

// Name returns the palette's registered name.
func (c Colormap) Name() string { return c.name }

// Hex returns the ordered hex stops for chart visual maps.
func (c Colormap) Hex() []string {
	out := make([]string, len(c.stops))
	copy(out, c.stops)
	return out
}

// At interpolates the ramp at t in [0, 1]; out-of-range values clamp.
func (c Colormap) At(t float64) color.Color {
	stops := c.stops
	if len(stops) == 0 {
		stops = colormapStops["viridis"]
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(stops)-1)
	lo := int(pos)
	if lo >= len(stops)-1 {
		return parseHex(stops[len(stops)-1], 255)
	}
	frac := pos - float64(lo)
	a := parseHex(stops[lo], 255)
	b := parseHex(stops[lo+1], 255)
	return color.RGBA{
		R: lerpByte(a.R, b.R, frac),
		G: lerpByte(a.G, b.G, frac),
		B: lerpByte(a.B, b.B, frac),
		A: 255,
	}
}

// Normalize maps values onto [0, 1] for ramp lookup. A constant slice maps
// every point to the ramp midpoint.
func Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(values))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// parseHex decodes "#rrggbb" with the given alpha. Bad input maps to grey
// rather than an error; palettes are package data, not user input.
func parseHex(s string, alpha uint8) color.RGBA {
	if len(s) == 7 && s[0] == '#' {
		if v, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return color.RGBA{
				R: uint8(v >> 16),
				G: uint8(v >> 8),
				B: uint8(v),
				A: alpha,
			}
		}
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: alpha}
}

func lerpByte(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
