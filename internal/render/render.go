// Package render draws field scenes through an ordered chain of rendering
// stages. The interactive stage produces a self-contained HTML document; the
// static stages produce PNG images. A driver walks the chain so that a
// failure in one stage falls through to the next, and only the final
// stage's failure reaches the user.
package render

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fieldline-data/rom.report/internal/monitoring"
)

// Stage identifies one rendering strategy in the fallback chain.
type Stage int

const (
	// Stage3D is the interactive 3D scatter, rendered as HTML.
	Stage3D Stage = iota
	// Stage3DScatter is the static projected 3D scatter, rendered as PNG.
	Stage3DScatter
	// Stage2DProjection is the static plane-projection grid, rendered as PNG.
	Stage2DProjection
)

func (s Stage) String() string {
	switch s {
	case Stage3D:
		return "3d"
	case Stage3DScatter:
		return "3d-scatter"
	case Stage2DProjection:
		return "2d-projection"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// View is a camera preset for the static stages. The interactive stage
// ignores it since the browser controls the camera.
type View int

const (
	ViewIsometric View = iota
	ViewXY
	ViewXZ
	ViewYZ
)

func (v View) String() string {
	switch v {
	case ViewIsometric:
		return "isometric"
	case ViewXY:
		return "xy"
	case ViewXZ:
		return "xz"
	case ViewYZ:
		return "yz"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// ParseView maps a form value to its preset.
func ParseView(s string) (View, error) {
	switch s {
	case "isometric", "":
		return ViewIsometric, nil
	case "xy":
		return ViewXY, nil
	case "xz":
		return ViewXZ, nil
	case "yz":
		return ViewYZ, nil
	}
	return 0, fmt.Errorf("render: unknown view %q", s)
}

// Views lists the camera presets in presentation order.
func Views() []View {
	return []View{ViewIsometric, ViewXY, ViewXZ, ViewYZ}
}

// Scene is one renderable point cloud: coordinates, an optional scalar to
// color by, and style options. Coordinates may already be warped; the scene
// does not know about meshes.
type Scene struct {
	Title    string
	Subtitle string

	X, Y, Z []float64

	// Scalar colors the points via the colormap. Nil renders a single
	// neutral color.
	Scalar     []float64
	ScalarName string

	// Classes overrides Scalar with a two-class coloring: indexes listed
	// in Above render in AboveColor, all others in BelowColor. Used by the
	// threshold error view.
	Classes    *ClassSplit
	Colormap   string
	View       View
	PointSize  float64
	ShowEdges  bool
	Opacity    float64

	// Undeformed optionally overlays the original point positions as a
	// faint reference, used by the deformation view.
	Undeformed [][3]float64
}

// ClassSplit colors points above and below a threshold differently.
type ClassSplit struct {
	Above      []int
	AboveColor string // hex, default #FF0000
	BelowColor string // hex, default #0000FF
	AboveAlpha float64
	BelowAlpha float64
}

// Validate rejects scenes the stages cannot draw.
func (s *Scene) Validate() error {
	n := len(s.X)
	if n == 0 {
		return errors.New("render: empty scene")
	}
	if len(s.Y) != n || len(s.Z) != n {
		return fmt.Errorf("render: coordinate lengths differ: x=%d y=%d z=%d", len(s.X), len(s.Y), len(s.Z))
	}
	if s.Scalar != nil && len(s.Scalar) != n {
		return fmt.Errorf("render: scalar length %d for %d points", len(s.Scalar), n)
	}
	return nil
}

// Result is the output of a successful stage.
type Result struct {
	Stage Stage
	MIME  string
	Data  []byte
	// Attempts records every stage tried, including the one that
	// succeeded (with an empty Err).
	Attempts []Attempt
}

// Attempt records one stage try for the request trace shown in the UI.
type Attempt struct {
	Stage Stage
	Err   string
}

// Renderer draws a scene with one strategy.
type Renderer interface {
	Stage() Stage
	Render(scene *Scene) (*Result, error)
}

// graphicsFailureMarkers are substrings of error messages that indicate a
// broken graphics stack rather than a bad scene. Matching is case-insensitive.
var graphicsFailureMarkers = []string{
	"libxrender",
	"libgl",
	"display",
	"x11",
	"opengl",
}

// IsGraphicsFailure reports whether err looks like a graphics-stack
// failure. These are the expected reason to fall through the chain; any
// other error still falls through but is logged as unexpected.
func IsGraphicsFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range graphicsFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// cloudEnvVars mark managed platforms where no interactive display exists.
var cloudEnvVars = []string{
	"STREAMLIT_SHARING",
	"STREAMLIT_CLOUD",
	"STREAMLIT_SERVER_HEADLESS",
	"HEROKU",
	"RAILWAY",
	"RENDER",
	"VERCEL",
	"REPLIT_CLUSTER",
	"CODESPACE_NAME",
	"GITPOD_WORKSPACE_ID",
}

// Environment describes where rendering is happening. Headless environments
// enter the fallback chain at the first static stage.
type Environment struct {
	Headless bool
	Reason   string
}

// DetectEnvironment senses headless or cloud execution from the process
// environment: any known platform variable, or a missing DISPLAY on unix.
func DetectEnvironment() Environment {
	return detectEnvironment(os.Getenv, runtime.GOOS)
}

func detectEnvironment(getenv func(string) string, goos string) Environment {
	for _, name := range cloudEnvVars {
		if getenv(name) != "" {
			return Environment{Headless: true, Reason: name + " is set"}
		}
	}
	if goos != "windows" && goos != "darwin" && getenv("DISPLAY") == "" {
		return Environment{Headless: true, Reason: "DISPLAY is not set"}
	}
	return Environment{}
}

// Fallback tries an ordered list of renderers until one succeeds.
type Fallback struct {
	renderers []Renderer
	env       Environment
}

// NewFallback builds the standard three-stage chain for the given
// environment.
func NewFallback(env Environment) *Fallback {
	return &Fallback{
		renderers: []Renderer{
			&Scatter3DRenderer{},
			&Projected3DRenderer{},
			&PlanesRenderer{},
		},
		env: env,
	}
}

// NewFallbackWith builds a chain over explicit renderers, in order. Used by
// tests to force stage failures.
func NewFallbackWith(env Environment, renderers ...Renderer) *Fallback {
	return &Fallback{renderers: renderers, env: env}
}

// entry returns the index of the first stage to try. Headless environments
// skip the interactive stage entirely.
func (f *Fallback) entry() int {
	if !f.env.Headless {
		return 0
	}
	for i, r := range f.renderers {
		if r.Stage() != Stage3D {
			return i
		}
	}
	return 0
}

// Render walks the chain from the environment's entry stage. Every attempt
// is recorded on the result; if all stages fail the last error is returned
// wrapped, with the attempt trace lost only to the log.
func (f *Fallback) Render(scene *Scene) (*Result, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if len(f.renderers) == 0 {
		return nil, errors.New("render: no stages configured")
	}

	attempts := make([]Attempt, 0, len(f.renderers))
	var lastErr error
	for _, r := range f.renderers[f.entry():] {
		res, err := r.Render(scene)
		if err == nil {
			res.Stage = r.Stage()
			res.Attempts = append(attempts, Attempt{Stage: r.Stage()})
			return res, nil
		}
		attempts = append(attempts, Attempt{Stage: r.Stage(), Err: err.Error()})
		if IsGraphicsFailure(err) {
			monitoring.Logf("render: stage %s unavailable (%v), falling back", r.Stage(), err)
		} else {
			monitoring.Logf("render: stage %s failed unexpectedly (%v), falling back", r.Stage(), err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("render: all stages failed: %w", lastErr)
}
