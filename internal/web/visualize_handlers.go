package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/metrics"
	"github.com/fieldline-data/rom.report/internal/render"
	"github.com/fieldline-data/rom.report/internal/security"
	"github.com/fieldline-data/rom.report/internal/session"
)

// handleVisualize builds a scene for the selected view, runs it through the
// stage fallback chain, and records the output in the session gallery.
func (ws *WebServer) handleVisualize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	m := sess.Mesh()
	if m == nil {
		redirectBack(w, r, "/visualize", fmt.Errorf("no mesh uploaded; load one on the data page first"))
		return
	}

	kind := r.FormValue("kind")
	if kind == "" {
		kind = "field"
	}

	var (
		scene  *render.Scene
		config string
		err    error
	)
	switch kind {
	case "field":
		scene, config, err = ws.fieldScene(r, sess)
	case "deformation":
		scene, config, err = ws.deformationScene(r, sess)
	case "threshold":
		scene, config, err = ws.thresholdScene(r, sess)
	default:
		err = fmt.Errorf("unknown view kind %q", kind)
	}
	if err != nil {
		redirectBack(w, r, "/visualize", err)
		return
	}

	if err := ws.applyStyle(r, scene); err != nil {
		redirectBack(w, r, "/visualize", err)
		return
	}

	res, err := ws.fallback.Render(scene)
	if err != nil {
		redirectBack(w, r, "/visualize", err)
		return
	}

	attempts := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		if a.Err == "" {
			attempts = append(attempts, fmt.Sprintf("%s: ok", a.Stage))
		} else {
			attempts = append(attempts, fmt.Sprintf("%s: %s", a.Stage, a.Err))
		}
	}

	sess.AddPlot(session.PlotRecord{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     scene.Title,
		Config:    config,
		MIME:      res.MIME,
		Stage:     res.Stage.String(),
		Attempts:  attempts,
		Data:      res.Data,
		CreatedAt: ws.clock.Now(),
	})
	redirectNotice(w, r, "/visualize", fmt.Sprintf("rendered %s via %s stage", scene.Title, res.Stage))
}

// fieldScene colors the mesh point cloud by one of its scalar arrays, or
// renders a plain cloud when no field is selected.
func (ws *WebServer) fieldScene(r *http.Request, sess *session.Session) (*render.Scene, string, error) {
	name := r.FormValue("field")
	scene, err := render.FieldScene(sess.Mesh(), name)
	if err != nil {
		return nil, "", err
	}
	config := "plain point cloud"
	if name != "" {
		config = fmt.Sprintf("field %s", name)
	}
	return scene, config, nil
}

// deformationScene warps the mesh by one tag's displacement components.
func (ws *WebServer) deformationScene(r *http.Request, sess *session.Session) (*render.Scene, string, error) {
	ds, err := modelingDataset(sess)
	if err != nil {
		return nil, "", err
	}
	tag := r.FormValue("tag")
	if tag == "" && len(ds.Tags) > 0 {
		tag = ds.Tags[0]
	}
	dx := ds.Set(field.ComponentX).Row(tag)
	dy := ds.Set(field.ComponentY).Row(tag)
	dz := ds.Set(field.ComponentZ).Row(tag)
	if dx == nil || dy == nil || dz == nil {
		return nil, "", fmt.Errorf("deformation needs X, Y and Z displacement rows for tag %q", tag)
	}
	factor, err := formFloat(r, "warp_factor", ws.cfg.GetWarpFactor())
	if err != nil {
		return nil, "", err
	}
	if factor < 0.1 || factor > 100 {
		return nil, "", fmt.Errorf("warp factor %g outside [0.1, 100]", factor)
	}
	overlay := r.FormValue("overlay") != ""

	scene, err := render.DeformationScene(sess.Mesh(), dx, dy, dz, factor, overlay)
	if err != nil {
		return nil, "", err
	}
	return scene, fmt.Sprintf("tag %s, warp x%g", tag, factor), nil
}

// thresholdScene two-class colors the mesh by a stored prediction's
// per-point relative error.
func (ws *WebServer) thresholdScene(r *http.Request, sess *session.Session) (*render.Scene, string, error) {
	pred := sess.Prediction()
	if pred == nil {
		return nil, "", fmt.Errorf("no prediction stored; run one on the predict page first")
	}

	tag := r.FormValue("tag")
	if tag == "" {
		tag = pred.WorstTag
	}
	var series *session.PredSeries
	for i := range pred.Series {
		if pred.Series[i].Tag == tag {
			series = &pred.Series[i]
			break
		}
	}
	if series == nil {
		return nil, "", fmt.Errorf("prediction has no series for tag %q", tag)
	}

	tkind, err := metrics.ParseThresholdKind(formValueOr(r, "threshold_kind", "std"))
	if err != nil {
		return nil, "", err
	}
	threshold := metrics.DefaultThreshold(tkind)
	if threshold.Value, err = formFloat(r, "threshold_value", threshold.Value); err != nil {
		return nil, "", err
	}

	scene, err := render.ThresholdScene(sess.Mesh(), series.Errors, threshold)
	if err != nil {
		return nil, "", err
	}
	if c := scene.Classes; c != nil {
		c.AboveColor = r.FormValue("above_color")
		c.BelowColor = r.FormValue("below_color")
		if c.AboveAlpha, err = formFloat(r, "above_alpha", 0); err != nil {
			return nil, "", err
		}
		if c.BelowAlpha, err = formFloat(r, "below_alpha", 0); err != nil {
			return nil, "", err
		}
	}
	return scene, fmt.Sprintf("tag %s, %s threshold %g", tag, tkind, threshold.Value), nil
}

// applyStyle copies the shared style controls onto the scene.
func (ws *WebServer) applyStyle(r *http.Request, scene *render.Scene) error {
	cmap := formValueOr(r, "colormap", ws.cfg.GetColormap())
	if _, err := render.ParseColormap(cmap); err != nil {
		return err
	}
	scene.Colormap = cmap

	view, err := render.ParseView(formValueOr(r, "view", "isometric"))
	if err != nil {
		return err
	}
	scene.View = view

	if scene.PointSize, err = formFloat(r, "point_size", 0); err != nil {
		return err
	}
	if scene.Opacity, err = formFloat(r, "opacity", 0); err != nil {
		return err
	}
	scene.ShowEdges = r.FormValue("show_edges") != ""
	return nil
}

func formValueOr(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.FormValue(name)); v != "" {
		return v
	}
	return def
}

// handlePlot serves a recorded plot's raw bytes under its stored MIME type.
func (ws *WebServer) handlePlot(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	id := strings.TrimPrefix(r.URL.Path, "/plots/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	plot, ok := sess.Plot(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("download") != "" {
		name := security.SanitizeFilename(plot.Title) + extForMIME(plot.MIME)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.Header().Set("Content-Type", plot.MIME)
	w.Write(plot.Data)
}

// extForMIME maps the two MIME types the render chain produces.
func extForMIME(mime string) string {
	if strings.HasPrefix(mime, "image/png") {
		return ".png"
	}
	return ".html"
}
