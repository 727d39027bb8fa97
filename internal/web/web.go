// Package web serves the experiment dashboard: five session-backed pages
// (data, predict, k-fold, benchmark, visualize) plus a plot gallery, JSON
// and form endpoints under /api/, and rendered chart documents the pages
// embed as iframes.
package web

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/fieldline-data/rom.report/internal/config"
	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/httputil"
	"github.com/fieldline-data/rom.report/internal/render"
	"github.com/fieldline-data/rom.report/internal/session"
	"github.com/fieldline-data/rom.report/internal/timeutil"
	"github.com/fieldline-data/rom.report/internal/version"
)

// WebServer handles the HTTP interface for the experiment dashboard.
type WebServer struct {
	address  string
	cfg      *config.ExperimentConfig
	sessions *session.Manager
	fsys     fsutil.FileSystem
	clock    timeutil.Clock
	fallback *render.Fallback
	tmpl     *TemplateProvider
	server   *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address  string
	Config   *config.ExperimentConfig
	Sessions *session.Manager
	FS       fsutil.FileSystem
	Clock    timeutil.Clock
	Env      render.Environment
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(c WebServerConfig) *WebServer {
	if c.FS == nil {
		c.FS = fsutil.OSFileSystem{}
	}
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	if c.Config == nil {
		c.Config = config.DefaultExperimentConfig()
	}
	ws := &WebServer{
		address:  c.Address,
		cfg:      c.Config,
		sessions: c.Sessions,
		fsys:     c.FS,
		clock:    c.Clock,
		fallback: render.NewFallback(c.Env),
		tmpl:     NewTemplateProvider(),
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: LoggingMiddleware(ws.setupRoutes()),
	}
	return ws
}

// Start begins the HTTP server in a goroutine and shuts it down when the
// context ends.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("starting dashboard on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down dashboard...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("dashboard force close error: %v", err)
		}
	}

	log.Printf("dashboard stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ws.handleIndex)
	mux.HandleFunc("/data", ws.handleDataPage)
	mux.HandleFunc("/predict", ws.handlePredictPage)
	mux.HandleFunc("/kfold", ws.handleKFoldPage)
	mux.HandleFunc("/bench", ws.handleBenchPage)
	mux.HandleFunc("/visualize", ws.handleVisualizePage)
	mux.HandleFunc("/gallery", ws.handleGalleryPage)

	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/plots/", ws.handlePlot)

	mux.HandleFunc("/api/config", ws.handleConfig)

	mux.HandleFunc("/api/data/upload", ws.handleDataUpload)
	mux.HandleFunc("/api/data/assemble", ws.handleDataAssemble)
	mux.HandleFunc("/api/data/npy", ws.handleNPYUpload)
	mux.HandleFunc("/api/data/save", ws.handleDataSave)
	mux.HandleFunc("/api/session/reset", ws.handleSessionReset)
	mux.HandleFunc("/api/gallery/clear", ws.handleGalleryClear)

	mux.HandleFunc("/api/predict", ws.handlePredict)
	mux.HandleFunc("/api/kfold", ws.handleKFold)

	mux.HandleFunc("/api/bench/start", ws.handleBenchStart)
	mux.HandleFunc("/api/bench/status", ws.handleBenchStatus)
	mux.HandleFunc("/api/bench/stop", ws.handleBenchStop)

	mux.HandleFunc("/api/visualize", ws.handleVisualize)

	mux.HandleFunc("/api/charts/prediction", ws.handlePredictionChart)
	mux.HandleFunc("/api/charts/kfold", ws.handleKFoldChart)
	mux.HandleFunc("/api/charts/bench/heatmap", ws.handleBenchHeatmapChart)
	mux.HandleFunc("/api/charts/bench/fittime", ws.handleBenchFitTimeChart)

	return mux
}

func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/data", http.StatusFound)
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":   "ok",
		"version":  version.Version,
		"sessions": ws.sessions.Len(),
	})
}

// handleConfig serves the effective experiment defaults as JSON. The schema
// is the same one config files use, so a GET here shows exactly what a
// strategy form falls back to when a field is left blank.
func (ws *WebServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	httputil.WriteJSONOK(w, ws.cfg.Effective())
}

// redirectBack sends the browser back to a page, carrying an optional
// error or notice for the alert box. Form endpoints use this so every page
// stays a pure render of the session.
func redirectBack(w http.ResponseWriter, r *http.Request, page string, err error) {
	target := page
	if err != nil {
		target += "?error=" + url.QueryEscape(err.Error())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectNotice(w http.ResponseWriter, r *http.Request, page, notice string) {
	http.Redirect(w, r, page+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}
