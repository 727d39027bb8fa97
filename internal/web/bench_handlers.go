package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/httputil"
)

// handleBenchStart builds a fresh runner over the session's current dataset
// and launches the grid. The runner outlives this request, so it gets a
// background context; Stop cancels it.
func (ws *WebServer) handleBenchStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)
	if err := r.ParseForm(); err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}

	if runner := sess.Bench(); runner != nil && runner.State().Status == bench.StatusRunning {
		redirectBack(w, r, "/bench", fmt.Errorf("bench: benchmark already in progress"))
		return
	}

	ds, err := modelingDataset(sess)
	if err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}
	comp, err := field.ParseComponent(r.FormValue("component"))
	if err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}
	db, err := componentDatabase(ds, comp)
	if err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}
	folds, err := formInt(r, "folds", ws.cfg.GetBenchFolds())
	if err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}
	if folds > db.Len() {
		folds = db.Len()
	}
	seed, err := formInt64(r, "seed", ws.cfg.GetKFoldSeed())
	if err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}

	runner := bench.NewRunnerWith(db, ws.clock, benchFactory(ws.cfg))
	req := bench.Request{
		Reductions: r.Form["reductions"],
		Regressors: r.Form["regressors"],
		Component:  comp.Key(),
		Folds:      folds,
		Seed:       seed,
	}
	if err := runner.Start(context.Background(), req); err != nil {
		redirectBack(w, r, "/bench", err)
		return
	}
	sess.SetBench(runner)

	state := runner.State()
	redirectNotice(w, r, "/bench", fmt.Sprintf("benchmark started: %d combination(s), %d-fold CV on %s",
		state.TotalCells, folds, comp))
}

// handleBenchStatus reports the runner state as JSON for the page's poller.
func (ws *WebServer) handleBenchStatus(w http.ResponseWriter, r *http.Request) {
	sess := ws.sessions.Attach(w, r)
	runner := sess.Bench()
	if runner == nil {
		httputil.WriteJSONOK(w, bench.State{Status: bench.StatusIdle})
		return
	}
	httputil.WriteJSONOK(w, runner.State())
}

// handleBenchStop requests cancellation; the runner stops at the next cell
// boundary.
func (ws *WebServer) handleBenchStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)
	runner := sess.Bench()
	if runner == nil {
		redirectBack(w, r, "/bench", fmt.Errorf("bench: nothing to stop"))
		return
	}
	runner.Stop()
	redirectNotice(w, r, "/bench", "stop requested; the run ends at the next cell boundary")
}
