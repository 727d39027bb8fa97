package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/session"
)

// waitForBench polls the session runner until the run leaves the running
// state or the deadline passes.
func waitForBench(t *testing.T, sess *session.Session) bench.State {
	t.Helper()
	runner := sess.Bench()
	if runner == nil {
		t.Fatal("no runner stored in the session")
	}
	deadline := time.Now().Add(30 * time.Second)
	for {
		state := runner.State()
		if state.Status != bench.StatusRunning {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatalf("benchmark still running after 30s: %+v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBenchStatusIdleWithoutRunner(t *testing.T) {
	ws, _ := newTestServer(t)
	w := get(t, ws, "/api/bench/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var state bench.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Status != bench.StatusIdle {
		t.Errorf("Status = %q, want idle", state.Status)
	}
}

func TestBenchStartRunsGrid(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws)

	w := postForm(t, ws, "/api/bench/start", url.Values{
		"component":  {"X"},
		"folds":      {"2"},
		"seed":       {"3"},
		"reductions": {"POD"},
		"regressors": {"RBF", "KNeighbors"},
	})
	if msg := wantNotice(t, w); !strings.Contains(msg, "2 combination(s)") {
		t.Fatalf("notice = %q", msg)
	}

	state := waitForBench(t, sess)
	if state.Status != bench.StatusComplete {
		t.Fatalf("Status = %q (error %q)", state.Status, state.Error)
	}
	if state.TotalCells != 2 || state.CompletedCells != 2 {
		t.Errorf("cells = %d/%d, want 2/2", state.CompletedCells, state.TotalCells)
	}
	if len(state.Results) != 2 {
		t.Fatalf("Results = %d", len(state.Results))
	}
	wantStrategies := []string{"POD+RBF", "POD+KNeighbors"}
	for i, cell := range state.Results {
		if cell.Strategy() != wantStrategies[i] {
			t.Errorf("Results[%d] = %q, want %q", i, cell.Strategy(), wantStrategies[i])
		}
		if cell.Err != "" {
			t.Errorf("Results[%d] failed: %s", i, cell.Err)
		}
	}
	if state.Best == nil {
		t.Fatal("no best cell")
	}
	if state.Request == nil || state.Request.Folds != 2 || state.Request.Seed != 3 {
		t.Errorf("Request = %+v", state.Request)
	}

	// The poller endpoint reports the same run.
	resp := get(t, ws, "/api/bench/status")
	var polled bench.State
	if err := json.Unmarshal(resp.Body.Bytes(), &polled); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if polled.Status != bench.StatusComplete || len(polled.Results) != 2 {
		t.Errorf("polled status = %q with %d results", polled.Status, len(polled.Results))
	}
}

func TestBenchFoldsClampedToSampleCount(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws) // five snapshots, default bench folds is seven

	w := postForm(t, ws, "/api/bench/start", url.Values{
		"component":  {"X"},
		"reductions": {"POD"},
		"regressors": {"RBF"},
	})
	wantNotice(t, w)

	state := waitForBench(t, sess)
	if state.Request == nil || state.Request.Folds != 5 {
		t.Errorf("Request = %+v, want folds clamped to 5", state.Request)
	}
}

func TestBenchStartWithoutDataset(t *testing.T) {
	ws, _ := newTestServer(t)
	w := postForm(t, ws, "/api/bench/start", url.Values{"component": {"X"}})
	wantError(t, w, "no dataset")
}

func TestBenchStartRejectsUnknownRegressor(t *testing.T) {
	ws, _ := newTestServer(t)
	loadDataset(t, ws)
	w := postForm(t, ws, "/api/bench/start", url.Values{
		"component":  {"X"},
		"regressors": {"SVR"},
	})
	wantError(t, w, "unknown regressor")
}

func TestBenchStopWithoutRunner(t *testing.T) {
	ws, _ := newTestServer(t)
	w := postForm(t, ws, "/api/bench/stop", url.Values{})
	wantError(t, w, "nothing to stop")
}
