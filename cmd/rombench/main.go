// Rombench scores every reduction+regression pairing against a saved
// snapshot dataset: k-fold cross-validation error first, then fit time,
// prediction latency, and allocation for a full refit. Results print as
// fixed-width tables and optionally export as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/monitoring"
	"github.com/fieldline-data/rom.report/internal/rom"
)

// Config holds the benchmark run settings.
type Config struct {
	DataDir    string
	Component  string
	Reductions string
	Regressors string
	Folds      int
	Seed       int64
	OutputJSON string
	Quiet      bool
}

const (
	firstColWidth = 25
	colWidth      = 18
)

func main() {
	cfg := parseFlags()
	if cfg.DataDir == "" {
		log.Fatal("Dataset directory is required (-data)")
	}
	if cfg.Quiet {
		monitoring.SetLogger(nil)
	}

	state, err := runBenchmark(cfg)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	printResults(state)

	if cfg.OutputJSON != "" {
		if err := exportJSON(state, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DataDir, "data", "", "directory holding the NPY dataset dumps")
	flag.StringVar(&cfg.Component, "component", "S", "field component to benchmark (X, Y, Z or S)")
	flag.StringVar(&cfg.Reductions, "reductions", "", "comma-separated reduction kinds (empty: all)")
	flag.StringVar(&cfg.Regressors, "regressors", "", "comma-separated regressor kinds (empty: all)")
	flag.IntVar(&cfg.Folds, "folds", 7, "cross-validation fold count (clamped to the sample count)")
	flag.Int64Var(&cfg.Seed, "seed", 1, "cross-validation shuffle seed")
	flag.StringVar(&cfg.OutputJSON, "json", "", "output JSON filename (e.g., results.json)")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "suppress per-cell progress logging")

	flag.Parse()

	return cfg
}

func runBenchmark(cfg Config) (*bench.State, error) {
	fsys := fsutil.OSFileSystem{}
	ds, _, err := field.LoadDataset(fsys, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	comp, err := field.ParseComponent(cfg.Component)
	if err != nil {
		return nil, err
	}
	set := ds.Set(comp)
	if set.Empty() {
		return nil, fmt.Errorf("no %s snapshots in %s", comp, cfg.DataDir)
	}
	db, err := rom.NewScalarDatabase(ds.Params, set.Matrix())
	if err != nil {
		return nil, err
	}

	folds := cfg.Folds
	if folds > db.Len() {
		folds = db.Len()
	}
	req := bench.Request{
		Reductions: splitList(cfg.Reductions),
		Regressors: splitList(cfg.Regressors),
		Component:  comp.Key(),
		Folds:      folds,
		Seed:       cfg.Seed,
	}

	runner := bench.NewRunner(db, nil)
	if err := runner.Start(context.Background(), req); err != nil {
		return nil, err
	}
	for {
		state := runner.State()
		if state.Status != bench.StatusRunning {
			return &state, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printResults(state *bench.State) {
	reductions, regressors := gridAxes(state.Results)
	cells := make(map[string]bench.CellResult, len(state.Results))
	for _, c := range state.Results {
		cells[c.Reduction+"|"+c.Regressor] = c
	}
	lookup := func(red, reg string) (bench.CellResult, bool) {
		c, ok := cells[red+"|"+reg]
		if !ok || c.Err != "" {
			return bench.CellResult{}, false
		}
		return c, true
	}

	fmt.Printf("\n=== Strategy Benchmark Results ===\n")
	if state.Request != nil {
		fmt.Printf("Folds: %d (seed %d)\n", state.Request.Folds, state.Request.Seed)
	}
	fmt.Printf("Cells: %d/%d completed\n", state.CompletedCells, state.TotalCells)

	fmt.Printf("\nK-fold cross-validation error:\n")
	printTable(reductions, regressors, func(red, reg string) (string, bool) {
		c, ok := lookup(red, reg)
		return fmt.Sprintf("%.4e", c.KFoldMean), ok
	})

	fmt.Printf("\nFit time (s):\n")
	printTable(reductions, regressors, func(red, reg string) (string, bool) {
		c, ok := lookup(red, reg)
		return fmt.Sprintf("%.3f", c.FitSeconds), ok
	})

	fmt.Printf("\nPrediction time (µs):\n")
	printTable(reductions, regressors, func(red, reg string) (string, bool) {
		c, ok := lookup(red, reg)
		return fmt.Sprintf("%.2f", c.PredictMicros), ok
	})

	fmt.Printf("\nRefit allocation (MB):\n")
	printTable(reductions, regressors, func(red, reg string) (string, bool) {
		c, ok := lookup(red, reg)
		return fmt.Sprintf("%.2f", c.AllocMB), ok
	})

	if state.Best != nil {
		fmt.Printf("\nBest strategy: %s (mean error %.4e)\n", state.Best.Strategy(), state.Best.KFoldMean)
	}
	if len(state.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range state.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

// printTable renders one metric as a reduction-by-regressor grid; cells
// whose strategy failed print as N/A.
func printTable(reductions, regressors []string, cell func(red, reg string) (string, bool)) {
	header := fmt.Sprintf("%-*s", firstColWidth, "")
	for _, reg := range regressors {
		header += fmt.Sprintf("%*s", colWidth, reg)
	}
	fmt.Println(header)
	fmt.Println(strings.Repeat("-", firstColWidth+len(regressors)*colWidth))

	for _, red := range reductions {
		row := fmt.Sprintf("%-*s", firstColWidth, red)
		for _, reg := range regressors {
			v, ok := cell(red, reg)
			if !ok {
				v = "N/A"
			}
			row += fmt.Sprintf("%*s", colWidth, v)
		}
		fmt.Println(row)
	}
}

// gridAxes recovers the row and column orderings from the flat result list,
// which the runner fills in grid order.
func gridAxes(results []bench.CellResult) (reductions, regressors []string) {
	seenRed := make(map[string]bool)
	seenReg := make(map[string]bool)
	for _, c := range results {
		if !seenRed[c.Reduction] {
			seenRed[c.Reduction] = true
			reductions = append(reductions, c.Reduction)
		}
		if !seenReg[c.Regressor] {
			seenReg[c.Regressor] = true
			regressors = append(regressors, c.Regressor)
		}
	}
	return reductions, regressors
}

func exportJSON(state *bench.State, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(state)
}
