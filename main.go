package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fieldline-data/rom.report/internal/config"
	"github.com/fieldline-data/rom.report/internal/render"
	"github.com/fieldline-data/rom.report/internal/session"
	"github.com/fieldline-data/rom.report/internal/version"
	"github.com/fieldline-data/rom.report/internal/web"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Experiment config JSON (default: "+config.DefaultConfigPath+" when present)")
	saveDir     = flag.String("save-dir", "", "Override the dataset save directory")
	headless    = flag.Bool("headless", false, "Skip the interactive render stage")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// resolveConfig loads the experiment tuning: an explicit path must load, the
// default path is used when it exists, and everything else falls back to the
// built-in defaults.
func resolveConfig(path string) (*config.ExperimentConfig, error) {
	if path != "" {
		return config.LoadExperimentConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadExperimentConfig(config.DefaultConfigPath)
	}
	return config.DefaultExperimentConfig(), nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("romlab %s\n", version.String())
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *saveDir != "" {
		cfg.SaveDir = saveDir
	}

	env := render.DetectEnvironment()
	if *headless {
		env = render.Environment{Headless: true, Reason: "forced by -headless"}
	}
	if env.Headless {
		log.Printf("interactive rendering disabled: %s", env.Reason)
	}

	sessions := session.NewManager(cfg.GetSessionTTL(), nil)

	// Wait group for the janitor and dashboard routines.
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Evict idle sessions in the background.
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.Run(ctx, time.Minute)
		log.Print("session janitor terminated")
	}()

	// Dashboard goroutine; Start blocks until the context ends and the
	// server has shut down.
	wg.Add(1)
	go func() {
		defer wg.Done()
		server := web.NewWebServer(web.WebServerConfig{
			Address:  *listen,
			Config:   cfg,
			Sessions: sessions,
			Env:      env,
		})
		if err := server.Start(ctx); err != nil {
			log.Printf("dashboard error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
