// photos-manifest scans the configured category directories, writes web-ready image variants
// and a JSON manifest describing them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aaronland/go-string/random"
	"github.com/sfomuseum/go-photos-manifest/config"
	"github.com/sfomuseum/go-photos-manifest/metrics"
	"github.com/sfomuseum/go-photos-manifest/operations/gather"
	"github.com/sfomuseum/go-photos-manifest/operations/process"
)

func main() {

	var config_path string
	var env_path string
	var verbose bool
	var as_json bool

	flag.StringVar(&config_path, "config", "", "Path to a JSON config file. Defaults to ~/.photos-manifest/config.json if present.")
	flag.StringVar(&env_path, "env", ".env", "Path to an optional file of PHOTOS_* environment variables.")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug level) logging.")
	flag.BoolVar(&as_json, "json", false, "Print the run report as JSON instead of a summary.")

	flag.Parse()

	ctx := context.Background()

	level := slog.LevelInfo

	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)

	rand_opts := random.DefaultOptions()
	rand_opts.AlphaNumeric = true
	rand_opts.Length = 8

	run_id, err := random.String(rand_opts)

	if err == nil {
		logger = logger.With("run", run_id)
	}

	slog.SetDefault(logger)

	cfg, err := loadConfig(ctx, config_path, env_path)

	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	p, err := process.NewProcessor(&process.ProcessOptions{
		Config:  cfg,
		Metrics: metrics.NewMetrics(),
		Logger:  logger,
	})

	if err != nil {
		logger.Error("Failed to create processor", "error", err)
		os.Exit(1)
	}

	report, err := p.Run(ctx)

	if err != nil {

		if errors.Is(err, gather.ErrSourceUnreachable) {
			logger.Error("Source is unreachable, nothing was written", "source", cfg.Source, "error", err)
		} else {
			logger.Error("Failed to process photos", "error", err)
		}

		os.Exit(1)
	}

	if as_json {

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		err := enc.Encode(report)

		if err != nil {
			logger.Error("Failed to encode report", "error", err)
			os.Exit(1)
		}

		return
	}

	fmt.Printf("Wrote %d photos to %s in %v\n", report.Summary.Total, report.Manifest, report.Duration)

	for _, c := range report.Summary.Categories {
		fmt.Printf("  %s: %d\n", c.Category, c.Count)
	}

	fmt.Printf("Photos with GPS: %d\n", report.Summary.Geolocated)
	fmt.Printf("Distinct locations: %d\n", report.Summary.Locations)
	fmt.Printf("Skipped: %d\n", len(report.Skipped))

	for _, s := range report.Skipped {
		fmt.Printf("  %s (%s): %s\n", s.Path, s.Reason, s.Error)
	}
}

func loadConfig(ctx context.Context, config_path string, env_path string) (*config.Config, error) {

	err := config.LoadEnv(env_path)

	if err != nil {
		return nil, err
	}

	var cfg *config.Config

	if config_path != "" {
		cfg, err = config.Load(ctx, config_path)
	} else {
		cfg, err = config.LoadDefault(ctx)
	}

	if err != nil {
		return nil, err
	}

	err = cfg.ApplyEnv()

	if err != nil {
		return nil, err
	}

	err = cfg.Validate()

	if err != nil {
		return nil, err
	}

	return cfg, nil
}
