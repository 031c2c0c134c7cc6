package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"winsweep/internal/database"
	"winsweep/internal/exitcodes"
	"winsweep/internal/logging"
	"winsweep/internal/metrics"
	"winsweep/internal/plan"
	"winsweep/internal/runner"
	"winsweep/internal/sweep"
	"winsweep/internal/winops"
)

func main() {
	os.Exit(run())
}

// run holds the real main body so deferred cleanup (the audit DB close)
// executes before the process exit code is decided.
func run() int {
	planPath := flag.String("plan", "", "Path to a YAML plan file (default: built-in bundle teardown)")
	dryRun := flag.Bool("dry-run", false, "Check every target but perform no removals")
	strict := flag.Bool("strict", false, "Exit non-zero if any step failed")
	logPath := flag.String("log", logging.DefaultPath(), "Path to the run log file")
	dbPath := flag.String("db", defaultDBPath(), "Path to the step audit database (empty disables)")
	metricsPort := flag.Int("metrics-port", 0, "Expose Prometheus metrics on this port during the run (0 disables)")
	flag.Parse()

	logger := logging.NewWithPath(*logPath)

	logger.Println("winsweep starting")
	if *dryRun {
		logger.Println("DRY RUN MODE: no removals will be performed")
	}

	p := plan.Default()
	if *planPath != "" {
		logger.Printf("Plan file: %s", *planPath)
		loaded, err := plan.Load(*planPath)
		if err != nil {
			logger.Printf("ERROR: Failed to load plan: %v", err)
			return exitcodes.InvalidPlan
		}
		p = loaded
	}

	metrics.Init()
	if *metricsPort > 0 {
		addr := fmt.Sprintf(":%d", *metricsPort)
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	var db *database.StepDB
	if *dbPath != "" {
		logger.Printf("Opening audit database: %s", *dbPath)
		opened, err := database.NewStepDB(*dbPath)
		if err != nil {
			// The audit trail is advisory: keep sweeping without it
			logger.Printf("ERROR: Failed to open audit database, continuing without it: %v", err)
		} else {
			db = opened
			defer func() {
				if err := db.Close(); err != nil {
					logger.Printf("ERROR: Failed to close audit database: %v", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, stopping after current step...", sig)
		cancel()
	}()

	sw := sweep.New(logger, winops.System(), *dryRun)

	summary, err := runner.Run(ctx, p, sw, logger, db)
	if err != nil {
		logger.Printf("ERROR: Run aborted: %v", err)
		return exitcodes.RuntimeError
	}

	if *strict && summary.HasFailures() {
		logger.Printf("Exiting non-zero: %d of %d steps failed (-strict)", summary.Failed, summary.Steps())
		return exitcodes.StepsFailed
	}
	return exitcodes.Success
}

func defaultDBPath() string {
	base := os.Getenv("ProgramData")
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "winsweep", "steps.db")
}
