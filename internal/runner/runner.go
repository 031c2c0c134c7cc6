// Package runner executes a teardown plan step by step. It is the only
// place that interprets step kinds; the primitives stay plan-agnostic.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"winsweep/internal/database"
	"winsweep/internal/metrics"
	"winsweep/internal/plan"
	"winsweep/internal/sweep"
)

// Summary aggregates per-step outcomes for one run
type Summary struct {
	Removed  int
	Absent   int
	Failed   int
	DryRun   int
	Duration time.Duration
}

// Steps is the total number of executed steps
func (s Summary) Steps() int {
	return s.Removed + s.Absent + s.Failed + s.DryRun
}

// HasFailures reports whether any step failed
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Run executes every step of p in order. Step failures are counted, never
// propagated; the returned error is non-nil only for cancellation or a nil
// plan. The db is optional: a nil db skips the audit trail.
func Run(ctx context.Context, p *plan.Plan, sw *sweep.Sweeper, logger *log.Logger, db *database.StepDB) (Summary, error) {
	if logger == nil {
		logger = log.Default()
	}
	if p == nil {
		return Summary{}, errors.New("nil plan")
	}

	start := time.Now()
	logger.Printf("Starting teardown run %q (%d steps)", p.Name, len(p.Steps))

	var summary Summary
	for i, step := range p.Steps {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		stepStart := time.Now()
		res := dispatch(sw, step)
		elapsed := time.Since(stepStart)

		logStructured(logger, i+1, step, res)
		metrics.RecordStep(string(step.Kind), string(res.Outcome), elapsed)
		record(logger, db, p.Name, step, res, elapsed)

		switch res.Outcome {
		case sweep.OutcomeRemoved:
			summary.Removed++
		case sweep.OutcomeAbsent:
			summary.Absent++
		case sweep.OutcomeFailed:
			summary.Failed++
		case sweep.OutcomeDryRun:
			summary.DryRun++
		}
	}

	summary.Duration = time.Since(start)
	metrics.RecordRun(summary.Duration)

	logger.Printf("Teardown run complete: removed=%d absent=%d failed=%d dry_run=%d duration=%s",
		summary.Removed, summary.Absent, summary.Failed, summary.DryRun,
		summary.Duration.Round(time.Millisecond))
	logger.Printf("A system restart is recommended to complete the teardown")

	return summary, nil
}

func dispatch(sw *sweep.Sweeper, step plan.Step) sweep.Result {
	switch step.Kind {
	case plan.KindUninstallApp:
		return sw.UninstallApps(step.Target)
	case plan.KindClearEnv:
		return sw.ClearEnvVar(step.Target)
	case plan.KindDeleteRegistry:
		return sw.DeleteRegistryKey(step.Target)
	case plan.KindDeleteFolder:
		return sw.DeleteFolder(step.Target)
	case plan.KindDeleteFile:
		return sw.DeleteFile(step.Target)
	case plan.KindKillProcess:
		return sw.KillProcesses(step.Target)
	case plan.KindHaltService:
		return sw.HaltService(step.Target)
	case plan.KindRunUninstaller:
		return sw.RunUninstaller(step.Target, step.Args)
	default:
		// Unreachable for validated plans
		return sweep.Result{
			Outcome: sweep.OutcomeFailed,
			Detail:  fmt.Sprintf("unknown step kind %q", step.Kind),
		}
	}
}

// logStructured emits one machine-greppable line per step:
// [RFC3339] OUTCOME step=N kind=... target=...
func logStructured(logger *log.Logger, n int, step plan.Step, res sweep.Result) {
	line := fmt.Sprintf("[%s] %s step=%d kind=%s target=%q",
		time.Now().UTC().Format(time.RFC3339),
		res.Outcome,
		n,
		step.Kind,
		step.Target,
	)
	if res.Detail != "" {
		line += fmt.Sprintf(" detail=%q", res.Detail)
	}
	logger.Print(line)
}

func record(logger *log.Logger, db *database.StepDB, runName string, step plan.Step, res sweep.Result, elapsed time.Duration) {
	if db == nil {
		return
	}
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	err := db.RecordStep(runName, string(step.Kind), step.Target,
		string(res.Outcome), res.Detail, errMsg, elapsed)
	if err != nil {
		// The audit trail never fails the run
		logger.Printf("Failed to record step to database: %v", err)
		metrics.AuditErrorsTotal.Inc()
	}
}
