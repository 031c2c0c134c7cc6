// Package sweep implements the idempotent remove-if-present primitives.
// Every primitive follows the same triad: check the target, act only if it
// is present, and report the result. Failures are converted to a logged
// message and a failed Result; nothing is raised to the caller.
package sweep

import (
	"errors"
	"fmt"
	"io/fs"

	"winsweep/internal/safety"
	"winsweep/internal/winops"
)

// Logger is the minimal logging surface the primitives need
type Logger interface {
	Printf(format string, v ...interface{})
}

// Outcome of a single primitive invocation
type Outcome string

const (
	OutcomeRemoved Outcome = "removed"
	OutcomeAbsent  Outcome = "absent"
	OutcomeFailed  Outcome = "failed"
	OutcomeDryRun  Outcome = "dry-run"
)

// Result is what a primitive hands back to the sequencer. Err is recorded
// for the audit trail but never propagated as a run failure.
type Result struct {
	Outcome Outcome
	Detail  string
	Err     error
}

func removed(detail string) Result { return Result{Outcome: OutcomeRemoved, Detail: detail} }
func absent(detail string) Result  { return Result{Outcome: OutcomeAbsent, Detail: detail} }
func dryRun() Result               { return Result{Outcome: OutcomeDryRun} }

func failed(err error, detail string) Result {
	if detail == "" {
		detail = string(winops.Classify(err))
	}
	return Result{Outcome: OutcomeFailed, Detail: detail, Err: err}
}

// Sweeper executes primitives against injected OS collaborators
type Sweeper struct {
	logger    Logger
	ops       winops.Collaborators
	lookupEnv func(string) (string, bool)
	validator *safety.Validator
	dryRun    bool
}

// New creates a Sweeper. The process environment backs %VAR% expansion and
// the default protected-path set guards filesystem steps; both can be
// overridden for tests.
func New(logger Logger, ops winops.Collaborators, dryRun bool) *Sweeper {
	return &Sweeper{
		logger:    logger,
		ops:       ops,
		lookupEnv: winops.LookupEnvFold,
		validator: safety.NewValidator(nil),
		dryRun:    dryRun,
	}
}

// SetEnvLookup replaces the environment used for %VAR% expansion
func (s *Sweeper) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// SetValidator replaces the delete-target validator
func (s *Sweeper) SetValidator(v *safety.Validator) {
	s.validator = v
}

// UninstallApps uninstalls every catalog entry whose display name contains
// pattern. One failing entry does not abort the remaining entries.
func (s *Sweeper) UninstallApps(pattern string) Result {
	matches, err := s.ops.Apps.Find(pattern)
	if err != nil {
		s.logger.Printf("Application catalog query failed for %s: %v", pattern, err)
		return failed(err, "")
	}
	if len(matches) == 0 {
		s.logger.Printf("Application not installed: %s", pattern)
		return absent("")
	}
	if s.dryRun {
		for _, e := range matches {
			s.logger.Printf("[DRY RUN] Would uninstall: %s %s", e.Name, e.Version)
		}
		return dryRun()
	}

	failures := 0
	for _, e := range matches {
		if err := s.ops.Apps.Uninstall(e); err != nil {
			s.logger.Printf("Failed to uninstall %s: %v", e.Name, err)
			failures++
			continue
		}
		s.logger.Printf("Uninstalled: %s %s", e.Name, e.Version)
	}
	if failures > 0 {
		return Result{
			Outcome: OutcomeFailed,
			Detail:  fmt.Sprintf("%d of %d uninstalls failed", failures, len(matches)),
		}
	}
	return removed(fmt.Sprintf("%d entries", len(matches)))
}

// ClearEnvVar deletes a machine-scope environment variable
func (s *Sweeper) ClearEnvVar(name string) Result {
	_, ok, err := s.ops.Env.Lookup(name)
	if err != nil {
		s.logger.Printf("Environment lookup failed for %s: %v", name, err)
		return failed(err, "")
	}
	if !ok {
		s.logger.Printf("Environment variable not found: %s", name)
		return absent("")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would remove environment variable: %s", name)
		return dryRun()
	}
	if err := s.ops.Env.Delete(name); err != nil {
		s.logger.Printf("Failed to remove environment variable %s: %v", name, err)
		return failed(err, "")
	}
	s.logger.Printf("Environment variable removed: %s", name)
	return removed("")
}

// DeleteRegistryKey removes a registry key and all descendants
func (s *Sweeper) DeleteRegistryKey(path string) Result {
	exists, err := s.ops.Registry.KeyExists(path)
	if err != nil {
		s.logger.Printf("Registry query failed for %s: %v", path, err)
		return failed(err, "")
	}
	if !exists {
		s.logger.Printf("Registry key not found: %s", path)
		return absent("")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would remove registry key: %s", path)
		return dryRun()
	}
	if err := s.ops.Registry.DeleteTree(path); err != nil {
		s.logger.Printf("Failed to remove registry key %s: %v", path, err)
		return failed(err, "")
	}
	s.logger.Printf("Registry key removed: %s", path)
	return removed("")
}

// DeleteFolder removes a directory tree. No token expansion is applied.
func (s *Sweeper) DeleteFolder(path string) Result {
	info, err := s.ops.FS.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		s.logger.Printf("Folder not found: %s", path)
		return absent("")
	}
	if err != nil {
		// AccessDenied and friends are not absence
		s.logger.Printf("Cannot check folder %s: %v", path, err)
		return failed(err, "")
	}
	if err := s.validator.ValidateDeleteTarget(path); err != nil {
		s.logger.Printf("Refusing to remove folder %s: %v", path, err)
		return failed(err, "blocked by validator")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would remove folder: %s", path)
		return dryRun()
	}
	if err := s.ops.FS.RemoveAll(path); err != nil {
		// Partial removal is acceptable for locked children
		s.logger.Printf("Failed to remove folder %s: %v", path, err)
		return failed(err, "")
	}
	s.logger.Printf("Folder removed: %s", path)
	return removed("")
}

// DeleteFile expands %VAR% tokens in path, then removes the file if it
// exists as a regular file.
func (s *Sweeper) DeleteFile(path string) Result {
	expanded := winops.ExpandTokens(path, s.lookupEnv)

	info, err := s.ops.FS.Stat(expanded)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		s.logger.Printf("File not found: %s", expanded)
		return absent("")
	}
	if err != nil {
		s.logger.Printf("Cannot check file %s: %v", expanded, err)
		return failed(err, "")
	}
	if err := s.validator.ValidateDeleteTarget(expanded); err != nil {
		s.logger.Printf("Refusing to remove file %s: %v", expanded, err)
		return failed(err, "blocked by validator")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would remove file: %s", expanded)
		return dryRun()
	}
	if err := s.ops.FS.Remove(expanded); err != nil {
		s.logger.Printf("Failed to remove file %s: %v", expanded, err)
		return failed(err, "")
	}
	s.logger.Printf("File removed: %s", expanded)
	return removed("")
}

// KillProcesses force-terminates every running instance matching name.
// A failure on one instance does not prevent the attempt on the others.
func (s *Sweeper) KillProcesses(name string) Result {
	procs, err := s.ops.Procs.FindByName(name)
	if err != nil {
		s.logger.Printf("Process lookup failed for %s: %v", name, err)
		return failed(err, "")
	}
	if len(procs) == 0 {
		s.logger.Printf("Process not found: %s", name)
		return absent("")
	}
	if s.dryRun {
		for _, p := range procs {
			s.logger.Printf("[DRY RUN] Would kill process: %s (pid %d)", name, p.Pid())
		}
		return dryRun()
	}

	failures := 0
	for _, p := range procs {
		if err := p.Kill(); err != nil {
			s.logger.Printf("Failed to kill process %s (pid %d): %v", name, p.Pid(), err)
			failures++
			continue
		}
		s.logger.Printf("Killed process: %s (pid %d)", name, p.Pid())
	}
	if failures > 0 {
		return Result{
			Outcome: OutcomeFailed,
			Detail:  fmt.Sprintf("%d of %d instances survived", failures, len(procs)),
		}
	}
	return removed(fmt.Sprintf("%d instances", len(procs)))
}

// HaltService stops a service unless it is already stopped. The name is
// distinct from the SCM stop call it wraps.
func (s *Sweeper) HaltService(name string) Result {
	status, err := s.ops.Services.Status(name)
	if err != nil {
		s.logger.Printf("Service query failed for %s: %v", name, err)
		return failed(err, "")
	}
	switch status {
	case winops.SvcNotFound:
		s.logger.Printf("Service not found: %s", name)
		return absent("")
	case winops.SvcStopped:
		s.logger.Printf("Service already stopped: %s", name)
		return absent("already stopped")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would stop service: %s", name)
		return dryRun()
	}
	if err := s.ops.Services.ForceStop(name); err != nil {
		s.logger.Printf("Failed to stop service %s: %v", name, err)
		return failed(err, "")
	}
	s.logger.Printf("Service stopped: %s", name)
	return removed("")
}

// RunUninstaller launches a standalone uninstaller executable and waits for
// it to exit. A non-zero exit code is surfaced as a warning, not a failure.
func (s *Sweeper) RunUninstaller(path string, args []string) Result {
	info, err := s.ops.FS.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		s.logger.Printf("Uninstaller not found: %s", path)
		return absent("")
	}
	if err != nil {
		s.logger.Printf("Cannot check uninstaller %s: %v", path, err)
		return failed(err, "")
	}
	if s.dryRun {
		s.logger.Printf("[DRY RUN] Would run uninstaller: %s %v", path, args)
		return dryRun()
	}
	code, err := s.ops.Launcher.Run(path, args)
	if err != nil {
		s.logger.Printf("Failed to run uninstaller %s: %v", path, err)
		return failed(err, "")
	}
	if code != 0 {
		s.logger.Printf("WARN: uninstaller %s finished with exit code %d", path, code)
		return removed(fmt.Sprintf("exit code %d", code))
	}
	s.logger.Printf("Uninstaller finished: %s", path)
	return removed("")
}
