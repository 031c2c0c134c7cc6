package sweep

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"winsweep/internal/safety"
	"winsweep/internal/winops"
)

// fixture bundles a Sweeper with its fake collaborators and captured log
type fixture struct {
	sw       *Sweeper
	apps     *winops.FakeCatalog
	env      *winops.FakeEnv
	registry *winops.FakeRegistry
	fs       *winops.FakeDeleter
	procs    *winops.FakeProcs
	services *winops.FakeServices
	launcher *winops.FakeLauncher
	logBuf   *bytes.Buffer
}

func newFixture(t *testing.T, dryRun bool) *fixture {
	t.Helper()
	f := &fixture{
		apps:     winops.NewFakeCatalog(),
		env:      winops.NewFakeEnv(),
		registry: winops.NewFakeRegistry(),
		fs:       winops.NewFakeDeleter(),
		procs:    &winops.FakeProcs{},
		services: winops.NewFakeServices(),
		launcher: &winops.FakeLauncher{},
		logBuf:   &bytes.Buffer{},
	}
	ops := winops.Collaborators{
		Apps:     f.apps,
		Env:      f.env,
		Registry: f.registry,
		FS:       f.fs,
		Procs:    f.procs,
		Services: f.services,
		Launcher: f.launcher,
	}
	f.sw = New(log.New(f.logBuf, "", 0), ops, dryRun)
	f.sw.SetEnvLookup(func(name string) (string, bool) {
		if name == "SYSTEMROOT" {
			return `C:\Windows`, true
		}
		return "", false
	})
	return f
}

func (f *fixture) logLines(substr string) int {
	count := 0
	for _, line := range strings.Split(f.logBuf.String(), "\n") {
		if strings.Contains(line, substr) {
			count++
		}
	}
	return count
}

func (f *fixture) mutations() int {
	n := len(f.env.Calls) + len(f.registry.Calls) + len(f.fs.Calls) +
		len(f.services.StopCalls) + len(f.launcher.Calls) + len(f.apps.Uninstalled)
	for _, p := range f.procs.Procs {
		if p.Killed {
			n++
		}
	}
	return n
}

// TestAbsentTargetsLogOnceAndNeverMutate covers the core contract: for an
// absent target every primitive performs zero mutating calls and logs
// exactly one not-found event.
func TestAbsentTargetsLogOnceAndNeverMutate(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*fixture) Result
		wantLog string
	}{
		{"uninstall", func(f *fixture) Result { return f.sw.UninstallApps("Mosquitto") }, "Application not installed: Mosquitto"},
		{"env", func(f *fixture) Result { return f.sw.ClearEnvVar("ATDataPath") }, "Environment variable not found: ATDataPath"},
		{"registry", func(f *fixture) Result { return f.sw.DeleteRegistryKey(`HKLM\SOFTWARE\AT Systems`) }, `Registry key not found: HKLM\SOFTWARE\AT Systems`},
		{"folder", func(f *fixture) Result { return f.sw.DeleteFolder(`C:\Program Files\mosquitto`) }, `Folder not found: C:\Program Files\mosquitto`},
		{"file", func(f *fixture) Result { return f.sw.DeleteFile(`%SYSTEMROOT%\Temp\at-install.log`) }, `File not found: C:\Windows\Temp\at-install.log`},
		{"process", func(f *fixture) Result { return f.sw.KillProcesses("mosquitto") }, "Process not found: mosquitto"},
		{"service", func(f *fixture) Result { return f.sw.HaltService("ATDataService") }, "Service not found: ATDataService"},
		{"uninstaller", func(f *fixture) Result { return f.sw.RunUninstaller(`C:\gone\unins000.exe`, nil) }, `Uninstaller not found: C:\gone\unins000.exe`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			res := tt.run(f)

			if res.Outcome != OutcomeAbsent {
				t.Errorf("outcome = %s, want %s", res.Outcome, OutcomeAbsent)
			}
			if got := f.mutations(); got != 0 {
				t.Errorf("expected 0 mutating calls, got %d", got)
			}
			if got := f.logLines(tt.wantLog); got != 1 {
				t.Errorf("expected exactly 1 log line %q, got %d\nlog:\n%s", tt.wantLog, got, f.logBuf.String())
			}
		})
	}
}

// TestStatDeniedIsFailureNotAbsence: a permission error while checking a
// filesystem target must surface as failed, never as a benign not-found.
func TestStatDeniedIsFailureNotAbsence(t *testing.T) {
	tests := []struct {
		name string
		run  func(*fixture) Result
	}{
		{"folder", func(f *fixture) Result { return f.sw.DeleteFolder(`C:\locked\dir`) }},
		{"file", func(f *fixture) Result { return f.sw.DeleteFile(`C:\locked\file.log`) }},
		{"uninstaller", func(f *fixture) Result { return f.sw.RunUninstaller(`C:\locked\unins000.exe`, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.fs.Denied[`C:\locked\dir`] = true
			f.fs.Denied[`C:\locked\file.log`] = true
			f.fs.Denied[`C:\locked\unins000.exe`] = true

			res := tt.run(f)
			if res.Outcome != OutcomeFailed {
				t.Errorf("outcome = %s, want %s", res.Outcome, OutcomeFailed)
			}
			if res.Err == nil {
				t.Error("expected the stat error to be recorded")
			}
			if got := f.logLines("not found"); got != 0 {
				t.Errorf("permission error logged as absence:\n%s", f.logBuf.String())
			}
			if got := f.mutations(); got != 0 {
				t.Errorf("expected 0 mutating calls, got %d", got)
			}
		})
	}
}

func TestClearEnvVarEndToEnd(t *testing.T) {
	f := newFixture(t, false)
	f.env.Vars["ATDataPath"] = `C:\data`

	res := f.sw.ClearEnvVar("ATDataPath")
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeRemoved)
	}
	if _, ok, _ := f.env.Lookup("ATDataPath"); ok {
		t.Error("variable still present after removal")
	}
	if got := f.logLines("Environment variable removed: ATDataPath"); got != 1 {
		t.Errorf("expected exactly 1 removal log line, got %d", got)
	}

	// Idempotence: repeat call is a no-op reporting absent
	if res := f.sw.ClearEnvVar("ATDataPath"); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s, want %s", res.Outcome, OutcomeAbsent)
	}
}

func TestClearEnvVarAccessDeniedSwallowed(t *testing.T) {
	f := newFixture(t, false)
	f.env.Vars["ATDataPath"] = `C:\data`
	f.env.Denied["ATDataPath"] = true

	res := f.sw.ClearEnvVar("ATDataPath")
	if res.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", res.Outcome, OutcomeFailed)
	}
	if res.Detail != string(winops.KindAccessDenied) {
		t.Errorf("detail = %q, want %q", res.Detail, winops.KindAccessDenied)
	}
}

func TestDeleteRegistryKeyRemovesSubtree(t *testing.T) {
	f := newFixture(t, false)
	f.registry.Keys[`HKLM\SOFTWARE\AT Systems`] = true
	f.registry.Keys[`HKLM\SOFTWARE\AT Systems\Agent`] = true
	f.registry.Keys[`HKLM\SOFTWARE\AT Systems\Agent\Settings`] = true
	f.registry.Keys[`HKLM\SOFTWARE\AT SystemsOther`] = true

	res := f.sw.DeleteRegistryKey(`HKLM\SOFTWARE\AT Systems`)
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if f.registry.Keys[`HKLM\SOFTWARE\AT Systems\Agent\Settings`] {
		t.Error("descendant key survived")
	}
	if !f.registry.Keys[`HKLM\SOFTWARE\AT SystemsOther`] {
		t.Error("sibling with common prefix was deleted")
	}

	if res := f.sw.DeleteRegistryKey(`HKLM\SOFTWARE\AT Systems`); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s, want %s", res.Outcome, OutcomeAbsent)
	}
}

func TestDeleteFolderAbsentExactLine(t *testing.T) {
	f := newFixture(t, false)

	res := f.sw.DeleteFolder(`C:\Program Files\mosquitto`)
	if res.Outcome != OutcomeAbsent {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := f.logLines(`Folder not found: C:\Program Files\mosquitto`); got != 1 {
		t.Errorf("expected exactly 1 not-found line, got %d", got)
	}
	if len(f.fs.Calls) != 0 {
		t.Errorf("expected zero filesystem mutations, got %v", f.fs.Calls)
	}
}

func TestDeleteFolderRemovesTree(t *testing.T) {
	f := newFixture(t, false)
	f.fs.Dirs[`C:\Program Files\mosquitto`] = true
	f.fs.Files[`C:\Program Files\mosquitto\mosquitto.conf`] = true

	res := f.sw.DeleteFolder(`C:\Program Files\mosquitto`)
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s, err = %v", res.Outcome, res.Err)
	}
	if len(f.fs.Calls) != 1 || f.fs.Calls[0] != `rmall:C:\Program Files\mosquitto` {
		t.Errorf("calls = %v", f.fs.Calls)
	}
	if res := f.sw.DeleteFolder(`C:\Program Files\mosquitto`); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s", res.Outcome)
	}
}

func TestDeleteFolderBlockedByValidator(t *testing.T) {
	f := newFixture(t, false)
	f.fs.Dirs[`C:\Windows`] = true

	res := f.sw.DeleteFolder(`C:\Windows`)
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(f.fs.Calls) != 0 {
		t.Errorf("validator must block before any delete call, got %v", f.fs.Calls)
	}
}

func TestDeleteFileExpandsTokens(t *testing.T) {
	f := newFixture(t, false)
	f.fs.Files[`C:\Windows\Temp\at-install.log`] = true

	res := f.sw.DeleteFile(`%SYSTEMROOT%\Temp\at-install.log`)
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s, err = %v", res.Outcome, res.Err)
	}
	want := `rm:C:\Windows\Temp\at-install.log`
	if len(f.fs.Calls) != 1 || f.fs.Calls[0] != want {
		t.Errorf("calls = %v, want [%s]", f.fs.Calls, want)
	}
}

func TestDeleteFileUnresolvableTokenStaysLiteral(t *testing.T) {
	f := newFixture(t, false)

	res := f.sw.DeleteFile(`%NOPE%\file.txt`)
	if res.Outcome != OutcomeAbsent {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := f.logLines(`File not found: %NOPE%\file.txt`); got != 1 {
		t.Errorf("expected literal token in log, got:\n%s", f.logBuf.String())
	}
}

func TestKillProcessesContinuesPastUnkillable(t *testing.T) {
	f := newFixture(t, false)
	tough := &winops.FakeProcess{ProcPid: 100, Name: "mosquitto.exe", Unkillable: true}
	soft := &winops.FakeProcess{ProcPid: 200, Name: "mosquitto.exe"}
	f.procs.Procs = []*winops.FakeProcess{tough, soft}

	res := f.sw.KillProcesses("mosquitto")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Detail != "1 of 2 instances survived" {
		t.Errorf("detail = %q", res.Detail)
	}
	if !soft.Killed {
		t.Error("second instance was not attempted after first failed")
	}
	if got := f.logLines("Failed to kill process mosquitto (pid 100)"); got != 1 {
		t.Errorf("expected 1 failure line, got %d", got)
	}
	if got := f.logLines("Killed process: mosquitto (pid 200)"); got != 1 {
		t.Errorf("expected 1 success line, got %d", got)
	}
}

func TestKillProcessesMatchesWithoutExtension(t *testing.T) {
	f := newFixture(t, false)
	p := &winops.FakeProcess{ProcPid: 321, Name: "ATAgent.exe"}
	f.procs.Procs = []*winops.FakeProcess{p}

	if res := f.sw.KillProcesses("atagent"); res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !p.Killed {
		t.Error("process not killed")
	}
	// Idempotence: the killed instance no longer matches
	if res := f.sw.KillProcesses("atagent"); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s", res.Outcome)
	}
}

func TestHaltServiceAlreadyStopped(t *testing.T) {
	f := newFixture(t, false)
	f.services.States["ATDataService"] = winops.SvcStopped

	res := f.sw.HaltService("ATDataService")
	if res.Outcome != OutcomeAbsent {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(f.services.StopCalls) != 0 {
		t.Errorf("no stop must be attempted, got %v", f.services.StopCalls)
	}
	if got := f.logLines("Service already stopped: ATDataService"); got != 1 {
		t.Errorf("expected exactly 1 already-stopped line, got %d", got)
	}
}

func TestHaltServiceStopsRunning(t *testing.T) {
	f := newFixture(t, false)
	f.services.States["mosquitto"] = winops.SvcRunning

	res := f.sw.HaltService("mosquitto")
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s, err = %v", res.Outcome, res.Err)
	}
	if len(f.services.StopCalls) != 1 {
		t.Errorf("stop calls = %v", f.services.StopCalls)
	}
	if res := f.sw.HaltService("mosquitto"); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s, want already-stopped absent", res.Outcome)
	}
}

func TestUninstallAppsContinuesPastFailure(t *testing.T) {
	f := newFixture(t, false)
	f.apps.Entries = []winops.AppEntry{
		{Name: "AT Data Platform", Version: "3.2.1"},
		{Name: "AT Device Bridge", Version: "1.0.4"},
	}
	f.apps.FailNames["AT Data Platform"] = true

	res := f.sw.UninstallApps("AT ")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Detail != "1 of 2 uninstalls failed" {
		t.Errorf("detail = %q", res.Detail)
	}
	if len(f.apps.Uninstalled) != 2 {
		t.Errorf("expected both entries attempted, got %v", f.apps.Uninstalled)
	}
	if got := f.logLines("Uninstalled: AT Device Bridge 1.0.4"); got != 1 {
		t.Errorf("expected success line for second entry, got %d", got)
	}
}

func TestUninstallAppsMatchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, false)
	f.apps.Entries = []winops.AppEntry{{Name: "Eclipse Mosquitto 2.0", Version: "2.0.18"}}

	res := f.sw.UninstallApps("mosquitto")
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res := f.sw.UninstallApps("mosquitto"); res.Outcome != OutcomeAbsent {
		t.Errorf("second call outcome = %s", res.Outcome)
	}
}

func TestRunUninstallerNonZeroExitIsWarning(t *testing.T) {
	f := newFixture(t, false)
	f.fs.Files[`C:\Program Files (x86)\AT\Updater\unins000.exe`] = true
	f.launcher.ExitCode = 5

	res := f.sw.RunUninstaller(`C:\Program Files (x86)\AT\Updater\unins000.exe`, []string{"/VERYSILENT"})
	if res.Outcome != OutcomeRemoved {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Detail != "exit code 5" {
		t.Errorf("detail = %q", res.Detail)
	}
	if got := f.logLines("WARN: uninstaller"); got != 1 {
		t.Errorf("expected 1 warning line, got %d", got)
	}
	if len(f.launcher.Calls) != 1 || f.launcher.Calls[0][1] != "/VERYSILENT" {
		t.Errorf("launcher calls = %v", f.launcher.Calls)
	}
}

// TestDryRunNeverMutates proves the dry-run contract: with every target
// present, zero mutating collaborator calls occur across all primitives.
func TestDryRunNeverMutates(t *testing.T) {
	f := newFixture(t, true)
	f.apps.Entries = []winops.AppEntry{{Name: "Eclipse Mosquitto", Version: "2.0.18"}}
	f.env.Vars["ATDataPath"] = `C:\data`
	f.registry.Keys[`HKLM\SOFTWARE\AT Systems`] = true
	f.fs.Dirs[`C:\Program Files\mosquitto`] = true
	f.fs.Files[`C:\Windows\Temp\at-install.log`] = true
	f.fs.Files[`C:\at\unins000.exe`] = true
	f.procs.Procs = []*winops.FakeProcess{{ProcPid: 42, Name: "mosquitto.exe"}}
	f.services.States["mosquitto"] = winops.SvcRunning

	results := []Result{
		f.sw.UninstallApps("Mosquitto"),
		f.sw.ClearEnvVar("ATDataPath"),
		f.sw.DeleteRegistryKey(`HKLM\SOFTWARE\AT Systems`),
		f.sw.DeleteFolder(`C:\Program Files\mosquitto`),
		f.sw.DeleteFile(`%SYSTEMROOT%\Temp\at-install.log`),
		f.sw.KillProcesses("mosquitto"),
		f.sw.HaltService("mosquitto"),
		f.sw.RunUninstaller(`C:\at\unins000.exe`, nil),
	}

	for i, res := range results {
		if res.Outcome != OutcomeDryRun {
			t.Errorf("primitive %d outcome = %s, want %s", i, res.Outcome, OutcomeDryRun)
		}
	}
	if got := f.mutations(); got != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 mutating calls, got %d", got)
	}
}

func TestValidatorOverride(t *testing.T) {
	f := newFixture(t, false)
	f.fs.Dirs[`C:\ProgramData\AT`] = true
	f.sw.SetValidator(safety.NewValidator([]string{`C:\ProgramData\AT`}))

	res := f.sw.DeleteFolder(`C:\ProgramData\AT`)
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Detail != "blocked by validator" {
		t.Errorf("detail = %q", res.Detail)
	}
}
