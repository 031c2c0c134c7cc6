package winops

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// SystemProcesses implements ProcessTable against the live process table
type SystemProcesses struct{}

type sysProcess struct {
	p *process.Process
}

func (s sysProcess) Pid() int32 { return s.p.Pid }

func (s sysProcess) Kill() error { return s.p.Kill() }

// FindByName returns every running instance whose executable name matches,
// ignoring case and a trailing .exe.
func (SystemProcesses) FindByName(name string) ([]Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	want := normalizeExeName(name)
	var matches []Process
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil || pname == "" {
			// Processes can exit between listing and inspection
			continue
		}
		if normalizeExeName(pname) == want {
			matches = append(matches, sysProcess{p: p})
		}
	}
	return matches, nil
}

func normalizeExeName(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".exe")
}
