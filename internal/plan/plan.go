// Package plan defines the ordered list of teardown steps a run executes.
// A plan is pure data: the executor in internal/runner interprets it.
package plan

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind identifies which primitive a step invokes
type Kind string

const (
	KindUninstallApp   Kind = "uninstall-app"
	KindClearEnv       Kind = "clear-env"
	KindDeleteRegistry Kind = "delete-registry"
	KindDeleteFolder   Kind = "delete-folder"
	KindDeleteFile     Kind = "delete-file"
	KindKillProcess    Kind = "kill-process"
	KindHaltService    Kind = "halt-service"
	KindRunUninstaller Kind = "run-uninstaller"
)

var knownKinds = map[Kind]bool{
	KindUninstallApp:   true,
	KindClearEnv:       true,
	KindDeleteRegistry: true,
	KindDeleteFolder:   true,
	KindDeleteFile:     true,
	KindKillProcess:    true,
	KindHaltService:    true,
	KindRunUninstaller: true,
}

// Step is one declarative teardown action
type Step struct {
	Kind   Kind     `yaml:"kind"`
	Target string   `yaml:"target"`
	Args   []string `yaml:"args,omitempty"` // only run-uninstaller uses these
	Note   string   `yaml:"note,omitempty"`
}

// Plan is an ordered sequence of steps executed top to bottom
type Plan struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

var (
	errNoSteps     = errors.New("plan must contain at least one step")
	errEmptyTarget = errors.New("step target must not be empty")
)

// Load reads and validates a YAML plan file
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	p, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decode(r io.Reader) (*Plan, error) {
	p := &Plan{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(p); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return p, nil
}

// Validate rejects plans that would fail mid-run: unknown kinds, empty
// targets, or no steps at all.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return errNoSteps
	}
	for i, s := range p.Steps {
		if !knownKinds[s.Kind] {
			return fmt.Errorf("step %d: unknown kind %q", i+1, s.Kind)
		}
		if s.Target == "" {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Kind, errEmptyTarget)
		}
		if len(s.Args) > 0 && s.Kind != KindRunUninstaller {
			return fmt.Errorf("step %d (%s): args are only valid for %s", i+1, s.Kind, KindRunUninstaller)
		}
	}
	return nil
}
