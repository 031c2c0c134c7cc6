package winops

import (
	"errors"
	"fmt"
	"os/exec"
)

// ExecLauncher implements Launcher with os/exec
type ExecLauncher struct{}

func (ExecLauncher) Run(path string, args []string) (int, error) {
	cmd := exec.Command(path, args...)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("run %s: %w", path, err)
}
