//go:build windows

package winops

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const stopWait = 30 * time.Second

// WinServices implements ServiceControl against the service control manager
type WinServices struct{}

func (WinServices) Status(name string) (string, error) {
	m, err := mgr.Connect()
	if err != nil {
		return SvcUnknown, fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return SvcNotFound, nil
	}
	if err != nil {
		return SvcUnknown, fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return SvcUnknown, fmt.Errorf("query %s: %w", name, err)
	}
	return mapState(status.State), nil
}

// ForceStop sends the stop control and waits until the service reports
// stopped or the wait times out.
func (WinServices) ForceStop(name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	status, err := s.Control(svc.Stop)
	if err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}

	deadline := time.Now().Add(stopWait)
	for status.State != svc.Stopped {
		if time.Now().After(deadline) {
			return fmt.Errorf("stop %s: still %s after %s", name, mapState(status.State), stopWait)
		}
		time.Sleep(500 * time.Millisecond)
		status, err = s.Query()
		if err != nil {
			return fmt.Errorf("query %s while stopping: %w", name, err)
		}
	}
	return nil
}

func mapState(state svc.State) string {
	switch state {
	case svc.Running, svc.StartPending, svc.ContinuePending, svc.Paused, svc.PausePending:
		// Paused services still hold their resources and need the stop
		return SvcRunning
	case svc.Stopped, svc.StopPending:
		return SvcStopped
	default:
		return SvcUnknown
	}
}
