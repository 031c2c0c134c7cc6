//go:build windows

package winops

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// Machine-scope environment variables live under this key, not in the
// process environment block.
const machineEnvKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`

// MachineEnv implements EnvStore against the machine-scope environment
type MachineEnv struct{}

func (MachineEnv) Lookup(name string) (string, bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, machineEnvKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false, fmt.Errorf("open machine environment: %w", err)
	}
	defer k.Close()

	val, _, err := k.GetStringValue(name)
	if err == registry.ErrNotExist {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return val, true, nil
}

func (MachineEnv) Delete(name string) error {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, machineEnvKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open machine environment for write: %w", err)
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
