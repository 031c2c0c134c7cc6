//go:build windows

package winops

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Both the native and the 32-bit-on-64 uninstall views must be scanned.
var uninstallKeys = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

// WinAppCatalog implements AppCatalog against the registry uninstall views
type WinAppCatalog struct{}

func (WinAppCatalog) Find(pattern string) ([]AppEntry, error) {
	want := strings.ToLower(pattern)
	var entries []AppEntry

	for _, path := range uninstallKeys {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.ENUMERATE_SUB_KEYS|registry.READ)
		if err != nil {
			// The WOW6432Node view is absent on 32-bit hosts
			continue
		}

		subkeys, err := k.ReadSubKeyNames(-1)
		if err != nil {
			k.Close()
			return nil, fmt.Errorf("enumerate %s: %w", path, err)
		}

		for _, name := range subkeys {
			sk, err := registry.OpenKey(registry.LOCAL_MACHINE, path+`\`+name, registry.READ)
			if err != nil {
				continue
			}
			display, _, err := sk.GetStringValue("DisplayName")
			if err != nil || display == "" || !strings.Contains(strings.ToLower(display), want) {
				sk.Close()
				continue
			}
			version, _, _ := sk.GetStringValue("DisplayVersion")
			publisher, _, _ := sk.GetStringValue("Publisher")
			command := quietUninstallCommand(sk)
			sk.Close()

			if command == "" {
				continue
			}
			entries = append(entries, AppEntry{
				Name:      display,
				Version:   version,
				Publisher: publisher,
				Command:   command,
			})
		}
		k.Close()
	}
	return entries, nil
}

// quietUninstallCommand picks the registered uninstall command line,
// rewriting msiexec invocations for unattended removal when only the
// interactive command is registered.
func quietUninstallCommand(k registry.Key) string {
	if quiet, _, err := k.GetStringValue("QuietUninstallString"); err == nil && quiet != "" {
		return quiet
	}
	cmd, _, err := k.GetStringValue("UninstallString")
	if err != nil || cmd == "" {
		return ""
	}
	lower := strings.ToLower(cmd)
	if strings.Contains(lower, "msiexec") {
		if idx := strings.Index(lower, "/i{"); idx >= 0 {
			cmd = cmd[:idx] + "/X" + cmd[idx+2:]
		}
		if !strings.Contains(lower, "/qn") {
			cmd += " /qn /norestart"
		}
	}
	return cmd
}

func (WinAppCatalog) Uninstall(entry AppEntry) error {
	// Uninstall strings are full command lines, so hand them to cmd.exe
	c := exec.Command("cmd.exe", "/C", entry.Command)
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("uninstall %s: exit code %d", entry.Name, exitErr.ExitCode())
		}
		return fmt.Errorf("uninstall %s: %w", entry.Name, err)
	}
	return nil
}
