//go:build windows

package winops

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// WinRegistry implements RegistryStore against the live registry
type WinRegistry struct{}

func (WinRegistry) KeyExists(path string) (bool, error) {
	root, sub, err := splitKeyPath(path)
	if err != nil {
		return false, err
	}
	k, err := registry.OpenKey(root, sub, registry.QUERY_VALUE)
	if err == registry.ErrNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open key %s: %w", path, err)
	}
	k.Close()
	return true, nil
}

func (WinRegistry) DeleteTree(path string) error {
	root, sub, err := splitKeyPath(path)
	if err != nil {
		return err
	}
	return deleteKeyRecursive(root, sub)
}

// deleteKeyRecursive removes a key and all descendants. DeleteKey refuses
// keys that still have children, so children go first.
func deleteKeyRecursive(root registry.Key, sub string) error {
	k, err := registry.OpenKey(root, sub, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return fmt.Errorf("open key %s: %w", sub, err)
	}
	names, err := k.ReadSubKeyNames(-1)
	k.Close()
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", sub, err)
	}
	for _, name := range names {
		if err := deleteKeyRecursive(root, sub+`\`+name); err != nil {
			return err
		}
	}
	if err := registry.DeleteKey(root, sub); err != nil {
		return fmt.Errorf("delete key %s: %w", sub, err)
	}
	return nil
}

func splitKeyPath(path string) (registry.Key, string, error) {
	hive, sub, found := strings.Cut(path, `\`)
	if !found || sub == "" {
		return 0, "", fmt.Errorf("registry path %q: want HIVE\\sub\\key", path)
	}
	switch strings.ToUpper(hive) {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		return registry.LOCAL_MACHINE, sub, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return registry.CURRENT_USER, sub, nil
	case "HKU", "HKEY_USERS":
		return registry.USERS, sub, nil
	case "HKCR", "HKEY_CLASSES_ROOT":
		return registry.CLASSES_ROOT, sub, nil
	case "HKCC", "HKEY_CURRENT_CONFIG":
		return registry.CURRENT_CONFIG, sub, nil
	default:
		return 0, "", fmt.Errorf("registry path %q: unknown hive %q", path, hive)
	}
}
