//go:build !windows

package winops

// The registry, machine environment, uninstall catalog, and SCM exist only
// on Windows. Elsewhere those collaborators report ErrUnsupported so a run
// degrades to filesystem and process steps (useful for development hosts).

type unsupportedCatalog struct{}

func (unsupportedCatalog) Find(string) ([]AppEntry, error) { return nil, ErrUnsupported }
func (unsupportedCatalog) Uninstall(AppEntry) error        { return ErrUnsupported }

type unsupportedEnv struct{}

func (unsupportedEnv) Lookup(string) (string, bool, error) { return "", false, ErrUnsupported }
func (unsupportedEnv) Delete(string) error                 { return ErrUnsupported }

type unsupportedRegistry struct{}

func (unsupportedRegistry) KeyExists(string) (bool, error) { return false, ErrUnsupported }
func (unsupportedRegistry) DeleteTree(string) error        { return ErrUnsupported }

type unsupportedServices struct{}

func (unsupportedServices) Status(string) (string, error) { return SvcUnknown, ErrUnsupported }
func (unsupportedServices) ForceStop(string) error        { return ErrUnsupported }

// System wires up the real collaborators for this host
func System() Collaborators {
	return Collaborators{
		Apps:     unsupportedCatalog{},
		Env:      unsupportedEnv{},
		Registry: unsupportedRegistry{},
		FS:       OSDeleter{},
		Procs:    SystemProcesses{},
		Services: unsupportedServices{},
		Launcher: ExecLauncher{},
	}
}
