//go:build windows

package winops

// System wires up the real collaborators for this host
func System() Collaborators {
	return Collaborators{
		Apps:     WinAppCatalog{},
		Env:      MachineEnv{},
		Registry: WinRegistry{},
		FS:       OSDeleter{},
		Procs:    SystemProcesses{},
		Services: WinServices{},
		Launcher: ExecLauncher{},
	}
}
