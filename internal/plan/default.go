package plan

// Default returns the built-in teardown checklist for the AT bundle.
// Running winsweep with no flags executes exactly this sequence.
//
// Order matters: services and processes go first so file locks are
// released before uninstallers and folder removal run.
func Default() *Plan {
	return &Plan{
		Name: "at-bundle-teardown",
		Steps: []Step{
			// Stop everything that holds locks
			{Kind: KindHaltService, Target: "mosquitto"},
			{Kind: KindHaltService, Target: "ATDataService"},
			{Kind: KindHaltService, Target: "ATSyncService"},
			{Kind: KindKillProcess, Target: "mosquitto"},
			{Kind: KindKillProcess, Target: "ATAgent"},
			{Kind: KindKillProcess, Target: "ATTrayMonitor"},

			// Registered uninstallers
			{Kind: KindUninstallApp, Target: "Mosquitto"},
			{Kind: KindUninstallApp, Target: "AT Data Platform"},
			{Kind: KindUninstallApp, Target: "AT Device Bridge"},
			{
				Kind:   KindRunUninstaller,
				Target: `C:\Program Files (x86)\AT\Updater\unins000.exe`,
				Args:   []string{"/VERYSILENT", "/NORESTART"},
				Note:   "updater ships its own Inno Setup uninstaller, not catalogued",
			},

			// Machine state
			{Kind: KindClearEnv, Target: "ATDataPath"},
			{Kind: KindClearEnv, Target: "ATConfigPath"},
			{Kind: KindClearEnv, Target: "MOSQUITTO_DIR"},
			{Kind: KindDeleteRegistry, Target: `HKLM\SOFTWARE\AT Systems`},
			{Kind: KindDeleteRegistry, Target: `HKLM\SOFTWARE\WOW6432Node\AT Systems`},

			// Leftover files last, once nothing holds them open
			{Kind: KindDeleteFolder, Target: `C:\Program Files\mosquitto`},
			{Kind: KindDeleteFolder, Target: `C:\Program Files (x86)\AT`},
			{Kind: KindDeleteFolder, Target: `C:\ProgramData\AT`},
			{Kind: KindDeleteFile, Target: `%SYSTEMROOT%\Temp\at-install.log`},
			{Kind: KindDeleteFile, Target: `%PUBLIC%\Desktop\AT Console.lnk`},
		},
	}
}
