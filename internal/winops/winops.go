// Package winops abstracts the OS state mutated during a teardown run.
// Each resource kind is modeled as a small collaborator interface so the
// sweep primitives can be exercised against fakes in tests.
package winops

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

// ErrUnsupported is returned by collaborators that only exist on Windows
// when the binary runs on another platform.
var ErrUnsupported = errors.New("winops: not supported on this platform")

// ErrorKind classifies a collaborator failure for logging and the audit trail
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindAccessDenied ErrorKind = "access_denied"
	KindBusy         ErrorKind = "busy"
	KindPlatform     ErrorKind = "platform"
)

// Classify maps an OS-level error to its kind. Unknown failures are platform errors.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES):
		return KindAccessDenied
	case errors.Is(err, syscall.EBUSY):
		return KindBusy
	default:
		return KindPlatform
	}
}

// AppEntry is one match from the installed-application catalog
type AppEntry struct {
	Name      string
	Version   string
	Publisher string
	// Command is the uninstall command line registered for the entry,
	// already rewritten for unattended execution where possible.
	Command string
}

// AppCatalog queries and mutates the installed-application registry view
type AppCatalog interface {
	// Find returns every entry whose display name contains pattern
	// (case-insensitive). Zero matches is not an error.
	Find(pattern string) ([]AppEntry, error)
	// Uninstall runs the entry's uninstall command and waits for it to exit
	Uninstall(entry AppEntry) error
}

// EnvStore is the machine-scope environment variable view
type EnvStore interface {
	Lookup(name string) (value string, ok bool, err error)
	Delete(name string) error
}

// RegistryStore provides existence checks and recursive deletion of
// registry keys addressed as HIVE\sub\key
type RegistryStore interface {
	KeyExists(path string) (bool, error)
	DeleteTree(path string) error
}

// Deleter abstracts filesystem removal
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	Stat(path string) (os.FileInfo, error)
	Remove(path string) error
	RemoveAll(path string) error
}

// Process is one running instance found in the process table
type Process interface {
	Pid() int32
	Kill() error
}

// ProcessTable looks up running processes by executable name
type ProcessTable interface {
	// FindByName matches on the executable name without extension,
	// case-insensitive. Zero matches is not an error.
	FindByName(name string) ([]Process, error)
}

// Service states as reported by ServiceControl.Status
const (
	SvcNotFound = "not found"
	SvcRunning  = "running"
	SvcStopped  = "stopped"
	SvcUnknown  = "unknown"
)

// ServiceControl wraps the service control manager. The stop capability is
// deliberately named differently from any sweep primitive that calls it.
type ServiceControl interface {
	Status(name string) (string, error)
	ForceStop(name string) error
}

// Launcher runs a child executable to completion
type Launcher interface {
	// Run blocks until the child exits and returns its exit code.
	// A non-nil error means the child could not be started or waited on.
	Run(path string, args []string) (exitCode int, err error)
}

// Collaborators bundles one implementation of every resource kind
type Collaborators struct {
	Apps     AppCatalog
	Env      EnvStore
	Registry RegistryStore
	FS       Deleter
	Procs    ProcessTable
	Services ServiceControl
	Launcher Launcher
}
