package winops

import (
	"io/fs"
	"os"
	"strings"
	"syscall"
	"time"
)

// Fake collaborators for tests. Each one records every mutating call so a
// test can prove that absent targets and dry runs cause zero mutations.

// FakeDeleter implements Deleter over an in-memory path set
type FakeDeleter struct {
	Files  map[string]bool // regular files
	Dirs   map[string]bool // directories
	Locked map[string]bool // removal fails with EBUSY
	Denied map[string]bool // stat fails with a permission error
	Calls  []string
}

func NewFakeDeleter() *FakeDeleter {
	return &FakeDeleter{
		Files:  map[string]bool{},
		Dirs:   map[string]bool{},
		Locked: map[string]bool{},
		Denied: map[string]bool{},
	}
}

func (f *FakeDeleter) Stat(path string) (os.FileInfo, error) {
	if f.Denied[path] {
		return nil, &os.PathError{Op: "stat", Path: path, Err: fs.ErrPermission}
	}
	if f.Dirs[path] {
		return fakeFileInfo{name: path, dir: true}, nil
	}
	if f.Files[path] {
		return fakeFileInfo{name: path}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if f.Locked[path] {
		return &os.PathError{Op: "remove", Path: path, Err: syscall.EBUSY}
	}
	delete(f.Files, path)
	delete(f.Dirs, path)
	return nil
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	if f.Locked[path] {
		return &os.PathError{Op: "removeall", Path: path, Err: syscall.EBUSY}
	}
	for p := range f.Files {
		if p == path || strings.HasPrefix(p, path+`\`) || strings.HasPrefix(p, path+"/") {
			delete(f.Files, p)
		}
	}
	for p := range f.Dirs {
		if p == path || strings.HasPrefix(p, path+`\`) || strings.HasPrefix(p, path+"/") {
			delete(f.Dirs, p)
		}
	}
	return nil
}

type fakeFileInfo struct {
	name string
	dir  bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() interface{}   { return nil }

// FakeEnv implements EnvStore over a map
type FakeEnv struct {
	Vars  map[string]string
	Calls []string
	// Denied names fail deletion with a permission error
	Denied map[string]bool
}

func NewFakeEnv() *FakeEnv {
	return &FakeEnv{Vars: map[string]string{}, Denied: map[string]bool{}}
}

func (f *FakeEnv) Lookup(name string) (string, bool, error) {
	v, ok := f.Vars[name]
	return v, ok, nil
}

func (f *FakeEnv) Delete(name string) error {
	f.Calls = append(f.Calls, "del:"+name)
	if f.Denied[name] {
		return fs.ErrPermission
	}
	delete(f.Vars, name)
	return nil
}

// FakeRegistry implements RegistryStore over a key set
type FakeRegistry struct {
	Keys  map[string]bool
	Calls []string
	// Busy keys fail deletion
	Busy map[string]bool
}

func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{Keys: map[string]bool{}, Busy: map[string]bool{}}
}

func (f *FakeRegistry) KeyExists(path string) (bool, error) {
	return f.Keys[path], nil
}

func (f *FakeRegistry) DeleteTree(path string) error {
	f.Calls = append(f.Calls, "deltree:"+path)
	if f.Busy[path] {
		return syscall.EBUSY
	}
	for k := range f.Keys {
		if k == path || strings.HasPrefix(k, path+`\`) {
			delete(f.Keys, k)
		}
	}
	return nil
}

// FakeCatalog implements AppCatalog over a fixed entry list
type FakeCatalog struct {
	Entries []AppEntry
	// FailNames makes the uninstall of the named entries fail
	FailNames   map[string]bool
	Uninstalled []string
}

func NewFakeCatalog(entries ...AppEntry) *FakeCatalog {
	return &FakeCatalog{Entries: entries, FailNames: map[string]bool{}}
}

func (f *FakeCatalog) Find(pattern string) ([]AppEntry, error) {
	want := strings.ToLower(pattern)
	var matches []AppEntry
	for _, e := range f.Entries {
		if strings.Contains(strings.ToLower(e.Name), want) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

func (f *FakeCatalog) Uninstall(entry AppEntry) error {
	f.Uninstalled = append(f.Uninstalled, entry.Name)
	if f.FailNames[entry.Name] {
		return fs.ErrPermission
	}
	kept := f.Entries[:0]
	for _, e := range f.Entries {
		if e.Name != entry.Name {
			kept = append(kept, e)
		}
	}
	f.Entries = kept
	return nil
}

// FakeProcess is one fake process-table entry
type FakeProcess struct {
	ProcPid    int32
	Name       string
	Unkillable bool
	Killed     bool
}

func (p *FakeProcess) Pid() int32 { return p.ProcPid }

func (p *FakeProcess) Kill() error {
	if p.Unkillable {
		return fs.ErrPermission
	}
	p.Killed = true
	return nil
}

// FakeProcs implements ProcessTable over a slice of fake processes
type FakeProcs struct {
	Procs []*FakeProcess
}

func (f *FakeProcs) FindByName(name string) ([]Process, error) {
	want := normalizeExeName(name)
	var matches []Process
	for _, p := range f.Procs {
		if !p.Killed && normalizeExeName(p.Name) == want {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// FakeServices implements ServiceControl over a state map
type FakeServices struct {
	States    map[string]string // name -> SvcRunning / SvcStopped
	StopCalls []string
	// Busy services fail to stop
	Busy map[string]bool
}

func NewFakeServices() *FakeServices {
	return &FakeServices{States: map[string]string{}, Busy: map[string]bool{}}
}

func (f *FakeServices) Status(name string) (string, error) {
	if st, ok := f.States[name]; ok {
		return st, nil
	}
	return SvcNotFound, nil
}

func (f *FakeServices) ForceStop(name string) error {
	f.StopCalls = append(f.StopCalls, name)
	if f.Busy[name] {
		return syscall.EBUSY
	}
	f.States[name] = SvcStopped
	return nil
}

// FakeLauncher implements Launcher, recording each invocation
type FakeLauncher struct {
	Calls    [][]string // path followed by args
	ExitCode int
	Err      error
}

func (f *FakeLauncher) Run(path string, args []string) (int, error) {
	f.Calls = append(f.Calls, append([]string{path}, args...))
	return f.ExitCode, f.Err
}
