package fsys

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Fake is an in-memory FS for testing. It records all calls (spy) and
// simulates filesystem state (fake). Pre-populate Dirs, Files, and Errors
// before calling methods.
type Fake struct {
	Dirs   map[string]bool
	Files  map[string][]byte
	Errors map[string]error
	Calls  []Call
}

// Call records a single method invocation on Fake.
type Call struct {
	Method string
	Path   string
}

// NewFake returns a ready-to-use Fake with empty maps.
func NewFake() *Fake {
	return &Fake{
		Dirs:   make(map[string]bool),
		Files:  make(map[string][]byte),
		Errors: make(map[string]error),
	}
}

func (f *Fake) record(method, path string) {
	f.Calls = append(f.Calls, Call{Method: method, Path: path})
}

func (f *Fake) MkdirAll(path string, _ os.FileMode) error {
	f.record("MkdirAll", path)
	if err, ok := f.Errors[path]; ok {
		return err
	}
	for p := filepath.Clean(path); p != "." && p != "/" && p != string(filepath.Separator); p = filepath.Dir(p) {
		f.Dirs[p] = true
	}
	return nil
}

func (f *Fake) WriteFile(name string, data []byte, _ os.FileMode) error {
	f.record("WriteFile", name)
	if err, ok := f.Errors[name]; ok {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.Files[name] = cp
	return nil
}

func (f *Fake) ReadFile(name string) ([]byte, error) {
	f.record("ReadFile", name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	if data, ok := f.Files[name]; ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		return cp, nil
	}
	return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
}

func (f *Fake) Stat(name string) (os.FileInfo, error) {
	f.record("Stat", name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	if f.Dirs[name] {
		return fakeFileInfo{name: filepath.Base(name), dir: true}, nil
	}
	if data, ok := f.Files[name]; ok {
		return fakeFileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

func (f *Fake) ReadDir(name string) ([]os.DirEntry, error) {
	f.record("ReadDir", name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}

	name = filepath.Clean(name)
	seen := make(map[string]bool)
	var entries []os.DirEntry

	for d := range f.Dirs {
		if filepath.Dir(d) == name && d != name {
			base := filepath.Base(d)
			if !seen[base] {
				seen[base] = true
				entries = append(entries, fakeDirEntry{name: base, dir: true})
			}
		}
	}
	for p, data := range f.Files {
		if filepath.Dir(p) == name {
			base := filepath.Base(p)
			if !seen[base] {
				seen[base] = true
				entries = append(entries, fakeDirEntry{name: base, size: int64(len(data))})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

func (f *Fake) Rename(oldpath, newpath string) error {
	f.record("Rename", oldpath)
	if err, ok := f.Errors[oldpath]; ok {
		return err
	}
	if data, ok := f.Files[oldpath]; ok {
		f.Files[newpath] = data
		delete(f.Files, oldpath)
		return nil
	}
	if f.Dirs[oldpath] {
		f.Dirs[newpath] = true
		delete(f.Dirs, oldpath)
		return nil
	}
	return &os.PathError{Op: "rename", Path: oldpath, Err: os.ErrNotExist}
}

func (f *Fake) Remove(name string) error {
	f.record("Remove", name)
	if err, ok := f.Errors[name]; ok {
		return err
	}
	if _, ok := f.Files[name]; ok {
		delete(f.Files, name)
		return nil
	}
	if f.Dirs[name] {
		delete(f.Dirs, name)
		return nil
	}
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
}

func (f *Fake) RemoveAll(path string) error {
	f.record("RemoveAll", path)
	if err, ok := f.Errors[path]; ok {
		return err
	}
	path = filepath.Clean(path)
	for p := range f.Files {
		if p == path || isUnderFake(path, p) {
			delete(f.Files, p)
		}
	}
	for d := range f.Dirs {
		if d == path || isUnderFake(path, d) {
			delete(f.Dirs, d)
		}
	}
	return nil
}

func isUnderFake(base, candidate string) bool {
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return false
	}
	return rel != "." && rel[0] != '.'
}

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi fakeFileInfo) Name() string       { return fi.name }
func (fi fakeFileInfo) Size() int64        { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode  { return 0o755 }
func (fi fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool        { return fi.dir }
func (fi fakeFileInfo) Sys() any           { return nil }

type fakeDirEntry struct {
	name string
	size int64
	dir  bool
}

func (de fakeDirEntry) Name() string      { return de.name }
func (de fakeDirEntry) IsDir() bool       { return de.dir }
func (de fakeDirEntry) Type() fs.FileMode { return 0 }
func (de fakeDirEntry) Info() (fs.FileInfo, error) {
	return fakeFileInfo(de), nil
}

var (
	_ FS             = (*Fake)(nil)
	_ os.FileInfo    = fakeFileInfo{}
	_ os.DirEntry    = fakeDirEntry{}
)
