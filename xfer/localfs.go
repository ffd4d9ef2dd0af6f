package xfer

import (
	"io"
	"os"
	"syscall"
	"time"
)

// LocalFile is the subset of *os.File the engine needs.
type LocalFile interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Stat() (os.FileInfo, error)
}

// LocalFS is the "local filesystem access layer" §1 explicitly keeps
// external. The engine depends only on this interface; osLocalFS below
// is the default, stdlib-backed implementation provided so the module
// is usable without a caller supplying its own (e.g. an in-memory one
// for tests).
type LocalFS interface {
	Open(name string) (LocalFile, error)
	OpenFile(name string, flag int, perm os.FileMode) (LocalFile, error)
	Stat(name string) (os.FileInfo, error)
	ReadDir(dirname string) ([]os.FileInfo, error)
	Mkdir(name string, perm os.FileMode) error
	Rename(oldname, newname string) error
	Remove(name string) error
	Chtimes(name string, atime, mtime time.Time) error
	Chmod(name string, mode os.FileMode) error
}

// osLocalFS is a thin pass-through to the os package. No third-party
// library in the retrieved corpus offers anything for "read/write the
// local filesystem" beyond what os already does, so this one piece is
// justifiably stdlib — see DESIGN.md.
type osLocalFS struct{}

// NewOsLocalFS returns the default, os-backed LocalFS.
func NewOsLocalFS() LocalFS { return osLocalFS{} }

func (osLocalFS) Open(name string) (LocalFile, error) { return os.Open(name) }

func (osLocalFS) OpenFile(name string, flag int, perm os.FileMode) (LocalFile, error) {
	return os.OpenFile(name, flag, perm)
}

func (osLocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osLocalFS) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (osLocalFS) Mkdir(name string, perm os.FileMode) error { return os.Mkdir(name, perm) }

func (osLocalFS) Rename(oldname, newname string) error { return os.Rename(oldname, newname) }

func (osLocalFS) Remove(name string) error { return os.Remove(name) }

func (osLocalFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

func (osLocalFS) Chmod(name string, mode os.FileMode) error { return os.Chmod(name, mode) }

// FileAtime pulls the access time out of fi's underlying *syscall.Stat_t,
// falling back to ModTime when the platform doesn't hand one back
// (os.FileInfo itself has no portable accessor for it).
func FileAtime(fi os.FileInfo) time.Time {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fi.ModTime()
	}
	return time.Unix(stat.Atim.Unix())
}
