package sftp

import (
	"os"
	"path"
)

// walkerFS adapts a *Client to github.com/kr/fs.FileSystem, so
// DeleteFile's recursive descent (§4.5) can reuse kr/fs's WalkFS instead
// of hand-rolling a stack. It exists as a separate type, rather than
// implementing FileSystem on Client directly, because kr/fs.FileSystem's
// Lstat(name string) (os.FileInfo, error) collides with the spec's own
// Client.Lstat(pathN string) (*FileStat, error) — the two return
// different things for the same verb and cannot share one method.
type walkerFS struct {
	c *Client
}

// ReadDir lists dir's entries as os.FileInfo, delegating to the
// Client's own ReadDirectory and converting each entry's *FileStat.
func (w *walkerFS) ReadDir(dir string) ([]os.FileInfo, error) {
	entries, err := w.c.ReadDirectory(dir)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, len(entries))
	for i, e := range entries {
		infos[i] = FileInfoFromStat(&e.attrs, path.Base(e.pathN))
	}
	return infos, nil
}

// Lstat satisfies kr/fs.FileSystem's os.FileInfo-returning signature by
// wrapping the Client's wire-level Lstat.
func (w *walkerFS) Lstat(name string) (os.FileInfo, error) {
	st, err := w.c.Lstat(name)
	if err != nil {
		return nil, err
	}
	return FileInfoFromStat(st, path.Base(name)), nil
}

// Join joins path elements using SFTP's always-forward-slash convention,
// not the host OS's path separator.
func (w *walkerFS) Join(elem ...string) string {
	return path.Join(elem...)
}
