package sftp

import (
	"io/fs"
	"path"
)

// FS is the io/fs surface a Client exposes, for callers that just want
// to treat a remote tree as a read-only fs.FS (e.g. embedding it behind
// http.FileServer, or handing it to fs.WalkDir).
type FS interface {
	fs.FS
	fs.ReadDirFS
	fs.StatFS
}

type fsClient struct {
	c *Client
}

// NewFS adapts c to the io/fs interfaces above.
func NewFS(c *Client) FS { return &fsClient{c: c} }

func (fsc *fsClient) Open(name string) (fs.File, error) {
	f, err := fsc.c.Open(name, FxfRead)
	if err != nil {
		return nil, err
	}
	return &fsFile{f: f}, nil
}

func (fsc *fsClient) Stat(name string) (fs.FileInfo, error) {
	s, err := fsc.c.Stat(name)
	if err != nil {
		return nil, err
	}
	return FileInfoFromStat(s, path.Base(name)), nil
}

func (fsc *fsClient) ReadDir(dirN string) ([]fs.DirEntry, error) {
	files, err := fsc.c.ReadDirectory(dirN)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(files))
	for i, file := range files {
		entries[i] = &fsDirEntry{
			info: FileInfoFromStat(&file.attrs, path.Base(file.Name())),
		}
	}
	return entries, nil
}

type fsDirEntry struct {
	info fs.FileInfo
}

func (de *fsDirEntry) Name() string              { return de.info.Name() }
func (de *fsDirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *fsDirEntry) Type() fs.FileMode           { return de.info.Mode().Type() }
func (de *fsDirEntry) Info() (fs.FileInfo, error)  { return de.info, nil }

type fsFile struct {
	f *File
}

func (fsf *fsFile) Stat() (fs.FileInfo, error) {
	s, err := fsf.f.Stat()
	if err != nil {
		return nil, err
	}
	return FileInfoFromStat(s, path.Base(fsf.f.Name())), nil
}

func (fsf *fsFile) Read(b []byte) (int, error) { return fsf.f.Read(b) }

func (fsf *fsFile) Close() error { return fsf.f.Close() }
