package sftp

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/wscp/sftpcore/internal/uerr"
)

// ErrOpened is returned when an already-open File is asked to open
// again.
const ErrOpened = uerr.Const("sftp: file already open")

// File represents a remote file, either freshly returned by
// Client.ReadDirectory (populated attributes, not open) or by
// Client.Open/Create (open, attributes empty until Stat is called).
//
// Unlike the teacher's File, there is no WriteTo/ReadFrom/ReadAt/WriteAt
// machinery pumping pipelined packets through a background writer: §5's
// single-threaded model means Read and Write just issue one blocking
// READ/WRITE round trip per call, in the same call stack as everything
// else a Client does. xfer's upload/download engines loop over
// Write/Read in the same way, one round trip per block.
type File struct {
	c      *Client
	pathN  string
	handle string // empty if not open
	offset int64
	attrs  FileStat
}

// NewFile wraps pathN for a later Open/Create call.
func NewFile(c *Client, pathN string) *File {
	return &File{c: c, pathN: pathN}
}

func (f *File) IsOpen() bool { return f.handle != "" }

func (f *File) Client() *Client { return f.c }

// FileStat returns the cached attributes, which may be empty (zero
// Mode) if this File came from Open rather than ReadDirectory and Stat
// has not yet been called.
func (f *File) FileStat() FileStat { return f.attrs }

func (f *File) ModTime() time.Time { return f.attrs.ModTime() }

func (f *File) Mode() FileMode { return f.attrs.FileMode() }

func (f *File) OsFileMode() os.FileMode { return f.attrs.OsFileMode() }

func (f *File) OsFileInfo() os.FileInfo { return FileInfoFromStat(&f.attrs, f.pathN) }

func (f *File) AttrsCached() bool { return f.attrs.Mode != 0 }

func (f *File) Size() uint64 { return f.attrs.Size }

func (f *File) IsRegular() bool { return f.attrs.IsRegular() }

func (f *File) IsDir() bool { return f.attrs.IsDir() }

// Name returns the path as given to Open/Create/ReadDirectory.
func (f *File) Name() string { return f.pathN }

func (f *File) BaseName() string { return path.Base(f.pathN) }

// toPflags maps os.O_* bits to the SSH_FXF_* bits OPEN expects.
func toPflags(flags int) uint32 {
	var pflags uint32
	switch flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		pflags = FxfRead
	case os.O_WRONLY:
		pflags = FxfWrite
	case os.O_RDWR:
		pflags = FxfRead | FxfWrite
	}
	if flags&os.O_APPEND != 0 {
		pflags |= FxfAppend
	}
	if flags&os.O_CREATE != 0 {
		pflags |= FxfCreat
	}
	if flags&os.O_TRUNC != 0 {
		pflags |= FxfTrunc
	}
	if flags&os.O_EXCL != 0 {
		pflags |= FxfExcl
	}
	return pflags
}

// OpenRead opens the file read-only.
func (f *File) OpenRead() error { return f.Open(os.O_RDONLY) }

// Open opens the file using os.O_* flags, translated to SSH_FXF_* bits.
func (f *File) Open(flags int) error {
	if f.handle != "" {
		return ErrOpened
	}
	opened, err := f.c.Open(f.pathN, toPflags(flags))
	if err != nil {
		return err
	}
	f.handle = opened.handle
	return nil
}

// Close closes the remote handle. Closing an already-closed File is a
// no-op, matching os.File.
func (f *File) Close() error {
	if f.handle == "" {
		return nil
	}
	handle := f.handle
	f.handle = ""
	return f.c.closeHandle(handle)
}

// Remove deletes the file. It may remain open.
func (f *File) Remove() error { return f.c.Remove(f.pathN) }

// Rename renames the file, remotely and in this File's cached name.
func (f *File) Rename(newN string) error {
	if err := f.c.Rename(f.pathN, newN); err != nil {
		return err
	}
	f.pathN = newN
	return nil
}

// Read implements io.Reader: one blocking READ per call, up to
// maxPacketSize of payload, honoring the current offset.
func (f *File) Read(b []byte) (int, error) {
	if f.handle == "" {
		return 0, os.ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	length := uint32(len(b))
	if length > maxPacketSize {
		length = maxPacketSize
	}
	data, err := f.c.read(f.handle, uint64(f.offset), length)
	if err != nil {
		if se, ok := err.(*StatusError); ok && se.Code == sshFxEOF {
			return 0, io.EOF
		}
		return 0, err
	}
	if len(data) == 0 {
		return 0, io.EOF
	}
	n := copy(b, data)
	f.offset += int64(n)
	return n, nil
}

// Write implements io.Writer: one blocking WRITE per call, appending at
// the current offset.
func (f *File) Write(b []byte) (int, error) {
	if f.handle == "" {
		return 0, os.ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	chunk := b
	if len(chunk) > maxPacketSize {
		chunk = chunk[:maxPacketSize]
	}
	if err := f.c.write(f.handle, uint64(f.offset), chunk); err != nil {
		return 0, err
	}
	f.offset += int64(len(chunk))
	if f.offset > int64(f.attrs.Size) {
		f.attrs.Size = uint64(f.offset)
	}
	return len(chunk), nil
}

// Stat refreshes and returns the cached attributes, via FSTAT if open,
// STAT otherwise.
func (f *File) Stat() (*FileStat, error) {
	var attrs *FileStat
	var err error
	if f.handle == "" {
		attrs, err = f.c.Stat(f.pathN)
	} else {
		attrs, err = f.c.Fstat(f.handle)
	}
	if err != nil {
		return nil, err
	}
	f.attrs = *attrs
	return attrs, nil
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.handle == "" {
		return 0, os.ErrClosed
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.offset
	case io.SeekEnd:
		if _, err := f.Stat(); err != nil {
			return f.offset, err
		}
		offset += int64(f.attrs.Size)
	default:
		return f.offset, os.ErrInvalid
	}
	if offset < 0 {
		return f.offset, os.ErrInvalid
	}
	f.offset = offset
	return f.offset, nil
}

// Chown changes the owning uid/gid.
func (f *File) Chown(uid, gid int) error {
	if f.handle == "" {
		return f.c.Chown(f.pathN, uid, gid)
	}
	return f.c.FSetStat(f.handle, attrUIDGID, &FileStat{UID: uint32(uid), GID: uint32(gid)})
}

// Chmod changes permissions.
func (f *File) Chmod(mode os.FileMode) error {
	if f.handle == "" {
		return f.c.Chmod(f.pathN, mode)
	}
	return f.c.FSetStat(f.handle, attrPermissions, &FileStat{Mode: fromFileMode(mode)})
}

// Truncate sets the file's size.
func (f *File) Truncate(size int64) error {
	if f.handle == "" {
		return f.c.Truncate(f.pathN, size)
	}
	return f.c.FSetStat(f.handle, attrSize, &FileStat{Size: uint64(size)})
}
