package sftp

// SSH_FXP_ATTRS support; see draft-ietf-secsh-filexfer-02 §5.

import (
	"os"
	"syscall"
	"time"
)

// fileInfo is an artificial type designed to satisfy os.FileInfo.
type fileInfo struct {
	name string
	stat *FileStat
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(fi.stat.Size) }
func (fi *fileInfo) Mode() os.FileMode  { return fi.stat.OsFileMode() }
func (fi *fileInfo) ModTime() time.Time { return fi.stat.ModTime() }
func (fi *fileInfo) IsDir() bool        { return fi.Mode().IsDir() }
func (fi *fileInfo) Sys() interface{}   { return fi.stat }

// FileStat holds the unmarshalled values of an SSH_FXP_ATTRS block, as
// returned by READDIR, *STAT, and accepted by SETSTAT/FSETSTAT/OPEN.
// Exported for access to raw values via os.FileInfo.Sys().
type FileStat struct {
	Size     uint64
	Mode     uint32
	Mtime    uint32
	Atime    uint32
	UID      uint32
	GID      uint32
	Extended []StatExtended
}

// FileMode returns the type and permission bits.
func (fs *FileStat) FileMode() FileMode { return FileMode(fs.Mode) }

// FileType returns the type bits of the mode.
func (fs *FileStat) FileType() FileMode { return FileMode(fs.Mode) & ModeType }

// IsRegular reports whether the mode describes a regular file.
func (fs *FileStat) IsRegular() bool { return FileMode(fs.Mode)&ModeType == ModeRegular }

// IsDir reports whether the mode describes a directory, using the
// hard-coded DirBit rather than the portable ModeType test; see DirBit.
func (fs *FileStat) IsDir() bool { return fs.Mode&DirBit != 0 }

// ModTime returns the Mtime attribute converted to a time.Time.
func (fs *FileStat) ModTime() time.Time { return time.Unix(int64(fs.Mtime), 0) }

// AccessTime returns the Atime attribute converted to a time.Time.
func (fs *FileStat) AccessTime() time.Time { return time.Unix(int64(fs.Atime), 0) }

// OsFileMode returns the Mode attribute converted to an os.FileMode.
func (fs *FileStat) OsFileMode() os.FileMode { return toFileMode(fs.Mode) }

// StatExtended contains additional, extended information for a FileStat.
type StatExtended struct {
	ExtType string
	ExtData string
}

// FileInfoFromStat converts a FileStat and filename to a go os.FileInfo.
func FileInfoFromStat(stat *FileStat, name string) os.FileInfo {
	return &fileInfo{name: name, stat: stat}
}

// FileInfoUidGid extends os.FileInfo with Uid/Gid retrieval, as an
// alternative to *syscall.Stat_t on unix systems.
type FileInfoUidGid interface {
	os.FileInfo
	Uid() uint32
	Gid() uint32
}

// FileInfoExtendedData extends os.FileInfo with extended-attribute
// retrieval.
type FileInfoExtendedData interface {
	os.FileInfo
	Extended() []StatExtended
}

// fileStatFromInfo builds the ATTR flags/FileStat pair the wire protocol
// needs from a local os.FileInfo, for OPEN/SETSTAT/FSETSTAT requests
// that carry a desired attribute set.
func fileStatFromInfo(fi os.FileInfo) (uint32, *FileStat) {
	mtime := fi.ModTime().Unix()
	var flags uint32 = attrSize | attrPermissions | attrACmodTime

	fileStat := &FileStat{
		Size:  uint64(fi.Size()),
		Mode:  fromFileMode(fi.Mode()),
		Mtime: uint32(mtime),
		Atime: uint32(mtime),
	}

	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		flags |= attrUIDGID
		fileStat.UID = st.Uid
		fileStat.GID = st.Gid
	}

	if fiExt, ok := fi.(FileInfoUidGid); ok {
		flags |= attrUIDGID
		fileStat.UID = fiExt.Uid()
		fileStat.GID = fiExt.Gid()
	}

	if fiExt, ok := fi.(FileInfoExtendedData); ok {
		fileStat.Extended = fiExt.Extended()
		if len(fileStat.Extended) > 0 {
			flags |= attrExtended
		}
	}

	return flags, fileStat
}

// FileMode represents a file's mode and permission bits, defined
// according to POSIX, independent of the build OS.
type FileMode uint32

const (
	ModePerm       FileMode = 0o0777
	ModeUserRead   FileMode = 0o0400
	ModeUserWrite  FileMode = 0o0200
	ModeUserExec   FileMode = 0o0100
	ModeGroupRead  FileMode = 0o0040
	ModeGroupWrite FileMode = 0o0020
	ModeGroupExec  FileMode = 0o0010
	ModeOtherRead  FileMode = 0o0004
	ModeOtherWrite FileMode = 0o0002
	ModeOtherExec  FileMode = 0o0001

	ModeSetUID FileMode = 0o4000
	ModeSetGID FileMode = 0o2000
	ModeSticky FileMode = 0o1000

	ModeType       FileMode = 0xF000
	ModeNamedPipe  FileMode = 0x1000
	ModeCharDevice FileMode = 0x2000
	ModeDir        FileMode = 0x4000
	ModeDevice     FileMode = 0x6000
	ModeRegular    FileMode = 0x8000
	ModeSymlink    FileMode = 0xA000
	ModeSocket     FileMode = 0xC000
)

// IsDir reports whether m describes a directory.
func (m FileMode) IsDir() bool { return (m & ModeType) == ModeDir }

// IsRegular reports whether m describes a regular file.
func (m FileMode) IsRegular() bool { return (m & ModeType) == ModeRegular }

// Perm returns the POSIX permission bits in m.
func (m FileMode) Perm() FileMode { return m & ModePerm }

// Type returns the type bits in m.
func (m FileMode) Type() FileMode { return m & ModeType }

// toFileMode converts sftp filemode bits to the os.FileMode encoding.
func toFileMode(mode uint32) os.FileMode {
	fm := os.FileMode(mode & 0777)

	switch FileMode(mode) & ModeType {
	case ModeDevice:
		fm |= os.ModeDevice
	case ModeCharDevice:
		fm |= os.ModeDevice | os.ModeCharDevice
	case ModeDir:
		fm |= os.ModeDir
	case ModeNamedPipe:
		fm |= os.ModeNamedPipe
	case ModeSymlink:
		fm |= os.ModeSymlink
	case ModeRegular:
	case ModeSocket:
		fm |= os.ModeSocket
	}

	if FileMode(mode)&ModeSetUID != 0 {
		fm |= os.ModeSetuid
	}
	if FileMode(mode)&ModeSetGID != 0 {
		fm |= os.ModeSetgid
	}
	if FileMode(mode)&ModeSticky != 0 {
		fm |= os.ModeSticky
	}

	return fm
}

// fromFileMode converts from the os.FileMode encoding to sftp filemode
// bits; a directory gets ModeDir, which is the same bit as DirBit.
func fromFileMode(mode os.FileMode) uint32 {
	ret := FileMode(mode & os.ModePerm)

	switch mode & os.ModeType {
	case os.ModeDevice | os.ModeCharDevice:
		ret |= ModeCharDevice
	case os.ModeDevice:
		ret |= ModeDevice
	case os.ModeDir:
		ret |= ModeDir
	case os.ModeNamedPipe:
		ret |= ModeNamedPipe
	case os.ModeSymlink:
		ret |= ModeSymlink
	case 0:
		ret |= ModeRegular
	case os.ModeSocket:
		ret |= ModeSocket
	}

	if mode&os.ModeSetuid != 0 {
		ret |= ModeSetUID
	}
	if mode&os.ModeSetgid != 0 {
		ret |= ModeSetGID
	}
	if mode&os.ModeSticky != 0 {
		ret |= ModeSticky
	}

	return uint32(ret)
}
