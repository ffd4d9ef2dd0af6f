package sftp

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	krfs "github.com/kr/fs"

	"github.com/wscp/sftpcore/internal/uerr"
	"github.com/wscp/sftpcore/internal/ulog"
)

// Client represents a single-threaded SFTP session (§5): one call stack
// drives every request/response exchange, there is no background
// reader or writer goroutine. A Client is not safe for concurrent use
// by multiple goroutines; callers needing that should serialize their
// own access or run one Client per goroutine.
type Client struct {
	ch   *SessionChannel
	corr *Correlator
	ext  map[string]string

	paths *pathCache

	log *ulog.Log
}

// NewClient performs the SSH_FXP_INIT/VERSION handshake over rd/wr and
// returns a ready Client. The server's version must be exactly
// protocolVersion (3); anything else is a fatal ProtocolError, since
// this client speaks no other wire dialect.
func NewClient(rd io.Reader, wr io.WriteCloser) (*Client, error) {
	log := ulog.NewLog("sftp")
	ch := NewSessionChannel(rd, wr, log)
	c := &Client{
		ch:    ch,
		corr:  NewCorrelator(ch),
		paths: newPathCache(),
		log:   log,
	}

	init := NewPacket()
	init.ChangeType(sshFxpInit)
	init.AppendUint32(protocolVersion)
	if err := ch.Send(init); err != nil {
		wr.Close()
		return nil, err
	}

	resp, err := ch.Receive()
	if err != nil {
		wr.Close()
		return nil, err
	}
	if resp.Type() != sshFxpVersion {
		wr.Close()
		return nil, newProtocolError("expected VERSION, got %s", packetTypeName(resp.Type()))
	}
	version, err := resp.ReadUint32()
	if err != nil {
		wr.Close()
		return nil, err
	}
	if version != protocolVersion {
		wr.Close()
		return nil, newProtocolError("server speaks version %d, only %d is supported", version, protocolVersion)
	}
	c.ext = make(map[string]string)
	for resp.Remaining() > 0 {
		name, err := resp.ReadString()
		if err != nil {
			break
		}
		data, err := resp.ReadString()
		if err != nil {
			break
		}
		c.ext[name] = data
	}
	return c, nil
}

// HasExtension reports whether the server advertised a named extension
// at VERSION time, and if so, its associated data (usually a version
// string).
func (c *Client) HasExtension(name string) (string, bool) {
	data, ok := c.ext[name]
	return data, ok
}

// Close shuts down the Session Channel. Any reservation still pending
// is simply abandoned; there is no background goroutine to notify.
func (c *Client) Close() error {
	return c.ch.Close()
}

// SetPathCaching toggles memoization of RealPath/Canonify resolutions.
// Leave enabled (the default) unless the server can rename or remount
// paths out from under a cached resolution mid-session.
func (c *Client) SetPathCaching(enabled bool) {
	c.paths.enabled = enabled
}

// roundTrip sends req and blocks for its matching response, per §5's
// single-threaded model: it has only this one request in flight.
// ReadLink and ReadDirectory pipeline a second request themselves.
func (c *Client) roundTrip(req *Packet) (*Packet, error) {
	r, err := c.corr.SendPacket(req)
	if err != nil {
		return nil, err
	}
	return c.corr.ReceiveResponse(r)
}

func (c *Client) expectStatus(req *Packet) error {
	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	return c.decodeStatus(resp)
}

func (c *Client) decodeStatus(resp *Packet) error {
	if resp.Type() != sshFxpStatus {
		return newProtocolError("expected STATUS, got %s", packetTypeName(resp.Type()))
	}
	code, err := resp.ReadUint32()
	if err != nil {
		return err
	}
	msg, _ := resp.ReadString()
	lang, _ := resp.ReadString()
	return statusToError(code, msg, lang)
}

func (c *Client) newRequest(t byte) *Packet {
	p := NewPacket()
	p.ChangeType(t)
	return p
}

// Stat returns attributes for pathN, following symbolic links.
func (c *Client) Stat(pathN string) (*FileStat, error) {
	req := c.newRequest(sshFxpStat)
	req.AppendString(pathN)
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return c.decodeAttrsReply(resp)
}

// Lstat returns attributes for pathN, describing a symlink itself
// rather than its target.
func (c *Client) Lstat(pathN string) (*FileStat, error) {
	req := c.newRequest(sshFxpLstat)
	req.AppendString(pathN)
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return c.decodeAttrsReply(resp)
}

// Fstat returns attributes for an already-open handle.
func (c *Client) Fstat(handle string) (*FileStat, error) {
	req := c.newRequest(sshFxpFstat)
	req.AppendString(handle)
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return c.decodeAttrsReply(resp)
}

func (c *Client) decodeAttrsReply(resp *Packet) (*FileStat, error) {
	switch resp.Type() {
	case sshFxpAttrs:
		return resp.ReadAttrs()
	case sshFxpStatus:
		return nil, c.decodeStatus(resp)
	default:
		return nil, newProtocolError("expected ATTRS, got %s", packetTypeName(resp.Type()))
	}
}

// ReadLink reads the target of a symbolic link at pathN, paired with a
// STAT of pathN itself, so the caller gets both the link target and
// the (possibly-following-the-link) attributes in one round trip
// instead of two: §4.5's "pipelines READLINK and STAT on the same
// name" — both requests go out before either reply is consumed.
func (c *Client) ReadLink(pathN string) (target string, attrs *FileStat, err error) {
	linkReq := c.newRequest(sshFxpReadlink)
	linkReq.AppendString(pathN)
	linkRes, err := c.corr.SendPacket(linkReq)
	if err != nil {
		return "", nil, err
	}

	statReq := c.newRequest(sshFxpStat)
	statReq.AppendString(pathN)
	statRes, err := c.corr.SendPacket(statReq)
	if err != nil {
		return "", nil, err
	}

	linkResp, err := c.corr.ReceiveResponse(linkRes)
	if err != nil {
		return "", nil, err
	}
	switch linkResp.Type() {
	case sshFxpName:
		count, err := linkResp.ReadUint32()
		if err != nil {
			return "", nil, err
		}
		if count != 1 {
			return "", nil, newProtocolError("READLINK returned %d names, expected 1", count)
		}
		target, err = linkResp.ReadString()
		if err != nil {
			return "", nil, err
		}
		linkResp.ReadString() // discard longname
	case sshFxpStatus:
		return "", nil, c.decodeStatus(linkResp)
	default:
		return "", nil, newProtocolError("expected NAME, got %s", packetTypeName(linkResp.Type()))
	}

	statResp, err := c.corr.ReceiveResponse(statRes)
	if err != nil {
		return "", nil, err
	}
	attrs, err = c.decodeAttrsReply(statResp)
	if err != nil {
		return "", nil, err
	}
	return target, attrs, nil
}

// RealPath resolves pathN server-side to a canonical absolute path.
func (c *Client) RealPath(pathN string) (string, error) {
	req := c.newRequest(sshFxpRealpath)
	req.AppendString(pathN)
	resp, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}
	switch resp.Type() {
	case sshFxpName:
		count, err := resp.ReadUint32()
		if err != nil {
			return "", err
		}
		if count != 1 {
			return "", newProtocolError("REALPATH returned %d names, expected 1", count)
		}
		return resp.ReadString()
	case sshFxpStatus:
		return "", c.decodeStatus(resp)
	default:
		return "", newProtocolError("expected NAME, got %s", packetTypeName(resp.Type()))
	}
}

// HomeDirectory resolves the home directory by REALPATH-ing ".", the
// conventional SFTP trick, memoized since it cannot change within a
// session.
func (c *Client) HomeDirectory() (string, error) {
	if dir, ok := c.paths.home(); ok {
		return dir, nil
	}
	dir, err := c.RealPath(".")
	if err != nil {
		return "", err
	}
	c.paths.setHome(dir)
	return dir, nil
}

// Canonify resolves pathN to an absolute path without collapsing ".."
// segments locally against the home directory the way a local
// path.Clean would (§9 quirk: REALPATH already collapses server-side;
// doing it again locally is deliberately avoided).
func (c *Client) Canonify(pathN string) (string, error) {
	if !path.IsAbs(pathN) {
		home, err := c.HomeDirectory()
		if err != nil {
			return "", err
		}
		pathN = strings.TrimSuffix(home, "/") + "/" + pathN
	}
	if cached, ok := c.paths.get(pathN); ok {
		return cached, nil
	}
	resolved, err := c.RealPath(pathN)
	if err != nil {
		return "", err
	}
	c.paths.set(pathN, resolved)
	return resolved, nil
}

// Mkdir creates a directory at pathN.
func (c *Client) Mkdir(pathN string) error {
	req := c.newRequest(sshFxpMkdir)
	req.AppendString(pathN)
	req.AppendAttrs(0, nil)
	return c.expectStatus(req)
}

// Rmdir removes the (assumed empty) directory at pathN.
func (c *Client) Rmdir(pathN string) error {
	req := c.newRequest(sshFxpRmdir)
	req.AppendString(pathN)
	return c.expectStatus(req)
}

// Remove deletes the file at pathN.
func (c *Client) Remove(pathN string) error {
	req := c.newRequest(sshFxpRemove)
	req.AppendString(pathN)
	return c.expectStatus(req)
}

// Rename renames oldPath to newPath.
func (c *Client) Rename(oldPath, newPath string) error {
	req := c.newRequest(sshFxpRename)
	req.AppendString(oldPath)
	req.AppendString(newPath)
	return c.expectStatus(req)
}

// Symlink creates a symbolic link at newname pointing at target.
func (c *Client) Symlink(target, newname string) error {
	req := c.newRequest(sshFxpSymlink)
	// SSH_FXP_SYMLINK's argument order was accidentally reversed in the
	// original draft and OpenSSH deployed it that way; preserved here
	// for wire compatibility.
	req.AppendString(target)
	req.AppendString(newname)
	return c.expectStatus(req)
}

// Link would create a hard link, but this client rejects it outright:
// §4.5 treats hardlinks as unsupported rather than attempting the
// hardlink@openssh.com extension, whose availability cannot be assumed.
func (c *Client) Link(oldname, newname string) error {
	return &StatusError{Code: sshFxOPUnsupported, msg: errHardlinkUnsupported.Error()}
}

// SetStat applies flags/attrs to pathN.
func (c *Client) SetStat(pathN string, flags uint32, attrs *FileStat) error {
	req := c.newRequest(sshFxpSetstat)
	req.AppendString(pathN)
	req.AppendAttrs(flags, attrs)
	return c.expectStatus(req)
}

// FSetStat applies flags/attrs to an already-open handle.
func (c *Client) FSetStat(handle string, flags uint32, attrs *FileStat) error {
	req := c.newRequest(sshFxpFsetstat)
	req.AppendString(handle)
	req.AppendAttrs(flags, attrs)
	return c.expectStatus(req)
}

// Chtimes sets access and modification times on pathN.
func (c *Client) Chtimes(pathN string, atime, mtime time.Time) error {
	return c.SetStat(pathN, attrACmodTime, &FileStat{
		Atime: uint32(atime.Unix()),
		Mtime: uint32(mtime.Unix()),
	})
}

// Chmod sets permissions on pathN.
func (c *Client) Chmod(pathN string, mode os.FileMode) error {
	return c.SetStat(pathN, attrPermissions, &FileStat{Mode: fromFileMode(mode)})
}

// Chown sets owning uid/gid on pathN.
func (c *Client) Chown(pathN string, uid, gid int) error {
	return c.SetStat(pathN, attrUIDGID, &FileStat{UID: uint32(uid), GID: uint32(gid)})
}

// Truncate sets the size of pathN.
func (c *Client) Truncate(pathN string, size int64) error {
	return c.SetStat(pathN, attrSize, &FileStat{Size: uint64(size)})
}

// Open opens pathN with the given SFTP pflags (FxfRead, FxfWrite, ...).
func (c *Client) Open(pathN string, pflags uint32) (*File, error) {
	req := c.newRequest(sshFxpOpen)
	req.AppendString(pathN)
	req.AppendUint32(pflags)
	req.AppendAttrs(0, nil)
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	switch resp.Type() {
	case sshFxpHandle:
		handle, err := resp.ReadString()
		if err != nil {
			return nil, err
		}
		return &File{c: c, pathN: pathN, handle: handle}, nil
	case sshFxpStatus:
		return nil, uerr.Chainf(c.decodeStatus(resp), "open %s", pathN)
	default:
		return nil, newProtocolError("expected HANDLE, got %s", packetTypeName(resp.Type()))
	}
}

// Create opens pathN for read/write, creating and truncating it.
func (c *Client) Create(pathN string) (*File, error) {
	return c.Open(pathN, FxfRead|FxfWrite|FxfCreat|FxfTrunc)
}

func (c *Client) closeHandle(handle string) error {
	req := c.newRequest(sshFxpClose)
	req.AppendString(handle)
	return c.expectStatus(req)
}

func (c *Client) read(handle string, offset uint64, length uint32) ([]byte, error) {
	req := c.newRequest(sshFxpRead)
	req.AppendString(handle)
	req.AppendUint64(offset)
	req.AppendUint32(length)
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	switch resp.Type() {
	case sshFxpData:
		n, err := resp.ReadUint32()
		if err != nil {
			return nil, err
		}
		return resp.ReadBytes(int(n))
	case sshFxpStatus:
		return nil, c.decodeStatus(resp)
	default:
		return nil, newProtocolError("expected DATA, got %s", packetTypeName(resp.Type()))
	}
}

func (c *Client) write(handle string, offset uint64, data []byte) error {
	req := c.newRequest(sshFxpWrite)
	req.AppendString(handle)
	req.AppendUint64(offset)
	req.AppendUint32(uint32(len(data)))
	req.AppendBytes(data)
	return c.expectStatus(req)
}

// ChangeDirectory probes dirN by opening it as a directory, per §4.5:
// there is no dedicated SFTP "is this a directory" operation, so the
// probe is an OPENDIR that is immediately closed again.
func (c *Client) ChangeDirectory(dirN string) (string, error) {
	resolved, err := c.Canonify(dirN)
	if err != nil {
		return "", err
	}
	handle, err := c.opendir(resolved)
	if err != nil {
		return "", err
	}
	c.closeHandle(handle)
	return resolved, nil
}

func (c *Client) opendir(pathN string) (string, error) {
	req := c.newRequest(sshFxpOpendir)
	req.AppendString(pathN)
	resp, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}
	switch resp.Type() {
	case sshFxpHandle:
		return resp.ReadString()
	case sshFxpStatus:
		return "", c.decodeStatus(resp)
	default:
		return "", newProtocolError("expected HANDLE, got %s", packetTypeName(resp.Type()))
	}
}

// ReadDirectory lists dirN's contents. Per §4.5, it pipelines one
// READDIR ahead: a new request is sent before the prior reply has been
// fully consumed, so the round-trip latency of one request overlaps the
// local processing of the previous batch.
func (c *Client) ReadDirectory(dirN string) ([]*File, error) {
	handle, err := c.opendir(dirN)
	if err != nil {
		return nil, err
	}
	defer c.closeHandle(handle)

	var entries []*File

	sendReaddir := func() (*Reservation, error) {
		req := c.newRequest(sshFxpReaddir)
		req.AppendString(handle)
		return c.corr.SendPacket(req)
	}

	pending, err := sendReaddir()
	if err != nil {
		return nil, err
	}

	for pending != nil {
		resp, err := c.corr.ReceiveResponse(pending)
		if err != nil {
			return nil, err
		}

		var next *Reservation
		switch resp.Type() {
		case sshFxpName:
			// pipeline the next request before decoding this reply's
			// entries, so the server works on it while we parse.
			next, err = sendReaddir()
			if err != nil {
				return nil, err
			}
			count, err := resp.ReadUint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < count; i++ {
				name, err := resp.ReadString()
				if err != nil {
					return nil, err
				}
				resp.ReadString() // discard longname
				attrs, err := resp.ReadAttrs()
				if err != nil {
					return nil, err
				}
				if name == "." || name == ".." {
					continue
				}
				entries = append(entries, &File{
					c:     c,
					pathN: path.Join(dirN, name),
					attrs: *attrs,
				})
			}
		case sshFxpStatus:
			// EOF (or any other status) terminates the listing; an
			// error only matters if we got no entries at all.
			statusErr := c.decodeStatus(resp)
			if se, ok := statusErr.(*StatusError); ok && se.Code == sshFxEOF {
				statusErr = nil
			}
			if statusErr != nil && len(entries) == 0 {
				return nil, statusErr
			}
			next = nil
		default:
			return nil, newProtocolError("expected NAME, got %s", packetTypeName(resp.Type()))
		}
		pending = next
	}
	return entries, nil
}

// DeleteFile removes pathN. If it is a directory, its contents are
// recursively removed first via a walk, with the directory RMDIRs
// deferred until the walk completes (deepest-first), per §4.5.
func (c *Client) DeleteFile(pathN string) error {
	st, err := c.Lstat(pathN)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return c.Remove(pathN)
	}

	var toRemoveDirs []string
	walker := krfs.WalkFS(pathN, c.walker())
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}
		p := walker.Path()
		info := walker.Stat()
		if p == pathN {
			continue
		}
		if info.IsDir() {
			toRemoveDirs = append(toRemoveDirs, p)
			continue
		}
		if err := c.Remove(p); err != nil {
			return err
		}
	}
	for i := len(toRemoveDirs) - 1; i >= 0; i-- {
		if err := c.Rmdir(toRemoveDirs[i]); err != nil {
			return err
		}
	}
	return c.Rmdir(pathN)
}

func (c *Client) walker() *walkerFS { return &walkerFS{c: c} }
