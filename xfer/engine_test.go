package xfer

import (
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wscp/sftpcore/internal/ulog"
	"github.com/wscp/sftpcore/sftp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wire opcodes, mirrored here because sftp keeps them unexported: a
// scripted fake server needs to read/write the same bytes a real SFTP
// server would, per draft-ietf-secsh-filexfer-02, the same numbering
// sftp/const.go uses.
const (
	wireInit     = 1
	wireVersion  = 2
	wireOpen     = 3
	wireClose    = 4
	wireRead     = 5
	wireWrite    = 6
	wireRealpath = 16
	wireStat     = 17
	wireReadlink = 19
	wireStatus   = 101
	wireHandle   = 102
	wireData     = 103
	wireName     = 104
	wireAttrs    = 105
)

const (
	wireFxOk         = 0
	wireFxEOF        = 1
	wireFxNoSuchFile = 2
)

// fakeSession drives the server side of a handshake and a scripted
// sequence of request/reply steps over an in-memory pipe.
type fakeSession struct {
	ch *sftp.SessionChannel
}

func (s *fakeSession) handshake() error {
	req, err := s.ch.Receive()
	if err != nil {
		return err
	}
	if req.Type() != wireInit {
		return assertFail("expected INIT")
	}
	resp := sftp.NewPacket()
	resp.AppendByte(wireVersion)
	resp.AppendUint32(3)
	return s.ch.Send(resp)
}

func assertFail(msg string) error { return &testFailure{msg} }

type testFailure struct{ msg string }

func (e *testFailure) Error() string { return e.msg }

// step describes one expected request and the reply to send back.
// wantType, if nonzero, is asserted against the incoming request's
// opcode.
type step struct {
	wantType byte
	reply    func(req *sftp.Packet) *sftp.Packet
}

func statusPacket(msgNum int64, code uint32) *sftp.Packet {
	p := sftp.NewPacket()
	p.AppendByte(wireStatus)
	p.AppendUint32(uint32(msgNum))
	p.AppendUint32(code)
	p.AppendString("")
	p.AppendString("")
	return p
}

func handlePacket(msgNum int64, handle string) *sftp.Packet {
	p := sftp.NewPacket()
	p.AppendByte(wireHandle)
	p.AppendUint32(uint32(msgNum))
	p.AppendString(handle)
	return p
}

// newFakeEngine builds an Engine whose Client is connected to a fake
// server that will run steps, in order, once runSteps is called. The
// handshake happens synchronously before this function returns.
func newFakeEngine(t *testing.T, local LocalFS, params CopyParameters) (*Engine, *fakeSession) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	session := &fakeSession{ch: sftp.NewSessionChannel(serverConn, serverConn, ulog.NewLog("fake-server"))}

	clientErrC := make(chan error, 1)
	serverErrC := make(chan error, 1)
	var client *sftp.Client
	go func() {
		c, err := sftp.NewClient(clientConn, clientConn)
		client = c
		clientErrC <- err
	}()
	go func() { serverErrC <- session.handshake() }()
	require.NoError(t, <-serverErrC)
	require.NoError(t, <-clientErrC)

	engine := NewEngine(client, local, NewBatchPrompter(), params)
	return engine, session
}

// runSteps executes steps in order against the session and reports any
// mismatch or transport error on t via a background goroutine; the
// returned channel closes once every step has run.
func (s *fakeSession) runSteps(t *testing.T, steps []step) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, st := range steps {
			req, err := s.ch.Receive()
			if err != nil {
				t.Errorf("step %d: receive: %v", i, err)
				return
			}
			if st.wantType != 0 && req.Type() != st.wantType {
				t.Errorf("step %d: got opcode %d, want %d", i, req.Type(), st.wantType)
				return
			}
			if err := s.ch.Send(st.reply(req)); err != nil {
				t.Errorf("step %d: send: %v", i, err)
				return
			}
		}
	}()
	return done
}

// --- in-memory LocalFS, just enough to drive the engine scenarios ---

type memEntry struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

type memFS struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

func newMemFS() *memFS { return &memFS{entries: make(map[string]*memEntry)} }

func (m *memFS) put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = &memEntry{data: append([]byte(nil), data...), mode: 0644, modTime: time.Unix(1700000000, 0)}
}

func (m *memFS) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return nil
	}
	return append([]byte(nil), e.data...)
}

type memFileInfo struct {
	name string
	e    *memEntry
}

func (fi *memFileInfo) Name() string       { return fi.name }
func (fi *memFileInfo) Size() int64        { return int64(len(fi.e.data)) }
func (fi *memFileInfo) Mode() os.FileMode  { return fi.e.mode }
func (fi *memFileInfo) ModTime() time.Time { return fi.e.modTime }
func (fi *memFileInfo) IsDir() bool        { return fi.e.mode.IsDir() }
func (fi *memFileInfo) Sys() any           { return nil }

type memFile struct {
	fs     *memFS
	name   string
	e      *memEntry
	offset int64
}

func (f *memFile) Read(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.offset >= int64(len(f.e.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.e.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	need := int(f.offset) + len(p)
	if need > len(f.e.data) {
		grown := make([]byte, need)
		copy(grown, f.e.data)
		f.e.data = grown
	}
	copy(f.e.data[f.offset:], p)
	f.offset += int64(len(p))
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		f.offset = int64(len(f.e.data)) + offset
	}
	return f.offset, nil
}

func (f *memFile) Close() error { return nil }

func (f *memFile) Stat() (os.FileInfo, error) { return &memFileInfo{name: f.name, e: f.e}, nil }

func (m *memFS) Open(name string) (LocalFile, error) {
	m.mu.Lock()
	e, ok := m.entries[name]
	m.mu.Unlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memFile{fs: m, name: name, e: e}, nil
}

func (m *memFS) OpenFile(name string, flag int, perm os.FileMode) (LocalFile, error) {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		if flag&os.O_CREATE == 0 {
			m.mu.Unlock()
			return nil, os.ErrNotExist
		}
		e = &memEntry{mode: perm, modTime: time.Unix(1700000000, 0)}
		m.entries[name] = e
	}
	if flag&os.O_TRUNC != 0 {
		e.data = nil
	}
	m.mu.Unlock()
	return &memFile{fs: m, name: name, e: e}, nil
}

func (m *memFS) Stat(name string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memFileInfo{name: name, e: e}, nil
}

func (m *memFS) ReadDir(dirname string) ([]os.FileInfo, error) { return nil, nil }

func (m *memFS) Mkdir(name string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = &memEntry{mode: perm | os.ModeDir, modTime: time.Unix(1700000000, 0)}
	return nil
}

func (m *memFS) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[oldname]
	if !ok {
		return os.ErrNotExist
	}
	delete(m.entries, oldname)
	m.entries[newname] = e
	return nil
}

func (m *memFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

func (m *memFS) Chtimes(name string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.modTime = mtime
	}
	return nil
}

func (m *memFS) Chmod(name string, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.mode = mode
	}
	return nil
}

// --- scenario tests, named after §8's "Engine scenarios" list ---

func noResumeParams() CopyParameters {
	return CopyParameters{
		AllowResume:        func(int64) bool { return false },
		UseAsciiTransfer:   func(string) bool { return false },
		ChangeFileNameCase: func(name string) string { return name },
		RemoteFileRights:   func(m os.FileMode) os.FileMode { return m },
		PartialExt:         ".filepart",
		ConfirmOverwriting: false,
	}
}

func TestEngineUploadNewFile(t *testing.T) {
	local := newMemFS()
	content := make([]byte, 1024)
	for i := range content {
		content[i] = byte(i)
	}
	local.put("/tmp/a.bin", content)

	engine, server := newFakeEngine(t, local, noResumeParams())

	var handle = "H1"
	var uploaded []byte
	steps := []step{
		{wantType: wireRealpath, reply: func(req *sftp.Packet) *sftp.Packet {
			p := sftp.NewPacket()
			p.AppendByte(wireName)
			p.AppendUint32(uint32(req.MessageNumber()))
			p.AppendUint32(1)
			p.AppendString("/home/u/a.bin")
			p.AppendString("a.bin")
			return p
		}},
		{wantType: wireStat, reply: func(req *sftp.Packet) *sftp.Packet {
			return statusPacket(req.MessageNumber(), wireFxNoSuchFile)
		}},
		{wantType: wireOpen, reply: func(req *sftp.Packet) *sftp.Packet {
			return handlePacket(req.MessageNumber(), handle)
		}},
		{wantType: wireWrite, reply: func(req *sftp.Packet) *sftp.Packet {
			_, err := req.ReadString() // handle
			require.NoError(t, err)
			offset, err := req.ReadUint64()
			require.NoError(t, err)
			assert.Equal(t, uint64(0), offset)
			n, err := req.ReadUint32()
			require.NoError(t, err)
			data, err := req.ReadBytes(int(n))
			require.NoError(t, err)
			uploaded = append([]byte(nil), data...)
			return statusPacket(req.MessageNumber(), wireFxOk)
		}},
		{wantType: wireClose, reply: func(req *sftp.Packet) *sftp.Packet {
			return statusPacket(req.MessageNumber(), wireFxOk)
		}},
	}
	done := server.runSteps(t, steps)

	progress := NewOperationProgress("a.bin", 1024)
	err := engine.Source("/tmp/a.bin", "/home/u", progress)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server script did not complete")
	}
	assert.Equal(t, content, uploaded)
	assert.Equal(t, int64(1024), progress.Transferred())
}

func TestEngineUploadOverwritePromptNoSkips(t *testing.T) {
	local := newMemFS()
	local.put("/tmp/a.bin", []byte("hello world"))

	params := noResumeParams()
	params.ConfirmOverwriting = true

	engine, server := newFakeEngine(t, local, params)
	engine.Prompter = &fixedPrompter{overwrite: OverwriteNo}

	steps := []step{
		{wantType: wireRealpath, reply: func(req *sftp.Packet) *sftp.Packet {
			p := sftp.NewPacket()
			p.AppendByte(wireName)
			p.AppendUint32(uint32(req.MessageNumber()))
			p.AppendUint32(1)
			p.AppendString("/home/u/a.bin")
			p.AppendString("a.bin")
			return p
		}},
		{wantType: wireStat, reply: func(req *sftp.Packet) *sftp.Packet {
			// destination already exists
			p := sftp.NewPacket()
			p.AppendByte(wireAttrs)
			p.AppendUint32(uint32(req.MessageNumber()))
			p.AppendAttrs(0, nil)
			return p
		}},
	}
	done := server.runSteps(t, steps)

	progress := NewOperationProgress("a.bin", 11)
	err := engine.Source("/tmp/a.bin", "/home/u", progress)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server script did not complete")
	}
	assert.Equal(t, Skip, outcomeOf(err))
}

type fixedPrompter struct {
	overwrite OverwriteAnswer
	resume    ResumeAnswer
}

func (p *fixedPrompter) ConfirmOverwrite(name string) OverwriteAnswer { return p.overwrite }
func (p *fixedPrompter) ConfirmResume(name string, biggerThanSource bool) ResumeAnswer {
	return p.resume
}

func TestEngineDownloadEOF(t *testing.T) {
	local := newMemFS()
	remoteContent := []byte("abcdefghij0123456789")

	engine, server := newFakeEngine(t, local, noResumeParams())

	handle := "DH1"
	// destination-existence and resumable-partial checks both hit
	// LocalFS, not the wire, so the only round trips are the initial
	// STAT, OPEN, two READs, and CLOSE.
	realSteps := []step{
		{wantType: wireStat, reply: func(req *sftp.Packet) *sftp.Packet {
			p := sftp.NewPacket()
			p.AppendByte(wireAttrs)
			p.AppendUint32(uint32(req.MessageNumber()))
			p.AppendAttrs(0x00000001, &sftp.FileStat{Size: uint64(len(remoteContent))})
			return p
		}},
		{wantType: wireOpen, reply: func(req *sftp.Packet) *sftp.Packet {
			return handlePacket(req.MessageNumber(), handle)
		}},
		{wantType: wireRead, reply: func(req *sftp.Packet) *sftp.Packet {
			p := sftp.NewPacket()
			p.AppendByte(wireData)
			p.AppendUint32(uint32(req.MessageNumber()))
			p.AppendUint32(uint32(len(remoteContent)))
			p.AppendBytes(remoteContent)
			return p
		}},
		{wantType: wireRead, reply: func(req *sftp.Packet) *sftp.Packet {
			return statusPacket(req.MessageNumber(), wireFxEOF)
		}},
		{wantType: wireClose, reply: func(req *sftp.Packet) *sftp.Packet {
			return statusPacket(req.MessageNumber(), wireFxOk)
		}},
	}
	done := server.runSteps(t, realSteps)

	progress := NewOperationProgress("r.bin", 0)
	err := engine.Sink("/home/u/r.bin", "/tmp/dl", progress)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server script did not complete")
	}
	assert.Equal(t, remoteContent, local.get("/tmp/dl/r.bin"))
}

// TestEngineSymlinkReadback exercises the READLINK+STAT pipelining
// §4.5 calls for: both requests must be on the wire, received by the
// server, before either reply is sent back. A server script that
// naively replies to the first request before the second has even
// arrived would deadlock against a client that actually pipelines
// (the client wouldn't be listening for the reply yet — it would still
// be sending the second request), so this test's script receives both
// requests up front rather than interleaving receive/reply per step
// the way runSteps does.
func TestEngineSymlinkReadback(t *testing.T) {
	engine, server := newFakeEngine(t, newMemFS(), noResumeParams())

	done := make(chan struct{})
	go func() {
		defer close(done)

		first, err := server.ch.Receive()
		if err != nil {
			t.Errorf("receive first request: %v", err)
			return
		}
		second, err := server.ch.Receive()
		if err != nil {
			t.Errorf("receive second request: %v", err)
			return
		}
		if first.Type() != wireReadlink {
			t.Errorf("expected READLINK first, got opcode %d", first.Type())
			return
		}
		if second.Type() != wireStat {
			t.Errorf("expected STAT second, got opcode %d", second.Type())
			return
		}

		nameReply := sftp.NewPacket()
		nameReply.AppendByte(wireName)
		nameReply.AppendUint32(uint32(first.MessageNumber()))
		nameReply.AppendUint32(1)
		nameReply.AppendString("/a/target")
		nameReply.AppendString("target")
		if err := server.ch.Send(nameReply); err != nil {
			t.Errorf("send NAME reply: %v", err)
			return
		}

		attrsReply := sftp.NewPacket()
		attrsReply.AppendByte(wireAttrs)
		attrsReply.AppendUint32(uint32(second.MessageNumber()))
		attrsReply.AppendAttrs(0x00000001, &sftp.FileStat{Size: 512})
		if err := server.ch.Send(attrsReply); err != nil {
			t.Errorf("send ATTRS reply: %v", err)
			return
		}
	}()

	target, attrs, err := engine.Client.ReadLink("/a/link")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server script did not complete")
	}
	assert.Equal(t, "/a/target", target)
	assert.Equal(t, uint64(512), attrs.Size)
}
