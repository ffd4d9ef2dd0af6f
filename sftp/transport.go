package sftp

import (
	"encoding/binary"
	"io"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/net/proxy"

	"github.com/wscp/sftpcore/internal/uerr"
	"github.com/wscp/sftpcore/internal/ulog"
)

// maxPacketSize caps the data carried by one File.Read or File.Write
// round trip (32768, the minimum any compliant server must support,
// see RFC). The receive buffer holds frames of up to maxPacketSize+12
// bytes, so a full DATA reply fits together with its header.
const maxPacketSize = 1 << 15

// SessionChannel owns the wire-level framing of the Session Channel
// (§4.2): 4-byte big-endian length prefix followed by the packet body.
// All use is single-threaded (§5) — one call stack drives Send/Receive,
// there is no background reader or writer goroutine.
//
// Grounded on the teacher's clientConn_ (conn.go) for the
// ensure/ensureRead buffering technique, adapted from a channel-fed
// concurrent reader to direct blocking reads since this client has no
// internal parallelism.
type SessionChannel struct {
	r io.Reader
	w io.WriteCloser

	backing []byte
	buff    []byte

	log *ulog.Log

	// run-coalescing state for the logging contract: consecutive
	// READ/WRITE/STATUS packets are summarized rather than logged one
	// by one.
	runType  byte
	runCount int
}

// NewSessionChannel wraps a raw byte-stream connection to an SFTP
// server (e.g. the stdin/stdout pipes of an "sftp" SSH subsystem).
func NewSessionChannel(r io.Reader, w io.WriteCloser, log *ulog.Log) *SessionChannel {
	if log == nil {
		log = ulog.NewLog("sftp")
	}
	return &SessionChannel{
		r:       r,
		w:       w,
		backing: make([]byte, maxPacketSize+16),
		log:     log,
	}
}

// Send writes p's full wire representation, length-prefixed.
func (ch *SessionChannel) Send(p *Packet) error {
	ch.logSend(p)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(p.Len()))
	if _, err := ch.w.Write(lenBuf[:]); err != nil {
		return uerr.Chainf(err, "sending sftp packet header")
	}
	if _, err := ch.w.Write(p.Bytes()); err != nil {
		return uerr.Chainf(err, "sending sftp packet body")
	}
	return nil
}

// Receive blocks for the next full frame and returns it as a Packet
// primed via DataUpdated, or ErrConnectionLost on a clean EOF before
// any header bytes arrive.
func (ch *SessionChannel) Receive() (*Packet, error) {
	if err := ch.ensure(4); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(ch.buff)
	if length == 0 {
		return nil, newProtocolError("zero length frame")
	}
	if int(length) > len(ch.backing)-4 {
		return nil, newProtocolError("frame of %d bytes exceeds max %d", length, len(ch.backing)-4)
	}
	ch.bump(4)
	if err := ch.ensure(int(length)); err != nil {
		return nil, err
	}
	body := make([]byte, length)
	copy(body, ch.buff[:length])
	ch.bump(int(length))

	p := NewPacket()
	p.data = body
	if err := p.DataUpdated(len(body)); err != nil {
		return nil, err
	}
	ch.logReceive(p)
	return p, nil
}

func (ch *SessionChannel) ensure(amount int) error {
	if amount <= len(ch.buff) {
		return nil
	}
	if len(ch.buff) != 0 {
		copy(ch.backing, ch.buff)
		ch.buff = ch.backing[:len(ch.buff)]
	} else {
		ch.buff = ch.backing[:0]
	}
	need := amount - len(ch.buff)
	if need > len(ch.backing)-len(ch.buff) {
		return newProtocolError("cannot buffer %d bytes, capacity is %d", amount, len(ch.backing))
	}
	n, err := io.ReadAtLeast(ch.r, ch.backing[len(ch.buff):], need)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrConnectionLost
		}
		return uerr.Chainf(err, "reading sftp frame")
	}
	ch.buff = ch.backing[:len(ch.buff)+n]
	return nil
}

func (ch *SessionChannel) bump(n int) {
	ch.buff = ch.buff[n:]
}

// Close closes the underlying write side (and, if it also implements
// io.Closer for reading, that too).
func (ch *SessionChannel) Close() error {
	if rc, ok := ch.r.(io.Closer); ok {
		rc.Close()
	}
	return ch.w.Close()
}

// logSend and logReceive implement the §4.2 logging contract: each
// packet logs Type=<name>, Size=<n>, Number=<m>, except that runs of
// consecutive READ, WRITE, or STATUS packets are coalesced into a
// single "N skipped READ/WRITE/STATUS packets." line, since those are
// by far the highest-volume and least individually interesting.
func (ch *SessionChannel) logSend(p *Packet) { ch.logPacket("send", p) }
func (ch *SessionChannel) logReceive(p *Packet) { ch.logPacket("recv", p) }

func (ch *SessionChannel) logPacket(dir string, p *Packet) {
	if !isCoalescedType(p.Type()) {
		ch.flushRun()
		ch.log.Tracef("%s Type=%s, Size=%d, Number=%d",
			dir, packetTypeName(p.Type()), p.Len(), p.MessageNumber())
		return
	}
	if ch.runType != p.Type() {
		ch.flushRun()
		ch.runType = p.Type()
	}
	ch.runCount++
}

func isCoalescedType(t byte) bool {
	return t == sshFxpRead || t == sshFxpWrite || t == sshFxpStatus
}

func (ch *SessionChannel) flushRun() {
	if ch.runCount > 0 {
		ch.log.Tracef("%d skipped READ/WRITE/STATUS packets.", ch.runCount)
		ch.runCount = 0
	}
}

// DialOptions configures the transport Dial builds.
type DialOptions struct {
	// ProxyAddr, if set, routes the SSH dial through a SOCKS5 proxy at
	// this address before handshaking with Addr.
	ProxyAddr string
	ProxyAuth *proxy.Auth
}

// Dial builds a transport by SSH-dialing addr (optionally via a SOCKS5
// proxy) and requesting the "sftp" subsystem, the same sequence as the
// teacher's NewClient, just with the dial itself made explicit and
// proxyable rather than assuming a caller already has an *ssh.Client.
func Dial(addr string, config *ssh.ClientConfig, opts DialOptions) (*Client, error) {
	var conn net.Conn
	var err error
	if opts.ProxyAddr != "" {
		dialer, derr := proxy.SOCKS5("tcp", opts.ProxyAddr, opts.ProxyAuth, proxy.Direct)
		if derr != nil {
			return nil, uerr.Chainf(derr, "building socks5 dialer for %s", opts.ProxyAddr)
		}
		conn, err = dialer.Dial("tcp", addr)
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, uerr.Chainf(err, "dialing %s", addr)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, uerr.Chainf(err, "ssh handshake with %s", addr)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	session, err := sshClient.NewSession()
	if err != nil {
		return nil, uerr.Chainf(err, "opening ssh session")
	}
	if err := session.RequestSubsystem("sftp"); err != nil {
		return nil, uerr.Chainf(err, "requesting sftp subsystem")
	}
	wr, err := session.StdinPipe()
	if err != nil {
		return nil, err
	}
	rd, err := session.StdoutPipe()
	if err != nil {
		return nil, err
	}

	return NewClient(rd, wr)
}
