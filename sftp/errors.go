package sftp

import (
	"fmt"

	"github.com/wscp/sftpcore/internal/uerr"
)

// StatusError wraps an SSH_FXP_STATUS reply that carries a code other
// than SSH_FX_OK and SSH_FX_CONNECTION_LOST (SSH_FX_EOF included, which
// File.Read turns into io.EOF), matching the teacher's error type so
// callers can switch on Code the same way.
type StatusError struct {
	Code uint32
	msg  string
	lang string
}

func (e *StatusError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fxCodeName(e.Code)
}

// FxCode exposes the status code a caller can compare against the
// exported err* sentinels below.
func (e *StatusError) FxCode() uint32 { return e.Code }

// Is makes errors.Is(err, sftp.ErrNoSuchFile) and the like match a
// StatusError carrying that code.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(fxerr)
	return ok && uint32(t) == e.Code
}

func fxCodeName(code uint32) string {
	switch code {
	case sshFxOk:
		return "OK"
	case sshFxEOF:
		return "EOF"
	case sshFxNoSuchFile:
		return "no such file"
	case sshFxPermissionDenied:
		return "permission denied"
	case sshFxBadMessage:
		return "bad message"
	case sshFxNoConnection:
		return "no connection"
	case sshFxConnectionLost:
		return "connection lost"
	case sshFxOPUnsupported:
		return "operation unsupported"
	default:
		return "failure"
	}
}

// fxerr is the value form used by the exported Err* sentinels, so
// callers can do `errors.Is(err, sftp.ErrNoSuchFile)`.
type fxerr uint32

const (
	ErrOk               = fxerr(sshFxOk)
	ErrEOF              = fxerr(sshFxEOF)
	ErrNoSuchFile       = fxerr(sshFxNoSuchFile)
	ErrPermissionDenied = fxerr(sshFxPermissionDenied)
	ErrFailure          = fxerr(sshFxFailure)
	ErrBadMessage       = fxerr(sshFxBadMessage)
	ErrNoConnection     = fxerr(sshFxNoConnection)
	ErrOpUnsupported    = fxerr(sshFxOPUnsupported)
)

func (e fxerr) Error() string { return fxCodeName(uint32(e)) }

// ErrConnectionLost is returned by the correlator when the underlying
// transport reaches a clean EOF, or the server replies
// SSH_FX_CONNECTION_LOST, before any malformed frame was seen. This is
// the resolution of the open question in §9: a caller can retry a
// dropped connection, distinct from a ProtocolError below which means
// the peer sent something this client cannot parse and retrying the
// same session will not help.
const ErrConnectionLost = uerr.Const("sftp: connection lost")

// ProtocolError marks a fatal violation of the wire format: a reply
// whose message number does not match any reservation, a VERSION other
// than protocolVersion, a short or malformed frame. The session is no
// longer usable once a ProtocolError is returned.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string { return "sftp: protocol error: " + e.msg }

func newProtocolError(format string, args ...any) error {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

// statusToError converts a decoded SSH_FXP_STATUS reply to a Go error,
// folding SSH_FX_OK into a nil and SSH_FX_CONNECTION_LOST into the
// sentinel above rather than a generic StatusError.
func statusToError(code uint32, msg, lang string) error {
	switch code {
	case sshFxOk:
		return nil
	case sshFxConnectionLost:
		return ErrConnectionLost
	default:
		return &StatusError{Code: code, msg: msg, lang: lang}
	}
}

// errClosed names a closed connection, mirroring the teacher's
// uerr.Const("sftp conn closed") idiom of a cheap, comparable, typed
// sentinel error. No operation in this package returns it: File
// methods on a closed File return os.ErrClosed, and Client does not
// track whether it has been closed.
const errClosed = uerr.Const("sftp: connection closed")

// errHardlinkUnsupported is returned for hardlink requests: §4.5 treats
// them as rejected, not attempted, since this client never negotiates
// the hardlink@openssh.com extension.
const errHardlinkUnsupported = uerr.Const("sftp: hardlinks not supported")
