// Package xfer implements the recursive, resumable upload/download
// engine (§4.6) that drives transfers against an sftp.Client.
package xfer

import (
	"errors"
	"fmt"

	"github.com/wscp/sftpcore/sftp"
)

// Outcome is the sum-typed control result §9 calls for, replacing the
// source's exception-based skip-file/abort flow control with an
// ordinary returned value: Ok means the file (or batch) completed,
// Skip means this one file was abandoned and the batch continues,
// Abort means the whole operation unwinds, and Fatal means the session
// itself is no longer usable (a protocol violation, not a transfer
// failure).
type Outcome int

const (
	Ok Outcome = iota
	Skip
	Abort
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ControlError carries an Outcome other than Ok up through the engine.
// Skip is caught at the per-file boundary and logged; Abort and Fatal
// propagate all the way out of CopyToRemote/CopyToLocal.
type ControlError struct {
	Outcome Outcome
	Name    string
	Cause   error
}

func (e *ControlError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %v", e.Outcome, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Outcome, e.Cause)
}

func (e *ControlError) Unwrap() error { return e.Cause }

// skipFile wraps cause as a per-file failure, except that a cause
// meaning the session itself is no longer usable — a *sftp.ProtocolError
// or sftp.ErrConnectionLost — is escalated to Fatal instead: per
// §7/§9's resolution of the source's conflated FatalError/TerminalError,
// a dead session should stop the batch, not be treated as one bad file
// among many.
func skipFile(name string, cause error) error {
	if isFatalCause(cause) {
		return fatalProtocol(name, cause)
	}
	return &ControlError{Outcome: Skip, Name: name, Cause: cause}
}

func abortTransfer(name string, cause error) error {
	return &ControlError{Outcome: Abort, Name: name, Cause: cause}
}

func fatalProtocol(name string, cause error) error {
	return &ControlError{Outcome: Fatal, Name: name, Cause: cause}
}

func isFatalCause(cause error) bool {
	if cause == nil {
		return false
	}
	var perr *sftp.ProtocolError
	return errors.As(cause, &perr) || errors.Is(cause, sftp.ErrConnectionLost)
}

// outcomeOf classifies an arbitrary error returned from deeper in the
// engine, defaulting anything not already a *ControlError to Skip, the
// policy §7 describes for ordinary I/O/transfer errors.
func outcomeOf(err error) Outcome {
	if err == nil {
		return Ok
	}
	if ce, ok := err.(*ControlError); ok {
		return ce.Outcome
	}
	return Skip
}
