package xfer

import (
	"sync/atomic"
	"time"
)

// CancelState mirrors the two-state cancellation flag of §4/§5: a
// transfer is either running or has been asked to stop. There is no
// third "already stopped" state — Abort is driven off a returned error,
// not off this flag.
type CancelState int32

const (
	CancelNone CancelState = iota
	CancelRequested
)

// OperationProgress is the external handle the transfer engine reports
// through and polls for cancellation, matching the shape named in §3's
// data model: file identity, local/transfer sizes, transferred/resumed
// counters, a block-size hint, the cancel flag, the YesToAll/NoToAll
// overwrite latches, and ASCII/resume flags. There is one per file
// transferred, and a caller (CLI progress bar, GUI dialog, or a test)
// holding one reads it from another
// goroutine while the engine writes to it; all fields are accessed
// through atomics or the stated single-writer convention deliberately,
// since this is the one type in the module actually shared across
// goroutines.
type OperationProgress struct {
	Name string

	LocalSize    int64
	TransferSize int64 // adjusted for ASCII conversion as blocks are seen

	transferred int64 // atomic
	resumed     int64 // atomic

	BlockSizeHint int

	cancel int32 // atomic CancelState

	YesToAll bool
	NoToAll  bool

	AsciiTransfer bool
	Resume        bool

	startedAt    time.Time
	suspendedFor time.Duration
	suspendedAt  time.Time
}

// NewOperationProgress builds a progress handle for a single file,
// defaulting BlockSizeHint the way the teacher's transfer code sizes
// its read buffer.
func NewOperationProgress(name string, localSize int64) *OperationProgress {
	return &OperationProgress{
		Name:          name,
		LocalSize:     localSize,
		TransferSize:  localSize,
		BlockSizeHint: 32 * 1024,
		startedAt:     timeNow(),
	}
}

// timeNow exists only so tests can stub time without touching the
// package clock globally.
var timeNow = time.Now

// RequestCancel sets the cancel flag; the engine observes it between
// blocks and after prompts, per §5.
func (p *OperationProgress) RequestCancel() {
	atomic.StoreInt32(&p.cancel, int32(CancelRequested))
}

func (p *OperationProgress) Cancel() CancelState {
	return CancelState(atomic.LoadInt32(&p.cancel))
}

func (p *OperationProgress) Cancelled() bool { return p.Cancel() == CancelRequested }

// AddTransferred records n more bytes moved across the wire.
func (p *OperationProgress) AddTransferred(n int64) {
	atomic.AddInt64(&p.transferred, n)
}

func (p *OperationProgress) Transferred() int64 {
	return atomic.LoadInt64(&p.transferred)
}

// SetResumed records the offset a resumed transfer started from, so
// progress reporting can distinguish "already had" from "moved this
// session".
func (p *OperationProgress) SetResumed(n int64) {
	atomic.StoreInt64(&p.resumed, n)
}

func (p *OperationProgress) Resumed() int64 {
	return atomic.LoadInt64(&p.resumed)
}

// SuspendTiming and ResumeTiming bracket a user prompt: §9 requires
// that time spent waiting on ConfirmOverwrite/ConfirmResume not count
// against transfer throughput.
func (p *OperationProgress) SuspendTiming() {
	p.suspendedAt = timeNow()
}

func (p *OperationProgress) ResumeTiming() {
	if !p.suspendedAt.IsZero() {
		p.suspendedFor += timeNow().Sub(p.suspendedAt)
		p.suspendedAt = time.Time{}
	}
}

func (p *OperationProgress) Elapsed() time.Duration {
	return timeNow().Sub(p.startedAt) - p.suspendedFor
}

// Finish is the per-file terminator named in §3/§7:
// Finish(name, success, disconnect_when_complete). FinishFunc, if set,
// receives the call. CopyToRemote and CopyToLocal always pass false for
// disconnectWhenComplete; no Prompter answer sets it.
type FinishFunc func(name string, success bool, disconnectWhenComplete bool)

func (p *OperationProgress) Finish(finish FinishFunc, success, disconnectWhenComplete bool) {
	if finish != nil {
		finish(p.Name, success, disconnectWhenComplete)
	}
}
