package xfer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationProgressCancelIsCooperative(t *testing.T) {
	p := NewOperationProgress("file.bin", 100)
	assert.False(t, p.Cancelled())
	p.RequestCancel()
	assert.True(t, p.Cancelled())
	assert.Equal(t, CancelRequested, p.Cancel())
}

func TestOperationProgressAddTransferredIsConcurrencySafe(t *testing.T) {
	p := NewOperationProgress("file.bin", 0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.AddTransferred(10)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), p.Transferred())
}

func TestOperationProgressResumed(t *testing.T) {
	p := NewOperationProgress("file.bin", 0)
	assert.Equal(t, int64(0), p.Resumed())
	p.SetResumed(4096)
	assert.Equal(t, int64(4096), p.Resumed())
}

func TestOperationProgressSuspendedTimeExcludedFromElapsed(t *testing.T) {
	var now time.Time
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	now = time.Unix(1000, 0)
	p := NewOperationProgress("file.bin", 0) // startedAt = 1000

	now = time.Unix(1002, 0)
	p.SuspendTiming() // suspendedAt = 1002

	now = time.Unix(1010, 0)
	p.ResumeTiming() // suspendedFor += 8s

	now = time.Unix(1015, 0)
	// elapsed = (1015-1000) - 8 = 7s
	assert.Equal(t, 7*time.Second, p.Elapsed())
}

func TestOperationProgressFinishCallsFinishFunc(t *testing.T) {
	p := NewOperationProgress("file.bin", 0)
	var gotName string
	var gotSuccess, gotDisconnect bool
	p.Finish(func(name string, success, disconnect bool) {
		gotName, gotSuccess, gotDisconnect = name, success, disconnect
	}, true, true)
	assert.Equal(t, "file.bin", gotName)
	assert.True(t, gotSuccess)
	assert.True(t, gotDisconnect)
}

func TestOperationProgressFinishNilIsNoop(t *testing.T) {
	p := NewOperationProgress("file.bin", 0)
	assert.NotPanics(t, func() { p.Finish(nil, true, false) })
}
