package xfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchPrompterDefaultsDecline(t *testing.T) {
	p := NewBatchPrompter()
	assert.Equal(t, OverwriteNo, p.ConfirmOverwrite("f"))
	assert.Equal(t, ResumeAbort, p.ConfirmResume("f", false))
}

func TestResolveOverwriteYesProceeds(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteYes)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.False(t, progress.YesToAll)
}

func TestResolveOverwriteYesToAllLatches(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteYesToAll)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.True(t, progress.YesToAll)
}

func TestResolveOverwriteNeverAskAgainFallsThroughToYes(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteNeverAskAgain)
	require.NoError(t, err)
	assert.True(t, proceed, "NeverAskAgain must fall through YesToAll to Yes, per the source's quirk")
	assert.True(t, progress.YesToAll)
}

func TestResolveOverwriteNoSkips(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteNo)
	assert.False(t, proceed)
	assert.Equal(t, Skip, outcomeOf(err))
	assert.False(t, progress.NoToAll)
}

func TestResolveOverwriteNoToAllLatchesAndSkips(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteNoToAll)
	assert.False(t, proceed)
	assert.Equal(t, Skip, outcomeOf(err))
	assert.True(t, progress.NoToAll)
}

func TestResolveOverwriteAbortUnwinds(t *testing.T) {
	progress := NewOperationProgress("f", 0)
	proceed, err := resolveOverwrite(progress, OverwriteAbort)
	assert.False(t, proceed)
	assert.Equal(t, Abort, outcomeOf(err))
}
