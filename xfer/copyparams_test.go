package xfer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCopyParametersAllowResumeThreshold(t *testing.T) {
	params := DefaultCopyParameters()
	assert.False(t, params.AllowResume(100))
	assert.False(t, params.AllowResume(4096))
	assert.True(t, params.AllowResume(4097))
}

func TestDefaultCopyParametersNoAsciiByDefault(t *testing.T) {
	params := DefaultCopyParameters()
	assert.False(t, params.UseAsciiTransfer("readme.txt"))
}

func TestDefaultCopyParametersRemoteFileRightsAddsExecForDirs(t *testing.T) {
	params := DefaultCopyParameters()
	dirMode := params.RemoteFileRights(os.ModeDir | 0755)
	assert.NotZero(t, dirMode&0111)

	fileMode := params.RemoteFileRights(0644)
	assert.Equal(t, os.FileMode(0644), fileMode)
}
