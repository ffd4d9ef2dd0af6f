package sftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathCacheHomeUnsetUntilSet(t *testing.T) {
	pc := newPathCache()

	_, ok := pc.home()
	assert.False(t, ok)

	pc.setHome("/home/alice")
	dir, ok := pc.home()
	assert.True(t, ok)
	assert.Equal(t, "/home/alice", dir)
}

func TestPathCacheResolvedLookup(t *testing.T) {
	pc := newPathCache()

	_, ok := pc.get("relative/path")
	assert.False(t, ok)

	pc.set("relative/path", "/home/alice/relative/path")
	resolved, ok := pc.get("relative/path")
	assert.True(t, ok)
	assert.Equal(t, "/home/alice/relative/path", resolved)
}

func TestPathCacheOverwrite(t *testing.T) {
	pc := newPathCache()
	pc.set("x", "/a/x")
	pc.set("x", "/b/x")
	resolved, ok := pc.get("x")
	assert.True(t, ok)
	assert.Equal(t, "/b/x", resolved)
}
