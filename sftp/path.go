package sftp

import "github.com/cornelk/hashmap"

// pathCache memoizes two things that cannot change within a session:
// the home directory, and the RealPath resolution of any path already
// canonified once. Backed by github.com/cornelk/hashmap per §4.4, the
// same lock-free map type the Correlator uses for its reservation
// table, so a Client pulls in exactly one map implementation.
type pathCache struct {
	resolved *hashmap.Map[string, string]
	enabled  bool

	homeSet bool
	homeDir string
}

func newPathCache() *pathCache {
	return &pathCache{resolved: hashmap.New[string, string](), enabled: true}
}

func (pc *pathCache) home() (string, bool) {
	if !pc.homeSet {
		return "", false
	}
	return pc.homeDir, true
}

func (pc *pathCache) setHome(dir string) {
	pc.homeDir = dir
	pc.homeSet = true
}

func (pc *pathCache) get(pathN string) (string, bool) {
	if !pc.enabled {
		return "", false
	}
	return pc.resolved.Get(pathN)
}

func (pc *pathCache) set(pathN, resolved string) {
	if !pc.enabled {
		return
	}
	pc.resolved.Set(pathN, resolved)
}
