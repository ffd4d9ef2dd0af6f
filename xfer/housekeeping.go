package xfer

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/wscp/sftpcore/internal/ulog"

	"gopkg.in/robfig/cron.v2"
)

// Housekeeper periodically sweeps a local directory for orphaned
// partial-transfer shadow files (PartialExt-suffixed, per §6) left
// behind by a crashed or killed transfer, deleting any older than
// MaxAge. Modeled on the teacher's usched.Scheduler: a single
// *cron.Cron driving named, non-overlapping jobs, rather than a
// hand-rolled ticker loop.
type Housekeeper struct {
	theCron *cron.Cron
	lock    sync.Mutex
	running map[string]bool

	Local LocalFS
	Ext   string
	MaxAge time.Duration

	log *ulog.Log
}

// NewHousekeeper builds a Housekeeper over local, sweeping files whose
// name ends in ext and whose mtime is older than maxAge.
func NewHousekeeper(local LocalFS, ext string, maxAge time.Duration) *Housekeeper {
	return &Housekeeper{
		theCron: cron.New(),
		running: make(map[string]bool),
		Local:   local,
		Ext:     ext,
		MaxAge:  maxAge,
		log:     ulog.NewLog("xfer.housekeeper"),
	}
}

// Start begins the cron scheduler. Call Stop to shut it down.
func (h *Housekeeper) Start() { h.theCron.Start() }

// Stop halts the cron scheduler. Already-running sweeps finish.
func (h *Housekeeper) Stop() { h.theCron.Stop() }

// ScheduleSweep registers dir to be swept on the given cron schedule
// (standard 5 or 6 field cron.v2 syntax, e.g. "0 */15 * * * *" for
// every 15 minutes). Each call adds a new cron entry; registering the
// same dir twice schedules it twice, and the running guard in sweep
// keeps the two from sweeping it at the same moment.
func (h *Housekeeper) ScheduleSweep(dir, schedule string) error {
	id, err := h.theCron.AddFunc(schedule, func() { h.sweep(dir) })
	if err != nil {
		return fmt.Errorf("xfer: bad housekeeping schedule %q: %w", schedule, err)
	}
	h.log.Infof("scheduled partial-file sweep of %s: id=%v", dir, id)
	return nil
}

// sweep lists dir once and removes every PartialExt-suffixed entry
// older than MaxAge. A dir already mid-sweep is skipped rather than
// run twice concurrently, matching the teacher's handle_.running
// guard against overlapping job runs.
func (h *Housekeeper) sweep(dir string) {
	h.lock.Lock()
	if h.running[dir] {
		h.lock.Unlock()
		h.log.Debugf("sweep of %s already running, skipping", dir)
		return
	}
	h.running[dir] = true
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.running, dir)
		h.lock.Unlock()
	}()

	entries, err := h.Local.ReadDir(dir)
	if err != nil {
		h.log.Errorf("sweep %s: %v", dir, err)
		return
	}

	cutoff := time.Now().Add(-h.MaxAge)
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), h.Ext) {
			continue
		}
		if entry.ModTime().After(cutoff) {
			continue
		}
		full := path.Join(dir, entry.Name())
		if err := h.Local.Remove(full); err != nil {
			h.log.Errorf("sweep: remove orphaned %s: %v", full, err)
			continue
		}
		h.log.Infof("sweep: removed orphaned partial file %s", full)
	}
}
