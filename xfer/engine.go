package xfer

import (
	"path"

	"github.com/wscp/sftpcore/internal/ulog"
	"github.com/wscp/sftpcore/sftp"
)

// Engine is the Transfer Engine (§4.6, §6's "Engine API exposed"): it
// composes an sftp.Client with a local filesystem and a user-prompt
// adapter to drive CopyToRemote/CopyToLocal batches.
type Engine struct {
	Client   *sftp.Client
	Local    LocalFS
	Prompter Prompter
	Params   CopyParameters

	Finish FinishFunc

	log *ulog.Log
}

// NewEngine builds an Engine. local and prompter may be nil to get the
// os-backed default and a declining BatchPrompter respectively.
func NewEngine(c *sftp.Client, local LocalFS, prompter Prompter, params CopyParameters) *Engine {
	if local == nil {
		local = NewOsLocalFS()
	}
	if prompter == nil {
		prompter = NewBatchPrompter()
	}
	return &Engine{
		Client:   c,
		Local:    local,
		Prompter: prompter,
		Params:   params,
		log:      ulog.NewLog("xfer"),
	}
}

// CopyToRemote uploads files (local paths) into targetDir on the
// server. Each file's failure is caught as Skip and the batch
// continues; Abort or Fatal from any file stops the batch and
// propagates.
func (e *Engine) CopyToRemote(files []string, targetDir string) error {
	for _, f := range files {
		progress := NewOperationProgress(path.Base(f), 0)
		err := e.Source(f, targetDir, progress)
		switch outcomeOf(err) {
		case Ok:
			progress.Finish(e.Finish, true, false)
		case Skip:
			e.log.Errorf("skip %s: %v", f, err)
			progress.Finish(e.Finish, false, false)
			continue
		case Abort, Fatal:
			progress.Finish(e.Finish, false, false)
			return err
		}
	}
	return nil
}

// CopyToLocal downloads remoteFiles into the local targetDir.
func (e *Engine) CopyToLocal(remoteFiles []string, targetDir string) error {
	for _, f := range remoteFiles {
		progress := NewOperationProgress(path.Base(f), 0)
		err := e.Sink(f, targetDir, progress)
		switch outcomeOf(err) {
		case Ok:
			progress.Finish(e.Finish, true, false)
		case Skip:
			e.log.Errorf("skip %s: %v", f, err)
			progress.Finish(e.Finish, false, false)
			continue
		case Abort, Fatal:
			progress.Finish(e.Finish, false, false)
			return err
		}
	}
	return nil
}

// Capability queries, per §6: mode changes are supported; owner/group
// changes, hardlinks, arbitrary commands, and user/group listings are
// not, matching the Non-goals in §1.
func (e *Engine) SupportsModeChange() bool         { return true }
func (e *Engine) SupportsOwnerGroupChange() bool   { return false }
func (e *Engine) SupportsHardlinks() bool          { return false }
func (e *Engine) SupportsArbitraryCommand() bool   { return false }
func (e *Engine) SupportsUserGroupListing() bool   { return false }
