package xfer

import (
	"io"
	"path"

	"github.com/wscp/sftpcore/sftp"
)

func isNoSuchFile(err error) bool {
	se, ok := err.(*sftp.StatusError)
	return ok && se.FxCode() == uint32(sftp.ErrNoSuchFile)
}

// Source uploads localPath into targetDir, recursing for directories,
// implementing §4.6's ten-step upload algorithm.
func (e *Engine) Source(localPath, targetDir string, progress *OperationProgress) error {
	local, err := e.Local.Stat(localPath)
	if err != nil {
		return skipFile(localPath, err)
	}

	// step 1: directory recursion
	if local.IsDir() {
		return e.sourceDir(localPath, targetDir, progress)
	}

	name := e.Params.ChangeFileNameCase(path.Base(localPath))
	destFull, err := e.Client.Canonify(path.Join(targetDir, name))
	if err != nil {
		return skipFile(localPath, err)
	}

	ascii := e.Params.UseAsciiTransfer(name)
	binary := !ascii
	size := local.Size()
	// resumability requires binary transfer: per §9, ASCII + resume was
	// asserted impossible in the source; here it is simply excluded from
	// eligibility rather than reachable and then rejected.
	resumable := binary && e.Params.AllowResume(size)

	progress.Name = name
	progress.LocalSize = size
	progress.TransferSize = size
	progress.AsciiTransfer = ascii
	progress.Resume = false

	partial := destFull + e.Params.PartialExt
	var resumeOffset int64

	if resumable {
		if pstat, err := e.Client.Stat(partial); err == nil {
			biggerThanSource := pstat.Size > uint64(size)
			progress.SuspendTiming()
			var answer ResumeAnswer
			if biggerThanSource {
				// presented as a warning (OK/Abort) that always restarts
				answer = ResumeNo
				if e.Prompter.ConfirmResume(name, true) == ResumeAbort {
					answer = ResumeAbort
				}
			} else {
				answer = e.Prompter.ConfirmResume(name, false)
			}
			progress.ResumeTiming()
			switch answer {
			case ResumeAbort:
				return abortTransfer(name, nil)
			case ResumeYes:
				progress.Resume = true
				resumeOffset = int64(pstat.Size)
			case ResumeNo:
				if err := e.Client.Remove(partial); err != nil && !isNoSuchFile(err) {
					return skipFile(name, err)
				}
			}
		} else if !isNoSuchFile(err) {
			return skipFile(name, err)
		}
	}

	// step 4: overwrite confirmation, only when not resuming
	destExists := false
	if !progress.Resume {
		if _, err := e.Client.Stat(destFull); err == nil {
			destExists = true
		}
		if destExists && e.Params.ConfirmOverwriting && !progress.YesToAll {
			progress.SuspendTiming()
			answer := e.Prompter.ConfirmOverwrite(name)
			progress.ResumeTiming()
			proceed, err := resolveOverwrite(progress, answer)
			if !proceed {
				return err
			}
		}
	}

	// step 5: open remote file
	pflags := uint32(sftp.FxfWrite | sftp.FxfCreat)
	if !progress.Resume {
		pflags |= sftp.FxfTrunc
	}
	useExcl := e.Params.ConfirmOverwriting && !progress.YesToAll && !progress.Resume
	if useExcl {
		pflags |= sftp.FxfExcl
	}

	openPath := destFull
	writeTarget := destFull
	if resumable {
		writeTarget = partial
		openPath = partial
		if !progress.Resume {
			pflags |= sftp.FxfTrunc
		}
	}

	remote, err := e.Client.Open(openPath, pflags)
	if err != nil && useExcl {
		if _, statErr := e.Client.Stat(openPath); statErr == nil {
			// exists, but open failed for some other reason: confirm and
			// retry without EXCL
			progress.SuspendTiming()
			answer := e.Prompter.ConfirmOverwrite(name)
			progress.ResumeTiming()
			proceed, cerr := resolveOverwrite(progress, answer)
			if !proceed {
				return cerr
			}
			remote, err = e.Client.Open(openPath, pflags&^uint32(sftp.FxfExcl))
		} else {
			return skipFile(name, err)
		}
	}
	if err != nil {
		return skipFile(name, err)
	}
	defer remote.Close()

	local_, err := e.Local.Open(localPath)
	if err != nil {
		return skipFile(name, err)
	}
	defer local_.Close()

	// step 6
	if progress.Resume {
		if _, err := local_.Seek(resumeOffset, io.SeekStart); err != nil {
			return skipFile(name, err)
		}
		progress.SetResumed(resumeOffset)
	}

	// step 7: transfer loop
	buf := make([]byte, progress.BlockSizeHint)
	offset := resumeOffset
	for {
		if progress.Cancelled() {
			return abortTransfer(name, nil)
		}
		n, rerr := local_.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if ascii {
				chunk = convertEOL(chunk, e.Params.LocalEOLStyle, e.Params.RemoteEOLStyle)
				progress.TransferSize += int64(len(chunk) - n)
			}
			e.log.Tracef("upload %s: block at %d, %d bytes, fp=%x", name, offset, len(chunk), fingerprintBlock(chunk))
			if _, err := remote.Seek(offset, io.SeekStart); err != nil {
				return skipFile(name, err)
			}
			if _, err := remote.Write(chunk); err != nil {
				return skipFile(name, err)
			}
			offset += int64(len(chunk))
			progress.AddTransferred(int64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return skipFile(name, rerr)
		}
	}

	// step 8
	if resumable {
		if destExists {
			if err := e.Client.Remove(destFull); err != nil && !isNoSuchFile(err) {
				return skipFile(name, err)
			}
		}
		if err := e.Client.Rename(writeTarget, destFull); err != nil {
			return skipFile(name, err)
		}
	}

	// step 9
	if e.Params.PreserveTime {
		atime := FileAtime(local)
		mtime := local.ModTime()
		if err := e.Client.Chtimes(destFull, atime, mtime); err != nil {
			e.log.Errorf("preserve time on %s: %v", destFull, err)
		}
	}

	// step 10
	if e.Params.CPDelete {
		if err := e.Local.Remove(localPath); err != nil {
			e.log.Errorf("delete local source %s: %v", localPath, err)
		}
	}

	return nil
}

// sourceDir recurses into a local directory, issuing a child Source for
// each entry and catching each failure as Skip so the batch continues,
// per §4.6's Recursion subsection.
func (e *Engine) sourceDir(localDir, targetDir string, progress *OperationProgress) error {
	name := path.Base(localDir)
	remoteDir := path.Join(targetDir, name)
	if err := e.Client.Mkdir(remoteDir); err != nil && !isAlreadyExists(err) {
		return skipFile(name, err)
	}

	entries, err := e.Local.ReadDir(localDir)
	if err != nil {
		return skipFile(name, err)
	}

	childSkipped := false
	for _, entry := range entries {
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		childProgress := NewOperationProgress(entry.Name(), entry.Size())
		err := e.Source(path.Join(localDir, entry.Name()), remoteDir, childProgress)
		switch outcomeOf(err) {
		case Ok:
		case Skip:
			childSkipped = true
			e.log.Errorf("skip %s: %v", entry.Name(), err)
		case Abort, Fatal:
			return err
		}
	}
	if childSkipped && e.Params.CPDelete {
		// suppress this directory's own removal upstream: signal via Skip
		// rather than silently deleting a directory that still has
		// children that failed to transfer.
		return skipFile(name, nil)
	}
	if e.Params.CPDelete {
		if err := e.Local.Remove(localDir); err != nil {
			e.log.Errorf("delete local source dir %s: %v", localDir, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	se, ok := err.(*sftp.StatusError)
	return ok && se.FxCode() == uint32(sftp.ErrFailure)
}
