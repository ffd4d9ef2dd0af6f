package xfer

import (
	"io"
	"os"
	"path"

	"github.com/wscp/sftpcore/sftp"
)

// Sink downloads remotePath into localTargetDir, recursing for
// directories, implementing §4.6's ten-step download algorithm
// (symmetric to Source's upload).
func (e *Engine) Sink(remotePath, localTargetDir string, progress *OperationProgress) error {
	remoteAttrs, err := e.Client.Stat(remotePath)
	if err != nil {
		return skipFile(remotePath, err)
	}

	// step 1: directory recursion
	if remoteAttrs.IsDir() {
		return e.sinkDir(remotePath, localTargetDir, progress)
	}

	name := e.Params.ChangeFileNameCase(path.Base(remotePath))
	destFull := path.Join(localTargetDir, name)

	ascii := e.Params.UseAsciiTransfer(name)
	binary := !ascii
	size := int64(remoteAttrs.Size)
	// resumability requires binary transfer, same as the upload side.
	resumable := binary && e.Params.AllowResume(size)

	progress.Name = name
	progress.LocalSize = size
	progress.TransferSize = size
	progress.AsciiTransfer = ascii
	progress.Resume = false

	partial := destFull + e.Params.PartialExt
	var resumeOffset int64

	if resumable {
		if pstat, err := e.Local.Stat(partial); err == nil {
			biggerThanSource := pstat.Size() > size
			progress.SuspendTiming()
			var answer ResumeAnswer
			if biggerThanSource {
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
				resumeOffset = pstat.Size()
			case ResumeNo:
				if err := e.Local.Remove(partial); err != nil && !os.IsNotExist(err) {
					return skipFile(name, err)
				}
			}
		} else if !os.IsNotExist(err) {
			return skipFile(name, err)
		}
	}

	// step 4: overwrite confirmation, only when not resuming
	destExists := false
	if !progress.Resume {
		if _, err := e.Local.Stat(destFull); err == nil {
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

	// step 5: open remote source and local destination
	remote, err := e.Client.Open(remotePath, sftp.FxfRead)
	if err != nil {
		return skipFile(name, err)
	}
	defer remote.Close()

	writeTarget := destFull
	if resumable {
		writeTarget = partial
	}

	localFlags := os.O_WRONLY | os.O_CREATE
	if progress.Resume {
		// nothing: leave existing content, seek below
	} else {
		localFlags |= os.O_TRUNC
	}
	local_, err := e.Local.OpenFile(writeTarget, localFlags, 0o644)
	if err != nil {
		return skipFile(name, err)
	}
	defer local_.Close()

	// step 6
	if progress.Resume {
		if _, err := local_.Seek(resumeOffset, io.SeekStart); err != nil {
			return skipFile(name, err)
		}
		if _, err := remote.Seek(resumeOffset, io.SeekStart); err != nil {
			return skipFile(name, err)
		}
		progress.SetResumed(resumeOffset)
	}

	// step 7: transfer loop, driven by READ replies until SSH_FX_EOF
	offset := resumeOffset
	for {
		if progress.Cancelled() {
			return abortTransfer(name, nil)
		}
		buf := make([]byte, progress.BlockSizeHint)
		n, rerr := remote.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if ascii {
				chunk = convertEOL(chunk, e.Params.RemoteEOLStyle, e.Params.LocalEOLStyle)
				progress.TransferSize += int64(len(chunk) - n)
			}
			e.log.Tracef("download %s: block at %d, %d bytes, fp=%x", name, offset, len(chunk), fingerprintBlock(chunk))
			if _, err := local_.Write(chunk); err != nil {
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
			if err := e.Local.Remove(destFull); err != nil && !os.IsNotExist(err) {
				return skipFile(name, err)
			}
		}
		if err := e.Local.Rename(writeTarget, destFull); err != nil {
			return skipFile(name, err)
		}
	}

	// step 9
	if e.Params.PreserveTime {
		mtime := remoteAttrs.ModTime()
		if err := e.Local.Chtimes(destFull, remoteAttrs.AccessTime(), mtime); err != nil {
			e.log.Errorf("preserve time on %s: %v", destFull, err)
		}
	}
	if e.Params.PreserveRights {
		if err := e.Local.Chmod(destFull, e.Params.RemoteFileRights(remoteAttrs.OsFileMode())); err != nil {
			e.log.Errorf("preserve rights on %s: %v", destFull, err)
		}
	}

	// step 10
	if e.Params.CPDelete {
		if err := e.Client.Remove(remotePath); err != nil {
			e.log.Errorf("delete remote source %s: %v", remotePath, err)
		}
	}

	return nil
}

// sinkDir recurses into a remote directory, issuing a child Sink for
// each entry and catching each failure as Skip so the batch continues.
func (e *Engine) sinkDir(remoteDir, localTargetDir string, progress *OperationProgress) error {
	name := path.Base(remoteDir)
	localDir := path.Join(localTargetDir, name)
	if err := e.Local.Mkdir(localDir, 0o755); err != nil && !os.IsExist(err) {
		return skipFile(name, err)
	}

	entries, err := e.Client.ReadDirectory(remoteDir)
	if err != nil {
		return skipFile(name, err)
	}

	childSkipped := false
	for _, entry := range entries {
		if entry.BaseName() == "." || entry.BaseName() == ".." {
			continue
		}
		childProgress := NewOperationProgress(entry.BaseName(), int64(entry.Size()))
		err := e.Sink(entry.Name(), localDir, childProgress)
		switch outcomeOf(err) {
		case Ok:
		case Skip:
			childSkipped = true
			e.log.Errorf("skip %s: %v", entry.BaseName(), err)
		case Abort, Fatal:
			return err
		}
	}
	if childSkipped && e.Params.CPDelete {
		return skipFile(name, nil)
	}
	if e.Params.CPDelete {
		if err := e.Client.Rmdir(remoteDir); err != nil {
			e.log.Errorf("delete remote source dir %s: %v", remoteDir, err)
		}
	}
	return nil
}
