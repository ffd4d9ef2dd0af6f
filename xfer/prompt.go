package xfer

// OverwriteAnswer is the user's response to ConfirmOverwrite.
type OverwriteAnswer int

const (
	OverwriteYes OverwriteAnswer = iota
	OverwriteNo
	OverwriteYesToAll
	OverwriteNoToAll
	OverwriteAbort
	// OverwriteNeverAskAgain sets the YesToAll latch exactly like
	// YesToAll, but is a separate answer so the caller can tell "the
	// user wants this every time, forever" apart from "the user said yes
	// to this batch".
	OverwriteNeverAskAgain
)

// ResumeAnswer is the user's response to ConfirmResume.
type ResumeAnswer int

const (
	ResumeYes ResumeAnswer = iota
	ResumeNo
	ResumeAbort
)

// Prompter is the "user-interaction layer" §1 keeps external: overwrite
// and resume confirmation only, matching §6's engine API surface.
type Prompter interface {
	ConfirmOverwrite(name string) OverwriteAnswer
	ConfirmResume(name string, partialBiggerThanSource bool) ResumeAnswer
}

// BatchPrompter is a default, non-interactive Prompter suitable for
// scripted/headless use and for tests: it answers every prompt
// according to a fixed policy rather than asking anyone.
type BatchPrompter struct {
	OverwritePolicy OverwriteAnswer
	ResumePolicy    ResumeAnswer
}

// NewBatchPrompter defaults to declining everything (No / Abort), the
// safest behavior for an unattended run: nothing gets clobbered or
// resumed without being told to.
func NewBatchPrompter() *BatchPrompter {
	return &BatchPrompter{OverwritePolicy: OverwriteNo, ResumePolicy: ResumeAbort}
}

func (b *BatchPrompter) ConfirmOverwrite(name string) OverwriteAnswer { return b.OverwritePolicy }

func (b *BatchPrompter) ConfirmResume(name string, partialBiggerThanSource bool) ResumeAnswer {
	return b.ResumePolicy
}

// resolveOverwrite applies the overwrite confirmation policy of
// §4.6 step 4 / step 3 (upload/download): Yes/YesToAll/NeverAskAgain
// all mean "proceed", with YesToAll and NeverAskAgain additionally
// setting progress.YesToAll, which the rest of this file's transfer
// consults; No/NoToAll mean "skip this file", with NoToAll setting
// progress.NoToAll; Abort unwinds the batch. The engine gives every
// file its own OperationProgress, so neither latch carries over to
// later files in a batch, and nothing in the engine reads NoToAll. The case
// fall-through (NeverAskAgain -> YesToAll -> Yes) is intentional, per
// §9, and preserved here rather than "simplified" into independent
// branches.
func resolveOverwrite(progress *OperationProgress, answer OverwriteAnswer) (proceed bool, err error) {
	switch answer {
	case OverwriteNeverAskAgain:
		progress.YesToAll = true
		fallthrough
	case OverwriteYesToAll:
		progress.YesToAll = true
		fallthrough
	case OverwriteYes:
		return true, nil
	case OverwriteNoToAll:
		progress.NoToAll = true
		fallthrough
	case OverwriteNo:
		return false, skipFile(progress.Name, nil)
	case OverwriteAbort:
		return false, abortTransfer(progress.Name, nil)
	default:
		return false, skipFile(progress.Name, nil)
	}
}
