package xfer

import "os"

// CopyParameters bundles the policy decisions the transfer engine
// consults per file, exactly the flags named in §3: PreserveRights,
// PreserveTime, AllowResume, UseAsciiTransfer, ChangeFileNameCase, and
// RemoteFileRights. These are predicates/functions rather than static
// values because the source keeps them pluggable (a mask of extensions
// for ASCII, a case-folding rule, ...); a caller supplies whatever
// policy it needs, defaulting to DefaultCopyParameters.
type CopyParameters struct {
	PreserveRights bool
	PreserveTime   bool

	// AllowResume reports whether a file of this size is eligible for
	// resume at all (the source typically gates this on a minimum size
	// below which resuming isn't worth the round trips).
	AllowResume func(size int64) bool

	// UseAsciiTransfer reports whether name should have its line endings
	// converted between local and session conventions.
	UseAsciiTransfer func(name string) bool

	// ChangeFileNameCase rewrites name before it is used as the
	// destination's base name (e.g. force-lowercase on a case
	// insensitive destination).
	ChangeFileNameCase func(name string) string

	// RemoteFileRights maps a file's mode to the permission bits applied
	// when PreserveRights is set. Only Sink uses it, to chmod a
	// downloaded local file; Source's OPEN and MKDIR requests carry no
	// permission attributes.
	RemoteFileRights func(localAttrs os.FileMode) os.FileMode

	// PartialExt suffixes a destination name to get its shadow file
	// name during a transfer, e.g. ".filepart" (§6's PartialExt).
	PartialExt string

	// ConfirmOverwriting gates whether an existing destination prompts
	// before being replaced.
	ConfirmOverwriting bool

	// CPDelete, if set, deletes the source after a successful transfer
	// (Source: local file; Sink: remote file, non-recursively).
	CPDelete bool

	// LocalEOLStyle and RemoteEOLStyle are the line-ending conventions
	// an ASCII-flagged transfer converts between: Source reads
	// LocalEOLStyle and writes RemoteEOLStyle, Sink does the reverse.
	LocalEOLStyle  EOLStyle
	RemoteEOLStyle EOLStyle
}

// DefaultCopyParameters returns policy matching the source's own
// defaults: resume allowed above 4096 bytes (not worth it for tiny
// files), no ASCII conversion, no case folding, and permissions carried
// through as-is except that directories always get the execute bit
// added so they stay traversable — the AddProperties behavior surfaced
// from original_source/ and supplemented into this module per
// SPEC_FULL.md.
func DefaultCopyParameters() CopyParameters {
	return CopyParameters{
		PreserveRights:     true,
		PreserveTime:       true,
		AllowResume:        func(size int64) bool { return size > 4096 },
		UseAsciiTransfer:   func(string) bool { return false },
		ChangeFileNameCase: func(name string) string { return name },
		RemoteFileRights: func(localAttrs os.FileMode) os.FileMode {
			if localAttrs.IsDir() {
				return localAttrs | 0111
			}
			return localAttrs
		},
		PartialExt:         ".filepart",
		ConfirmOverwriting: true,
		LocalEOLStyle:      EOLLF,
		RemoteEOLStyle:     EOLCRLF,
	}
}
