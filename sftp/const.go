package sftp

// Wire opcodes and status codes for SFTP version 3, restricted to the
// subset this client speaks. Names and numeric values follow the IETF
// draft (draft-ietf-secsh-filexfer-02) the teacher's packet.go and the
// original WinSCP source both cite.
const (
	sshFxpInit          = 1
	sshFxpVersion       = 2
	sshFxpOpen          = 3
	sshFxpClose         = 4
	sshFxpRead          = 5
	sshFxpWrite         = 6
	sshFxpLstat         = 7
	sshFxpFstat         = 8
	sshFxpSetstat       = 9
	sshFxpFsetstat      = 10
	sshFxpOpendir       = 11
	sshFxpReaddir       = 12
	sshFxpRemove        = 13
	sshFxpMkdir         = 14
	sshFxpRmdir         = 15
	sshFxpRealpath      = 16
	sshFxpStat          = 17
	sshFxpRename        = 18
	sshFxpReadlink      = 19
	sshFxpSymlink       = 20
	sshFxpStatus        = 101
	sshFxpHandle        = 102
	sshFxpData          = 103
	sshFxpName          = 104
	sshFxpAttrs         = 105
	sshFxpExtended      = 200
	sshFxpExtendedReply = 201
)

// SFTP status codes (SSH_FX_*), the payload of an SSH_FXP_STATUS reply.
const (
	sshFxOk               = 0
	sshFxEOF              = 1
	sshFxNoSuchFile       = 2
	sshFxPermissionDenied = 3
	sshFxFailure          = 4
	sshFxBadMessage       = 5
	sshFxNoConnection     = 6
	sshFxConnectionLost   = 7
	sshFxOPUnsupported    = 8

	// not a real wire code; nothing in this package assigns or checks
	// it. Unrecognized codes are named "failure" by fxCodeName.
	sshFxFileIsADirectory = 0x7ffffffe
)

// ATTR flag bits, §4.1.
const (
	attrSize        = 0x00000001
	attrUIDGID      = 0x00000002
	attrPermissions = 0x00000004
	attrACmodTime   = 0x00000008
	attrExtended    = 0x80000000
)

// DirBit is the hard-coded permission bit WinSCP (and this port) uses to
// recognize a directory from SSH_FXP_ATTRS permissions, independent of
// any ATTR_PERMISSIONS flags interpretation elsewhere. Carried forward
// per §9's note that this is an observed quirk of the source, not an
// invariant of the SFTP spec — servers that don't set it on directories
// will not be recognized as such by this check alone.
const DirBit = 0040000

// protocolVersion is the only SFTP version this client will negotiate.
const protocolVersion = 3

// packetTypeName renders an opcode the way the original WinSCP source's
// TSFTPPacket::GetTypeName does, for use in the Session Channel's
// logging contract (§4.2).
func packetTypeName(t byte) string {
	switch t {
	case sshFxpInit:
		return "SSH_FXP_INIT"
	case sshFxpVersion:
		return "SSH_FXP_VERSION"
	case sshFxpOpen:
		return "SSH_FXP_OPEN"
	case sshFxpClose:
		return "SSH_FXP_CLOSE"
	case sshFxpRead:
		return "SSH_FXP_READ"
	case sshFxpWrite:
		return "SSH_FXP_WRITE"
	case sshFxpLstat:
		return "SSH_FXP_LSTAT"
	case sshFxpFstat:
		return "SSH_FXP_FSTAT"
	case sshFxpSetstat:
		return "SSH_FXP_SETSTAT"
	case sshFxpFsetstat:
		return "SSH_FXP_FSETSTAT"
	case sshFxpOpendir:
		return "SSH_FXP_OPENDIR"
	case sshFxpReaddir:
		return "SSH_FXP_READDIR"
	case sshFxpRemove:
		return "SSH_FXP_REMOVE"
	case sshFxpMkdir:
		return "SSH_FXP_MKDIR"
	case sshFxpRmdir:
		return "SSH_FXP_RMDIR"
	case sshFxpRealpath:
		return "SSH_FXP_REALPATH"
	case sshFxpStat:
		return "SSH_FXP_STAT"
	case sshFxpRename:
		return "SSH_FXP_RENAME"
	case sshFxpReadlink:
		return "SSH_FXP_READLINK"
	case sshFxpSymlink:
		return "SSH_FXP_SYMLINK"
	case sshFxpStatus:
		return "SSH_FXP_STATUS"
	case sshFxpHandle:
		return "SSH_FXP_HANDLE"
	case sshFxpData:
		return "SSH_FXP_DATA"
	case sshFxpName:
		return "SSH_FXP_NAME"
	case sshFxpAttrs:
		return "SSH_FXP_ATTRS"
	case sshFxpExtended:
		return "SSH_FXP_EXTENDED"
	case sshFxpExtendedReply:
		return "SSH_FXP_EXTENDED_REPLY"
	default:
		return "UNKNOWN"
	}
}

// OpenFlags, the pflags word of SSH_FXP_OPEN.
const (
	FxfRead   = 0x00000001
	FxfWrite  = 0x00000002
	FxfAppend = 0x00000004
	FxfCreat  = 0x00000008
	FxfTrunc  = 0x00000010
	FxfExcl   = 0x00000020
)
