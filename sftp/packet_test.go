package sftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketScalarRoundTrip(t *testing.T) {
	p := NewPacket()
	p.AppendByte(0x42)
	p.AppendUint32(0xdeadbeef)
	p.AppendInt64(-123456789)
	p.AppendUint64(0xfeedfacecafebeef)
	p.AppendString("hello, sftp")

	p.pos = 0

	b, err := p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)

	u32, err := p.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	i64, err := p.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-123456789), i64)

	u64, err := p.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xfeedfacecafebeef), u64)

	s, err := p.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello, sftp", s)
}

func TestPacketReadPastEndFails(t *testing.T) {
	p := NewPacket()
	p.AppendByte(1)
	p.pos = 0
	_, err := p.ReadByte()
	require.NoError(t, err)
	_, err = p.ReadByte()
	assert.ErrorIs(t, err, errShortPacket)
}

func TestChangeTypeAssignsMonotonicMessageNumbers(t *testing.T) {
	p1 := NewPacket()
	p1.ChangeType(sshFxpStat)
	n1 := p1.MessageNumber()

	p2 := NewPacket()
	p2.ChangeType(sshFxpStat)
	n2 := p2.MessageNumber()

	assert.Greater(t, n2, n1, "message numbers must strictly increase across packets")
	assert.Equal(t, sshFxpStat, int(p1.RequestType()))
	assert.Equal(t, sshFxpStat, int(p2.RequestType()))
}

func TestChangeTypeInitHasNoMessageNumber(t *testing.T) {
	p := NewPacket()
	p.ChangeType(sshFxpInit)
	assert.Equal(t, int64(noMessageNumber), p.MessageNumber())
	assert.Equal(t, 1, p.headerLen())
}

func TestContentLengthInvariant(t *testing.T) {
	p := NewPacket()
	p.ChangeType(sshFxpMkdir)
	p.AppendString("/tmp/dir")

	assert.Equal(t, p.Len()-p.headerLen(), p.ContentLength())
	assert.Equal(t, p.ContentLength(), len(p.Content()))
}

func TestDataUpdatedRecoversHeaderFields(t *testing.T) {
	orig := NewPacket()
	orig.ChangeType(sshFxpRemove)
	orig.AppendString("/tmp/gone")
	wire := append([]byte(nil), orig.Bytes()...)

	read := NewPacket()
	read.data = make([]byte, len(wire))
	copy(read.data, wire)
	require.NoError(t, read.DataUpdated(len(wire)))

	assert.Equal(t, orig.Type(), read.Type())
	assert.Equal(t, orig.MessageNumber(), read.MessageNumber())

	name, err := read.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/gone", name)
}

func TestVersionPacketHasNoMessageNumber(t *testing.T) {
	orig := NewPacket()
	orig.AppendByte(sshFxpVersion)
	orig.AppendUint32(protocolVersion)
	wire := append([]byte(nil), orig.Bytes()...)

	read := NewPacket()
	read.data = make([]byte, len(wire))
	copy(read.data, wire)
	require.NoError(t, read.DataUpdated(len(wire)))

	assert.Equal(t, byte(sshFxpVersion), read.Type())
	assert.Equal(t, int64(noMessageNumber), read.MessageNumber())

	v, err := read.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(protocolVersion), v)
}

func TestAttrsRoundTrip(t *testing.T) {
	in := &FileStat{
		Size:  1 << 20,
		UID:   1000,
		GID:   1000,
		Mode:  0100644,
		Atime: 1700000000,
		Mtime: 1700000100,
		Extended: []StatExtended{
			{ExtType: "foo@example.com", ExtData: "bar"},
		},
	}
	flags := uint32(attrSize | attrUIDGID | attrPermissions | attrACmodTime | attrExtended)

	p := NewPacket()
	p.AppendAttrs(flags, in)
	p.pos = 0

	out, err := p.ReadAttrs()
	require.NoError(t, err)
	assert.Equal(t, in.Size, out.Size)
	assert.Equal(t, in.UID, out.UID)
	assert.Equal(t, in.GID, out.GID)
	assert.Equal(t, in.Mode, out.Mode)
	assert.Equal(t, in.Atime, out.Atime)
	assert.Equal(t, in.Mtime, out.Mtime)
	require.Len(t, out.Extended, 1)
	assert.Equal(t, in.Extended[0], out.Extended[0])
}

func TestAttrsNilWritesOnlyFlags(t *testing.T) {
	p := NewPacket()
	p.AppendAttrs(0, nil)
	assert.Equal(t, 4, p.Len())
}
