package sftp

import (
	"encoding/binary"

	"github.com/wscp/sftpcore/internal/uerr"
)

const errShortPacket = uerr.Const("sftp: packet too short")

// packetAllocDelta is the minimum growth increment for Packet's backing
// buffer, carried from the original TSFTPPacket's SFTP_PACKET_ALLOC_DELTA.
const packetAllocDelta = 256

// noMessageNumber marks a Packet that has not been assigned a message
// number (only INIT, and a freshly-read VERSION, are like this).
const noMessageNumber = -1

// messageCounter_ is the process-wide counter C: every non-INIT packet
// given a type via ChangeType gets message number (C<<8)|T, and C is
// then incremented. A process-wide counter satisfies the SFTP server's
// only real requirement, per-session uniqueness of outstanding request
// numbers, without any per-Client bookkeeping; every Client in the
// process draws its numbers from this one counter.
var messageCounter_ int64

func nextMessageCounter() int64 {
	v := messageCounter_
	messageCounter_++
	return v
}

// Packet is a mutable, growable byte buffer with a read cursor, modeling
// the Packet data type directly. It is used both to build outgoing
// requests (Append* methods) and to walk incoming replies (Read*
// methods, after DataUpdated primes the cursor past the header).
//
// Grounded on original_source/core/SftpFileSystem.cpp's TSFTPPacket: the
// same Add/Get vocabulary, the same doubling-with-minimum-delta growth
// policy, and the same ChangeType header-rewrite semantics.
type Packet struct {
	data          []byte
	pos           int
	typ           byte
	messageNumber int64
}

// NewPacket creates an empty Packet with no type assigned yet.
func NewPacket() *Packet {
	return &Packet{messageNumber: noMessageNumber, typ: 0xff}
}

// ChangeType resets the packet to carry a new request of type t. Unless
// t is SSH_FXP_INIT, a new, strictly increasing message number is
// allocated and appended right after the type byte.
func (p *Packet) ChangeType(t byte) {
	p.pos = 0
	p.data = p.data[:0]
	p.typ = t
	p.AppendByte(t)
	if t != sshFxpInit {
		c := nextMessageCounter()
		p.messageNumber = (c << 8) | int64(t)
		p.AppendUint32(uint32(p.messageNumber))
	} else {
		p.messageNumber = noMessageNumber
	}
}

// DataUpdated primes a Packet that has just been filled with n bytes
// read off the wire: it reads the type, and, unless the type is
// VERSION, the message number, advancing the cursor past the header.
func (p *Packet) DataUpdated(n int) error {
	p.pos = 0
	p.data = p.data[:n]
	t, err := p.ReadByte()
	if err != nil {
		return err
	}
	p.typ = t
	if t != sshFxpVersion {
		num, err := p.ReadUint32()
		if err != nil {
			return err
		}
		p.messageNumber = int64(num)
	} else {
		p.messageNumber = noMessageNumber
	}
	return nil
}

// Type returns the packet's opcode.
func (p *Packet) Type() byte { return p.typ }

// MessageNumber returns the packet's assigned message number, or
// noMessageNumber if none was assigned (INIT, or a just-read VERSION).
func (p *Packet) MessageNumber() int64 { return p.messageNumber }

// RequestType recovers the opcode of the request that produced this
// reply, purely from the message number's low byte, the same trick the
// original TSFTPPacket.GetRequestType plays, needing no side table.
func (p *Packet) RequestType() byte {
	if p.messageNumber == noMessageNumber {
		return sshFxpInit
	}
	return byte(p.messageNumber & 0xff)
}

// Len is the total length of the packet, header included.
func (p *Packet) Len() int { return len(p.data) }

// headerLen is 1 byte for INIT/VERSION, 5 bytes otherwise (type + id).
func (p *Packet) headerLen() int {
	if p.typ == sshFxpInit || p.typ == sshFxpVersion {
		return 1
	}
	return 5
}

// Content returns the payload following the header: content_length =
// total_length - header_length.
func (p *Packet) Content() []byte {
	h := p.headerLen()
	if h > len(p.data) {
		return nil
	}
	return p.data[h:]
}

// ContentLength is len(Content()).
func (p *Packet) ContentLength() int { return len(p.data) - p.headerLen() }

// Bytes returns the full wire representation (header + content), ready
// to be framed and sent by the Session Channel.
func (p *Packet) Bytes() []byte { return p.data }

// NextData exposes the current read cursor, for zero-copy consumption of
// a trailing data block, e.g. the payload of an SSH_FXP_DATA reply.
func (p *Packet) NextData() []byte { return p.data[p.pos:] }

// grow ensures capacity for n more bytes, doubling-or-more with a
// packetAllocDelta-byte minimum, mirroring TSFTPPacket.SetCapacity.
func (p *Packet) grow(n int) {
	need := len(p.data) + n
	if need <= cap(p.data) {
		return
	}
	newCap := cap(p.data) * 2
	if newCap < need+packetAllocDelta {
		newCap = need + packetAllocDelta
	}
	nd := make([]byte, len(p.data), newCap)
	copy(nd, p.data)
	p.data = nd
}

// Reset releases the packet's storage: shrinking to zero releases
// storage, same as the original.
func (p *Packet) Reset() {
	p.data = nil
	p.pos = 0
	p.typ = 0xff
	p.messageNumber = noMessageNumber
}

// --- typed append (encode) ---

func (p *Packet) AppendByte(v byte) {
	p.grow(1)
	p.data = append(p.data, v)
}

func (p *Packet) AppendUint32(v uint32) {
	p.grow(4)
	p.data = binary.BigEndian.AppendUint32(p.data, v)
}

func (p *Packet) AppendInt64(v int64) {
	p.AppendUint32(uint32(v >> 32))
	p.AppendUint32(uint32(v))
}

func (p *Packet) AppendUint64(v uint64) {
	p.AppendInt64(int64(v))
}

func (p *Packet) AppendBytes(b []byte) {
	p.grow(len(b))
	p.data = append(p.data, b...)
}

func (p *Packet) AppendString(s string) {
	p.AppendUint32(uint32(len(s)))
	p.AppendBytes([]byte(s))
}

// AppendAttrs writes the ATTR block: a flags word followed by
// conditional fields in fixed order.
func (p *Packet) AppendAttrs(flags uint32, a *FileStat) {
	p.AppendUint32(flags)
	if a == nil {
		return
	}
	if flags&attrSize != 0 {
		p.AppendUint64(a.Size)
	}
	if flags&attrUIDGID != 0 {
		p.AppendUint32(a.UID)
		p.AppendUint32(a.GID)
	}
	if flags&attrPermissions != 0 {
		p.AppendUint32(a.Mode)
	}
	if flags&attrACmodTime != 0 {
		p.AppendUint32(a.Atime)
		p.AppendUint32(a.Mtime)
	}
	if flags&attrExtended != 0 {
		p.AppendUint32(uint32(len(a.Extended)))
		for _, e := range a.Extended {
			p.AppendString(e.ExtType)
			p.AppendString(e.ExtData)
		}
	}
}

// --- typed read (decode); all advance the cursor ---

func (p *Packet) ReadByte() (byte, error) {
	if p.pos+1 > len(p.data) {
		return 0, errShortPacket
	}
	v := p.data[p.pos]
	p.pos++
	return v, nil
}

func (p *Packet) ReadUint32() (uint32, error) {
	if p.pos+4 > len(p.data) {
		return 0, errShortPacket
	}
	v := binary.BigEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *Packet) ReadInt64() (int64, error) {
	hi, err := p.ReadUint32()
	if err != nil {
		return 0, err
	}
	lo, err := p.ReadUint32()
	if err != nil {
		return 0, err
	}
	return int64(hi)<<32 | int64(lo), nil
}

func (p *Packet) ReadUint64() (uint64, error) {
	v, err := p.ReadInt64()
	return uint64(v), err
}

func (p *Packet) ReadString() (string, error) {
	n, err := p.ReadUint32()
	if err != nil {
		return "", err
	}
	if p.pos+int(n) > len(p.data) {
		return "", errShortPacket
	}
	s := string(p.data[p.pos : p.pos+int(n)])
	p.pos += int(n)
	return s, nil
}

func (p *Packet) ReadBytes(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, errShortPacket
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// ReadAttrs decodes the ATTR block at the cursor. Extended attribute
// pairs are read and retained, never silently skipped, unlike the
// original's commented-out TODO.
func (p *Packet) ReadAttrs() (*FileStat, error) {
	flags, err := p.ReadUint32()
	if err != nil {
		return nil, err
	}
	return p.readFileStat(flags)
}

func (p *Packet) readFileStat(flags uint32) (*FileStat, error) {
	var a FileStat
	var err error
	if flags&attrSize != 0 {
		if a.Size, err = p.ReadUint64(); err != nil {
			return nil, err
		}
	}
	if flags&attrUIDGID != 0 {
		if a.UID, err = p.ReadUint32(); err != nil {
			return nil, err
		}
		if a.GID, err = p.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if flags&attrPermissions != 0 {
		if a.Mode, err = p.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if flags&attrACmodTime != 0 {
		if a.Atime, err = p.ReadUint32(); err != nil {
			return nil, err
		}
		if a.Mtime, err = p.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if flags&attrExtended != 0 {
		count, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		a.Extended = make([]StatExtended, count)
		for i := range a.Extended {
			typ, err := p.ReadString()
			if err != nil {
				return nil, err
			}
			data, err := p.ReadString()
			if err != nil {
				return nil, err
			}
			a.Extended[i] = StatExtended{ExtType: typ, ExtData: data}
		}
	}
	return &a, nil
}

// Remaining is how many unread bytes are left in the packet.
func (p *Packet) Remaining() int { return len(p.data) - p.pos }
