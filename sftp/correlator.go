package sftp

import (
	"github.com/cornelk/hashmap"

	"github.com/wscp/sftpcore/internal/uerr"
)

// Reservation is a slot claimed for a request's eventual response,
// tracked by message number. Per §4.3/§8, reservations preserve their
// relative order even as earlier ones are satisfied or cancelled:
// cancelling one tombstones its slot rather than shifting the list.
//
// slot holds the frame once it has arrived: a response read out of
// order, while some other reservation is being waited on, is parked
// here rather than discarded, so that every frame whose number matches
// a live reservation lands in that reservation's slot (§8), not just
// the one the current caller happens to be waiting for.
type Reservation struct {
	messageNumber int64
	requestType   byte
	tombstoned    bool
	slot          *Packet
}

// Correlator implements the Request/Response Correlator (§4.3):
// single-threaded, no reader/writer goroutines. One call stack drives
// SendPacket and ReceivePacket; ReserveResponse/UnreserveResponse
// manage an ordered reservation list so the invariants in §8 (ordering
// preserved after removal, tombstones silently consumed, a frame for a
// live reservation always lands in that reservation's slot even when it
// arrives out of order, unmatched frames delivered to the active
// ReceivePacket caller) hold by construction rather than by locking
// discipline.
//
// The reservation lookup table is backed by github.com/cornelk/hashmap,
// the teacher's own direct dependency: single-threaded use doesn't
// strictly require lock freedom, but it means a caller that later wants
// to share one Client across goroutines (the teacher's own doc comment
// says a Client may be called concurrently) doesn't need the
// correlator's internals touched.
type Correlator struct {
	ch *SessionChannel

	order []*Reservation
	byNum *hashmap.Map[int64, *Reservation]
}

// NewCorrelator builds a Correlator driving ch.
func NewCorrelator(ch *SessionChannel) *Correlator {
	return &Correlator{
		ch:    ch,
		byNum: hashmap.New[int64, *Reservation](),
	}
}

// ReserveResponse claims a slot for p's message number before p is
// sent, preserving submission order in the reservation list.
func (c *Correlator) ReserveResponse(p *Packet) *Reservation {
	r := &Reservation{messageNumber: p.MessageNumber(), requestType: p.Type()}
	c.order = append(c.order, r)
	c.byNum.Set(r.messageNumber, r)
	return r
}

// UnreserveResponse cancels a reservation without disturbing the order
// of the others: the slot is tombstoned in place. The entry stays in
// both the lookup table and the ordered list until its frame actually
// arrives — only then is it forgotten — so a late reply is recognized
// and silently dropped rather than mistaken for an unmatched frame.
func (c *Correlator) UnreserveResponse(r *Reservation) {
	r.tombstoned = true
}

// SendPacket reserves a response slot, then writes p.
func (c *Correlator) SendPacket(p *Packet) (*Reservation, error) {
	r := c.ReserveResponse(p)
	if err := c.ch.Send(p); err != nil {
		c.UnreserveResponse(r)
		return nil, err
	}
	return r, nil
}

// ReceivePacket reads frames off the wire until one is not claimed by
// any live reservation. VERSION and INIT frames (no message number) are
// always returned directly. A frame matching a tombstoned reservation
// is consumed and dropped. A frame matching a live reservation other
// than "whichever one ReceivePacket itself is satisfying" is buffered
// into that reservation's slot (§8's correlator invariant) rather than
// returned here or discarded, and reading continues; its eventual
// consumer retrieves it via ReceiveResponse. Only a frame matching no
// reservation at all — truly unmatched — is returned to the caller.
func (c *Correlator) ReceivePacket() (*Packet, error) {
	for {
		p, err := c.ch.Receive()
		if err != nil {
			return nil, err
		}
		if p.MessageNumber() == noMessageNumber {
			return p, nil
		}
		r, ok := c.byNum.Get(p.MessageNumber())
		if !ok {
			return p, nil
		}
		if r.tombstoned {
			c.forget(r)
			continue
		}
		r.slot = p
	}
}

// ReceiveResponse returns the frame satisfying reservation r: either
// one already buffered in r's slot by an earlier, unrelated read, or
// the next frame off the wire that matches it. A frame read for some
// other still-live reservation found out of order ahead of r is parked
// in that reservation's own slot rather than discarded, per §8's
// correlator invariant — it is not lost, just not r's. A frame that
// matches no reservation at all is a ProtocolError.
func (c *Correlator) ReceiveResponse(r *Reservation) (*Packet, error) {
	if r.tombstoned {
		return nil, uerr.Chainf(nil, "sftp: receive on unreserved response")
	}
	if r.slot != nil {
		p := r.slot
		r.slot = nil
		c.forget(r)
		return p, nil
	}
	for {
		p, err := c.ch.Receive()
		if err != nil {
			return nil, err
		}
		if p.MessageNumber() == r.messageNumber {
			c.forget(r)
			return p, nil
		}
		if other, ok := c.byNum.Get(p.MessageNumber()); ok {
			if other.tombstoned {
				c.forget(other)
				continue
			}
			other.slot = p
			continue
		}
		// a reply whose message number matches no outstanding request is
		// a fatal protocol violation.
		return nil, newProtocolError("reply number %d matches no outstanding request", p.MessageNumber())
	}
}

// forget removes r from both the lookup table and the ordered list,
// preserving the relative order of what remains.
func (c *Correlator) forget(r *Reservation) {
	c.byNum.Del(r.messageNumber)
	for i, o := range c.order {
		if o == r {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Pending reports how many reservations are still outstanding,
// tombstoned ones included until their frame arrives.
func (c *Correlator) Pending() int { return len(c.order) }
