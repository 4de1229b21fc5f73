package collab

import (
	"net"

	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
)

// inboundBufSize is the per-peer read buffer. 4 KiB comfortably holds a
// burst of several presence frames between ticks.
const inboundBufSize = 4096

// peer is one connected socket on the server side: its identity, its last
// known presence, and the framing state for its inbound byte stream.
type peer struct {
	conn      net.Conn
	profile   profile.Profile
	presence  presence.Presence
	connected bool

	buf   [inboundBufSize]byte
	wpos  int // write position: bytes [0:wpos] are buffered, undecoded
}

func (p *peer) reset(conn net.Conn) {
	p.conn = conn
	p.profile = profile.Profile{}
	p.presence = presence.Presence{}
	p.connected = true
	p.wpos = 0
}

// appendInbound copies data into the peer's buffer at the write position.
// It silently truncates if the buffer would overflow -- a peer sending
// faster than it can be framed is a misbehaving peer, not a crash.
func (p *peer) appendInbound(data []byte) {
	n := copy(p.buf[p.wpos:], data)
	p.wpos += n
}

// shiftResidual drops the first n decoded bytes, compacting whatever is
// left to the front of the buffer.
func (p *peer) shiftResidual(n int) {
	remaining := copy(p.buf[:], p.buf[n:p.wpos])
	p.wpos = remaining
}
