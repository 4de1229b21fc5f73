// Package profile implements the collab layer's identity record: a name,
// a display color, and a peer id assigned by the server on join. Username
// and color lookup live in the host application; this package only
// carries the already-resolved record across the wire.
package profile

import (
	"encoding/binary"
	"fmt"
)

// WireSize is the fixed-width encoded form: peer_id(1) + name_len(1) +
// name(32, padded) + color(4).
const WireSize = 1 + 1 + 32 + 4

// MaxNameLen is the largest name the 32-byte padded field can hold.
const MaxNameLen = 32

// Profile is a peer's identity: display name, 24-bit RGB color, and the
// peer id the server assigns on join (0 before assignment, and reserved
// for the host).
type Profile struct {
	PeerID uint8
	Name   string
	Color  uint32 // low 24 bits are R<<16 | G<<8 | B
}

// Encode serializes p into its 38-byte wire form. Names longer than
// MaxNameLen are truncated.
func (p Profile) Encode() [WireSize]byte {
	var buf [WireSize]byte
	name := []byte(p.Name)
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	buf[0] = p.PeerID
	buf[1] = uint8(len(name))
	copy(buf[2:2+MaxNameLen], name)
	binary.BigEndian.PutUint32(buf[34:38], p.Color)
	return buf
}

// Decode parses a 38-byte wire form. It returns an error only if b is
// shorter than WireSize; a malformed name_len is clamped rather than
// rejected, matching the protocol's "drop, don't tear down" posture for
// bad payloads.
func Decode(b []byte) (Profile, error) {
	if len(b) < WireSize {
		return Profile{}, fmt.Errorf("profile: short payload (%d bytes, want %d)", len(b), WireSize)
	}
	nameLen := int(b[1])
	if nameLen > MaxNameLen {
		nameLen = MaxNameLen
	}
	return Profile{
		PeerID: b[0],
		Name:   string(b[2 : 2+nameLen]),
		Color:  binary.BigEndian.Uint32(b[34:38]),
	}, nil
}
