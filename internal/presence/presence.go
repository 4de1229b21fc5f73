// Package presence implements the collab layer's continuously-updated
// per-peer state: cursor position, editor mode, and open file. Presence is
// last-writer-wins per peer -- there is no CRDT merge, by design (see
// spec.md Non-goals).
package presence

import (
	"encoding/binary"
	"fmt"
)

// Mode is the host editor's mode at the moment presence was captured.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeVisual
	ModeCommand
	ModeReplace
)

// MaxFileNameLen bounds the variable-length file name field.
const MaxFileNameLen = 256

// headerSize is the fixed portion of the wire form: peer_id(1) + mode(1)
// + row(4) + col(4) + file_name_len(2) = 12 bytes.
const headerSize = 1 + 1 + 4 + 4 + 2

// Presence is one peer's cursor/mode/file snapshot. Row and Col are
// 1-based, as delivered by the host editor's position/virtcol.
type Presence struct {
	PeerID   uint8
	Mode     Mode
	Row      int32
	Col      int32
	FileName string
}

// Encode serializes p as headerSize + len(FileName) bytes. FileName is
// truncated to MaxFileNameLen.
func (p Presence) Encode() []byte {
	name := []byte(p.FileName)
	if len(name) > MaxFileNameLen {
		name = name[:MaxFileNameLen]
	}
	buf := make([]byte, headerSize+len(name))
	buf[0] = p.PeerID
	buf[1] = uint8(p.Mode)
	binary.BigEndian.PutUint32(buf[2:6], uint32(p.Row))
	binary.BigEndian.PutUint32(buf[6:10], uint32(p.Col))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(name)))
	copy(buf[headerSize:], name)
	return buf
}

// Decode parses a presence payload. It errors only on a buffer too short
// to hold its declared file name length; an unknown Mode value decodes
// without error (callers that care can validate the range themselves).
func Decode(b []byte) (Presence, error) {
	if len(b) < headerSize {
		return Presence{}, fmt.Errorf("presence: short payload (%d bytes, want at least %d)", len(b), headerSize)
	}
	nameLen := int(binary.BigEndian.Uint16(b[10:12]))
	if len(b) < headerSize+nameLen {
		return Presence{}, fmt.Errorf("presence: truncated file name (declared %d, have %d)", nameLen, len(b)-headerSize)
	}
	return Presence{
		PeerID:   b[0],
		Mode:     Mode(b[1]),
		Row:      int32(binary.BigEndian.Uint32(b[2:6])),
		Col:      int32(binary.BigEndian.Uint32(b[6:10])),
		FileName: string(b[headerSize : headerSize+nameLen]),
	}, nil
}
