package presence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_RoundTrip(t *testing.T) {
	lengths := []int{0, 1, 50, 255, 256}
	for _, n := range lengths {
		name := strings.Repeat("x", n)
		p := Presence{PeerID: 2, Mode: ModeInsert, Row: 10, Col: 5, FileName: name}
		enc := p.Encode()
		got, err := Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestPresence_DecodeShortPayload(t *testing.T) {
	_, err := Decode(make([]byte, headerSize-1))
	assert.Error(t, err)
}

func TestPresence_DecodeTruncatedFileName(t *testing.T) {
	p := Presence{PeerID: 1, Mode: ModeNormal, Row: 1, Col: 1, FileName: "x.rs"}
	enc := p.Encode()
	_, err := Decode(enc[:len(enc)-1])
	assert.Error(t, err)
}
