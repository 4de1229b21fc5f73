package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	f1 := Encode(TypeJoin, []byte("hello"))
	f2 := Encode(TypePresence, []byte{1, 2, 3, 4})
	f3 := Encode(TypePeerLeft, []byte{7})

	stream := append(append(append([]byte{}, f1...), f2...), f3...)

	frames, consumed := Decode(stream)
	require.Equal(t, len(stream), consumed)
	require.Len(t, frames, 3)
	assert.Equal(t, TypeJoin, frames[0].Type)
	assert.Equal(t, []byte("hello"), frames[0].Payload)
	assert.Equal(t, TypePresence, frames[1].Type)
	assert.Equal(t, []byte{1, 2, 3, 4}, frames[1].Payload)
	assert.Equal(t, TypePeerLeft, frames[2].Type)
	assert.Equal(t, []byte{7}, frames[2].Payload)
}

func TestDecode_ShortFrameWaits(t *testing.T) {
	full := Encode(TypeJoin, []byte("abcdef"))
	frames, consumed := Decode(full[:4]) // header + 1 payload byte
	assert.Empty(t, frames)
	assert.Zero(t, consumed)
}

func TestDecode_ArbitraryChunking(t *testing.T) {
	var msgs [][]byte
	for i := 0; i < 20; i++ {
		msgs = append(msgs, Encode(Type(i%2+1), []byte{byte(i), byte(i * 2)}))
	}
	var stream []byte
	for _, m := range msgs {
		stream = append(stream, m...)
	}

	chunkSizes := []int{1, 2, 3, 5, 7, 11}
	for _, cs := range chunkSizes {
		var buf []byte
		var got []Frame
		for off := 0; off < len(stream); off += cs {
			end := off + cs
			if end > len(stream) {
				end = len(stream)
			}
			buf = append(buf, stream[off:end]...)
			frames, consumed := Decode(buf)
			got = append(got, frames...)
			buf = buf[consumed:]
		}
		require.Len(t, got, len(msgs), "chunk size %d", cs)
		for i, f := range got {
			assert.Equal(t, Type(i%2+1), f.Type, "chunk size %d msg %d", cs, i)
			assert.Equal(t, []byte{byte(i), byte(i * 2)}, f.Payload, "chunk size %d msg %d", cs, i)
		}
	}
}
