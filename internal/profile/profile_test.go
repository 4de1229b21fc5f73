package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
	}{
		{"empty name", Profile{PeerID: 0, Name: "", Color: 0x000000}},
		{"short name", Profile{PeerID: 1, Name: "bob", Color: 0x00ff00}},
		{"max name", Profile{PeerID: 255, Name: "0123456789012345678901234567890ab", Color: 0xffffff}}, // 33 chars, truncated to 32
		{"exact max", Profile{PeerID: 3, Name: "01234567890123456789012345678901", Color: 0x7aa2f7}},   // exactly 32 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := tt.p.Encode()
			require.Len(t, enc[:], WireSize)
			got, err := Decode(enc[:])
			require.NoError(t, err)

			wantName := tt.p.Name
			if len(wantName) > MaxNameLen {
				wantName = wantName[:MaxNameLen]
			}
			assert.Equal(t, tt.p.PeerID, got.PeerID)
			assert.Equal(t, wantName, got.Name)
			assert.Equal(t, tt.p.Color, got.Color)
		})
	}
}

func TestProfile_DecodeShortPayload(t *testing.T) {
	_, err := Decode(make([]byte, WireSize-1))
	assert.Error(t, err)
}
