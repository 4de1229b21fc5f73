package oscscroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FourFields(t *testing.T) {
	r, err := Parse("1;23;0;0")
	require.NoError(t, err)
	assert.Equal(t, Region{Top: 1, Bottom: 23, Left: 0, Right: 0}, r)
}

func TestParse_WrongFieldCount(t *testing.T) {
	_, err := Parse("1;2;3")
	assert.Error(t, err)
}

func TestParse_NonNumericField(t *testing.T) {
	_, err := Parse("1;x;0;0")
	assert.Error(t, err)
}

func TestResolve_ZeroMeansFullExtent(t *testing.T) {
	r := Region{Top: 1, Bottom: 0, Left: 0, Right: 0}
	got := r.Resolve(24, 80)
	assert.Equal(t, Region{Top: 1, Bottom: 24, Left: 0, Right: 80}, got)
}

func TestResolve_NonzeroPreserved(t *testing.T) {
	r := Region{Top: 1, Bottom: 10, Left: 2, Right: 40}
	got := r.Resolve(24, 80)
	assert.Equal(t, r, got)
}
