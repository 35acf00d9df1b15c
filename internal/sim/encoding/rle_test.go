package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10, 0xFFFF)

	raw := AppendRLE([]byte{0xAA}, in)
	assert.Equal(t, byte(0xAA), raw[0])

	out, used, err := DecodeRLE(raw[1:], len(in))
	require.NoError(t, err)
	assert.Equal(t, len(raw)-1, used)
	assert.Equal(t, in, out)
}

func TestRLE_StopsAfterN(t *testing.T) {
	raw := AppendRLE(nil, []uint16{4, 4})
	raw = append(raw, 0x7F)
	out, used, err := DecodeRLE(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{4, 4}, out)
	assert.Equal(t, len(raw)-1, used)
}

func TestRLE_Rejects(t *testing.T) {
	cases := map[string][]byte{
		"truncated": AppendRLE(nil, []uint16{1, 1, 1})[:1],
		"overrun":   AppendRLE(nil, []uint16{1, 1, 1, 1}),
		"zero run":  {1, 0},
		"wide id":   {0x80, 0x80, 0x04, 1},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeRLE(raw, 3)
			assert.ErrorIs(t, err, ErrBadRLE)
		})
	}
}
