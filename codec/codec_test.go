package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type segment struct {
	Keys []string  `json:"keys"`
	Lons []float64 `json:"lons"`
	Lats []float64 `json:"lats"`
}

func TestRoundTrip(t *testing.T) {
	in := segment{
		Keys: []string{"berlin", "hamburg"},
		Lons: []float64{13.405, 9.993},
		Lats: []float64{52.52, 53.551},
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out segment
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

// Both codecs emit the same bytes, so a snapshot written with one decodes
// with the other.
func TestCodecsAreByteCompatible(t *testing.T) {
	in := segment{Keys: []string{"lisbon"}, Lons: []float64{-9.139}, Lats: []float64{38.722}}

	std, err := JSON{}.Marshal(in)
	require.NoError(t, err)
	fast, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	assert.Equal(t, std, fast)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	require.NotNil(t, Default)

	c, ok := ByName(Default.Name())
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())
}
