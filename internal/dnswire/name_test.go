package dnswire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	for _, name := range []string{"example.com", "www.example.com", "a.b.c.d.example.org"} {
		encoded, err := EncodeName(name)
		require.NoError(t, err)

		c := NewCursor(encoded)
		decoded, err := DecodeName(c)
		require.NoError(t, err)
		assert.Equal(t, name, decoded)
		assert.Equal(t, len(encoded), c.Pos())
	}
}

func TestEncodeNameRoot(t *testing.T) {
	for _, name := range []string{"", "."} {
		b, err := EncodeName(name)
		require.NoError(t, err)
		assert.Equal(t, []byte{0}, b)
	}
}

func TestDecodeNameWithCompressionPointer(t *testing.T) {
	// Message layout: "example.com" at offset 0, then "www" + pointer to
	// offset 0 at the end.
	base, err := EncodeName("example.com")
	require.NoError(t, err)

	msg := append([]byte{}, base...)
	pointerOffset := len(msg)
	msg = append(msg, 3, 'w', 'w', 'w')
	msg = append(msg, 0xC0, 0x00) // pointer to offset 0

	c := NewCursor(msg)
	c.Seek(pointerOffset)
	decoded, err := DecodeName(c)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", decoded)
}

func TestDecodeNameRejectsPointerLoop(t *testing.T) {
	msg := []byte{0xC0, 0x00} // points to itself
	c := NewCursor(msg)
	_, err := DecodeName(c)
	assert.Error(t, err)
}

func TestEncodeNameRejectsLongLabel(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err := EncodeName(string(long) + ".com")
	assert.Error(t, err)
}
