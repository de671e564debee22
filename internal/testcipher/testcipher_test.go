package testcipher

import (
	"testing"

	"github.com/dsroche/pope/cipher"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c := New([]byte("k1"))
	ct, err := c.Encode([]byte("hello"))
	require.NoError(t, err)
	require.NotEqual(t, []byte("hello"), ct)

	pt, err := c.Decode(ct)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pt)
}

func TestDeterministic(t *testing.T) {
	c := New([]byte("k1"))
	a, _ := c.Encode([]byte("same"))
	b, _ := c.Encode([]byte("same"))
	require.Equal(t, a, b)
}

func TestWrongKeyRejected(t *testing.T) {
	c1 := New([]byte("k1"))
	c2 := New([]byte("k2"))
	ct, _ := c1.Encode([]byte("hello"))
	_, err := c2.Decode(ct)
	require.ErrorIs(t, err, cipher.ErrBadCiphertext)
}

func TestDefaultKey(t *testing.T) {
	c := New(nil)
	ct, err := c.Encode([]byte("x"))
	require.NoError(t, err)
	pt, err := c.Decode(ct)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), pt)
}
