package cheater

import (
	"sort"
	"testing"

	"github.com/dsroche/pope/internal/testcipher"
	"github.com/stretchr/testify/require"
)

func enc(t *testing.T, c *testcipher.Cipher, s string) []byte {
	t.Helper()
	ct, err := c.Encode([]byte(s))
	require.NoError(t, err)
	return ct
}

func TestInsertAndLookup(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	for _, r := range "dbfaeghijc" {
		require.NoError(t, ch.Insert(enc(t, c, string(r)), enc(t, c, "v-"+string(r))))
	}
	for _, r := range "abcdefghij" {
		k := string(r)
		val, ok, err := ch.Lookup(enc(t, c, k))
		require.NoError(t, err)
		require.True(t, ok)
		pt, err := c.Decode(val)
		require.NoError(t, err)
		require.Equal(t, "v-"+k, string(pt))
	}
}

func TestLookupMissing(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	require.NoError(t, ch.Insert(enc(t, c, "a"), enc(t, c, "v")))
	_, ok, err := ch.Lookup(enc(t, c, "z"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRangeSearchHalfOpen(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	for _, r := range "jihgfedcba" {
		require.NoError(t, ch.Insert(enc(t, c, string(r)), enc(t, c, "v")))
	}
	got, err := ch.RangeSearch(enc(t, c, "c"), enc(t, c, "f"))
	require.NoError(t, err)
	var plain []string
	for _, kv := range got {
		pt, err := c.Decode(kv.Key)
		require.NoError(t, err)
		plain = append(plain, string(pt))
	}
	sort.Strings(plain)
	require.Equal(t, []string{"c", "d", "e"}, plain)
}

func TestRangeSearchEmpty(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	for _, r := range "abc" {
		require.NoError(t, ch.Insert(enc(t, c, string(r)), enc(t, c, "v")))
	}
	got, err := ch.RangeSearch(enc(t, c, "x"), enc(t, c, "y"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDuplicateKeys(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	require.NoError(t, ch.Insert(enc(t, c, "a"), enc(t, c, "first")))
	require.NoError(t, ch.Insert(enc(t, c, "a"), enc(t, c, "second")))
	require.Equal(t, 2, ch.Size())
	got, err := ch.RangeSearch(enc(t, c, "a"), enc(t, c, "b"))
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestTraverseCountsPendingAndFlushed(t *testing.T) {
	c := testcipher.New([]byte("k"))
	ch := New(c)
	require.NoError(t, ch.Insert(enc(t, c, "b"), enc(t, c, "v")))
	_, _, err := ch.Lookup(enc(t, c, "b"))
	require.NoError(t, err)
	require.NoError(t, ch.Insert(enc(t, c, "a"), enc(t, c, "v")))

	require.Len(t, ch.Traverse(), 2)
	require.Equal(t, 2, ch.Size())
}
