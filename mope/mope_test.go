package mope

import (
	"sort"
	"testing"

	"github.com/dsroche/pope/internal/testcipher"
	"github.com/dsroche/pope/oracle"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, maxlen int) (*Tree, *testcipher.Cipher) {
	t.Helper()
	c := testcipher.New([]byte("k"))
	o := oracle.New(c, maxlen+4, nil)
	return New(o, maxlen, nil), c
}

func enc(t *testing.T, c *testcipher.Cipher, s string) []byte {
	t.Helper()
	ct, err := c.Encode([]byte(s))
	require.NoError(t, err)
	return ct
}

func TestLookupOnEmptyTree(t *testing.T) {
	tree, c := newTestTree(t, 4)
	_, ok, err := tree.Lookup(enc(t, c, "a"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertAndLookupMonotone(t *testing.T) {
	tree, c := newTestTree(t, 4)
	letters := "abcdefghijklmnopqrstuvwxyz"
	for _, r := range letters {
		require.NoError(t, tree.Insert(enc(t, c, string(r)), enc(t, c, "v-"+string(r))))
	}
	for _, r := range letters {
		k := string(r)
		val, ok, err := tree.Lookup(enc(t, c, k))
		require.NoError(t, err)
		require.True(t, ok, "key %q", k)
		pt, err := c.Decode(val)
		require.NoError(t, err)
		require.Equal(t, "v-"+k, string(pt))
	}
}

func TestInsertOutOfOrderStillEncodesInPlaintextOrder(t *testing.T) {
	tree, c := newTestTree(t, 3)
	order := "mzaqfxbcdeytuvwnopghijkrsl"
	for _, r := range order {
		require.NoError(t, tree.Insert(enc(t, c, string(r)), enc(t, c, "v")))
	}

	traversed := tree.Traverse()
	var plain []string
	for _, kv := range traversed {
		pt, err := c.Decode(kv.Key)
		require.NoError(t, err)
		plain = append(plain, string(pt))
	}
	sorted := append([]string(nil), plain...)
	sort.Strings(sorted)
	require.Equal(t, sorted, plain)
}

func TestRangeSearchHalfOpen(t *testing.T) {
	tree, c := newTestTree(t, 3)
	for _, r := range "jihgfedcba" {
		require.NoError(t, tree.Insert(enc(t, c, string(r)), enc(t, c, "v")))
	}

	got, err := tree.RangeSearch(enc(t, c, "c"), enc(t, c, "f"))
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
	tree, c := newTestTree(t, 3)
	for _, r := range "abcdef" {
		require.NoError(t, tree.Insert(enc(t, c, string(r)), enc(t, c, "v")))
	}
	got, err := tree.RangeSearch(enc(t, c, "x"), enc(t, c, "y"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDuplicateInsertsShareEncodingBucket(t *testing.T) {
	tree, c := newTestTree(t, 3)
	require.NoError(t, tree.Insert(enc(t, c, "a"), enc(t, c, "first")))
	require.NoError(t, tree.Insert(enc(t, c, "a"), enc(t, c, "second")))
	require.NoError(t, tree.Insert(enc(t, c, "b"), enc(t, c, "only")))

	require.Equal(t, 3, tree.Size())
	got, err := tree.RangeSearch(enc(t, c, "a"), enc(t, c, "b"))
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestManyInsertsPreserveSizeAndOrder(t *testing.T) {
	tree, c := newTestTree(t, 4)
	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog"}
	for _, w := range words {
		require.NoError(t, tree.Insert(enc(t, c, w), enc(t, c, "v")))
	}
	require.Equal(t, len(words), tree.Size())

	traversed := tree.Traverse()
	require.Len(t, traversed, len(words))
	var plain []string
	for _, kv := range traversed {
		pt, err := c.Decode(kv.Key)
		require.NoError(t, err)
		plain = append(plain, string(pt))
	}
	sorted := append([]string(nil), plain...)
	sort.Strings(sorted)
	require.Equal(t, sorted, plain)
}
