package pope

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/dsroche/pope/internal/testcipher"
	"github.com/dsroche/pope/oracle"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, l int) (*Tree, *testcipher.Cipher) {
	t.Helper()
	c := testcipher.New([]byte("k"))
	o := oracle.New(c, l, nil)
	rng := rand.New(rand.NewSource(1))
	return New(o, rng, nil), c
}

func enc(t *testing.T, c *testcipher.Cipher, s string) []byte {
	t.Helper()
	ct, err := c.Encode([]byte(s))
	require.NoError(t, err)
	return ct
}

func insertLetters(t *testing.T, tree *Tree, c *testcipher.Cipher, letters string) {
	t.Helper()
	for _, r := range letters {
		k := string(r)
		require.NoError(t, tree.Insert(enc(t, c, k), enc(t, c, "val-"+k)))
	}
}

func TestLookupTinyAlphabet(t *testing.T) {
	tree, c := newTestTree(t, 5)
	insertLetters(t, tree, c, "dbfaeghijc")

	for _, r := range "abcdefghij" {
		k := string(r)
		val, ok, err := tree.Lookup(enc(t, c, k))
		require.NoError(t, err)
		require.True(t, ok, "expected key %q to be found", k)
		pt, err := c.Decode(val)
		require.NoError(t, err)
		require.Equal(t, "val-"+k, string(pt))
	}
}

func TestLookupMissingKey(t *testing.T) {
	tree, c := newTestTree(t, 5)
	insertLetters(t, tree, c, "abc")

	_, ok, err := tree.Lookup(enc(t, c, "z"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRangeSearchOnLetters(t *testing.T) {
	tree, c := newTestTree(t, 3)
	insertLetters(t, tree, c, "jihgfedcba")

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

func TestRangeSearchEmptyRange(t *testing.T) {
	tree, c := newTestTree(t, 3)
	insertLetters(t, tree, c, "abcdefg")

	got, err := tree.RangeSearch(enc(t, c, "x"), enc(t, c, "y"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRangeSearchFullSpan(t *testing.T) {
	tree, c := newTestTree(t, 3)
	insertLetters(t, tree, c, "cadbfe")

	got, err := tree.RangeSearch(enc(t, c, "a"), enc(t, c, "g"))
	require.NoError(t, err)
	require.Len(t, got, 6)
}

func TestSizeAndTraverseAfterManyInserts(t *testing.T) {
	tree, c := newTestTree(t, 4)
	letters := "thequickbrownfoxjumpsoverthelazydog"
	for _, r := range letters {
		require.NoError(t, tree.Insert(enc(t, c, string(r)+string(rune(r))), enc(t, c, "v")))
	}
	require.Equal(t, len(letters), tree.Size())
	require.Len(t, tree.Traverse(), len(letters))
}

func TestDuplicateKeysBothRetrievable(t *testing.T) {
	tree, c := newTestTree(t, 3)
	insertLetters(t, tree, c, "ab")
	require.NoError(t, tree.Insert(enc(t, c, "a"), enc(t, c, "second-a")))

	require.Equal(t, 3, tree.Size())
	got, err := tree.RangeSearch(enc(t, c, "a"), enc(t, c, "b"))
	require.NoError(t, err)
	require.Len(t, got, 2)
}
