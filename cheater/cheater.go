// Package cheater provides a plaintext reference index: every key is
// decrypted immediately on insert and held in sorted order, so lookups
// and range searches are ordinary binary search with no comparison
// oracle involved. It exists only to cross-check the POPE and mOPE
// backends against ground truth in tests.
package cheater

import (
	"bytes"
	"sort"

	"github.com/dsroche/pope/cipher"
	"github.com/dsroche/pope/kv"
)

// entry is one decrypted key alongside its ciphertext key and value.
type entry struct {
	plain []byte
	key   []byte
	val   []byte
}

// Index is a sorted-on-read reference index. The zero value is not
// usable; construct one with New.
type Index struct {
	crypt   cipher.Cipher
	sorted  []entry
	pending []entry
}

// New creates an empty Index that decodes ciphertexts with crypt.
func New(crypt cipher.Cipher) *Index {
	return &Index{crypt: crypt}
}

// Insert decodes key and appends (key, val); the decoded plaintext is
// not merged into the sorted run until the next Lookup or RangeSearch.
func (c *Index) Insert(key, val []byte) error {
	plain, err := c.crypt.Decode(key)
	if err != nil {
		return err
	}
	c.pending = append(c.pending, entry{plain: plain, key: key, val: val})
	return nil
}

// flush merges any pending inserts into the sorted run, keeping it
// sorted by plaintext key (a stable merge, so insertion order among
// equal keys is preserved).
func (c *Index) flush() {
	if len(c.pending) == 0 {
		return
	}
	sort.SliceStable(c.pending, func(i, j int) bool {
		return bytes.Compare(c.pending[i].plain, c.pending[j].plain) < 0
	})
	merged := make([]entry, 0, len(c.sorted)+len(c.pending))
	i, j := 0, 0
	for i < len(c.sorted) && j < len(c.pending) {
		if bytes.Compare(c.sorted[i].plain, c.pending[j].plain) <= 0 {
			merged = append(merged, c.sorted[i])
			i++
		} else {
			merged = append(merged, c.pending[j])
			j++
		}
	}
	merged = append(merged, c.sorted[i:]...)
	merged = append(merged, c.pending[j:]...)
	c.sorted = merged
	c.pending = nil
}

func (c *Index) lowerBound(plain []byte) int {
	return sort.Search(len(c.sorted), func(i int) bool {
		return bytes.Compare(c.sorted[i].plain, plain) >= 0
	})
}

// Lookup decodes key and returns the first stored value for it, or
// (nil, false) if absent.
func (c *Index) Lookup(key []byte) ([]byte, bool, error) {
	plain, err := c.crypt.Decode(key)
	if err != nil {
		return nil, false, err
	}
	c.flush()
	ind := c.lowerBound(plain)
	if ind < len(c.sorted) && bytes.Equal(c.sorted[ind].plain, plain) {
		return c.sorted[ind].val, true, nil
	}
	return nil, false, nil
}

// RangeSearch returns every (key, value) pair with key1 <= key < key2
// in plaintext order, matching the shared half-open contract of the
// POPE and mOPE backends.
func (c *Index) RangeSearch(key1, key2 []byte) ([]kv.Pair, error) {
	p1, err := c.crypt.Decode(key1)
	if err != nil {
		return nil, err
	}
	p2, err := c.crypt.Decode(key2)
	if err != nil {
		return nil, err
	}
	c.flush()
	ind1 := c.lowerBound(p1)
	ind2 := c.lowerBound(p2)
	if ind2 < ind1 {
		return nil, nil
	}
	out := make([]kv.Pair, 0, ind2-ind1)
	for _, e := range c.sorted[ind1:ind2] {
		out = append(out, kv.Pair{Key: e.key, Val: e.val})
	}
	return out, nil
}

// Size returns the total number of stored (key, value) pairs.
func (c *Index) Size() int {
	return len(c.sorted) + len(c.pending)
}

// Traverse returns every (key, value) pair, sorted entries first, then
// anything still pending a flush.
func (c *Index) Traverse() []kv.Pair {
	out := make([]kv.Pair, 0, c.Size())
	for _, e := range c.sorted {
		out = append(out, kv.Pair{Key: e.key, Val: e.val})
	}
	for _, e := range c.pending {
		out = append(out, kv.Pair{Key: e.key, Val: e.val})
	}
	return out
}
