package mope

import (
	"sort"

	"github.com/dsroche/pope/internal/arena"
	"github.com/dsroche/pope/kv"
	"github.com/dsroche/pope/logging"
	"github.com/dsroche/pope/oracle"
)

// Tree is the mOPE server-side index: a balanced tree of ciphertext
// keys, each assigned a mutable integer encoding, plus a flat sorted
// index (encodings/data) of those encodings for O(log n) range scans.
// The zero value is not usable; construct one with New.
type Tree struct {
	oracle *oracle.Oracle
	arena  arena.Arena[node]
	root   int
	maxlen int
	log    *logging.Logger

	encodings []int64
	data      map[int64][]kv.Pair
}

// New creates an empty tree. maxlen bounds the number of keys held
// directly in any one node (Popa et al.'s mutable OPE scheme uses 4 by
// default).
func New(o *oracle.Oracle, maxlen int, log *logging.Logger) *Tree {
	if log == nil {
		log = logging.Discard()
	}
	t := &Tree{oracle: o, maxlen: maxlen, log: log, data: make(map[int64][]kv.Pair)}
	t.root = t.arena.Put(newLeaf(noParent, 0, tuple{}, tuple{}))
	return t
}

// tuptoval folds an encoding tuple into a single comparable integer,
// treating the tuple as digits of a mixed-radix number with base
// maxlen+1 via a Horner-style fold.
func (t *Tree) tuptoval(tup tuple) int64 {
	var res int64
	power := int64(1)
	for _, x := range tup {
		res *= power
		res += int64(x)
		power = int64(t.maxlen + 1)
	}
	return res
}

// searchEncodings returns the insertion point for val in t.encodings.
func (t *Tree) searchEncodings(val int64) int {
	return sort.Search(len(t.encodings), func(i int) bool { return t.encodings[i] >= val })
}

// Encode computes the OPE encoding of key. If insert is true and key
// is not already present, it is added to the tree and its encoding is
// newly assigned; otherwise nothing is modified and the key's own
// encoding is returned if present, or else the encoding of the slot
// that follows it. It returns the encoding value, its position in
// the flat sorted index, and whether key was already present.
func (t *Tree) Encode(key []byte, insert bool) (val int64, ind int, found bool, err error) {
	release := t.oracle.Acquire()
	defer release()

	var updates []tupUpdate
	restup, found, err := t.nodeEncode(t.root, key, insert, &updates)
	if err != nil {
		return 0, 0, false, err
	}
	res := t.tuptoval(restup)

	if insert && !found {
		type rename struct {
			newVal int64
			rows   []kv.Pair
		}
		var renames []rename
		upinds := make([]int, len(updates))
		for i, u := range updates {
			oldVal := t.tuptoval(u.old)
			upinds[i] = t.searchEncodings(oldVal)
			invariant(upinds[i] < len(t.encodings) && t.encodings[upinds[i]] == oldVal, "encoding rename target must exist")
		}
		for i, u := range updates {
			oldVal, newVal := t.tuptoval(u.old), t.tuptoval(u.new)
			t.encodings[upinds[i]] = newVal
			renames = append(renames, rename{newVal, t.data[oldVal]})
			delete(t.data, oldVal)
		}
		for _, r := range renames {
			t.data[r.newVal] = r.rows
		}
		ind = t.searchEncodings(res)
		invariant(ind == len(t.encodings) || t.encodings[ind] != res, "newly inserted encoding must not collide")
		t.encodings = append(t.encodings, 0)
		copy(t.encodings[ind+1:], t.encodings[ind:])
		t.encodings[ind] = res
	} else {
		ind = t.searchEncodings(res)
		invariant(len(updates) == 0, "a non-inserting Encode must not produce renames")
	}
	return res, ind, found, nil
}

// Insert adds (key, val); if key was already present, val is appended
// alongside any prior values stored under that same key.
func (t *Tree) Insert(key, val []byte) error {
	enc, _, _, err := t.Encode(key, true)
	if err != nil {
		return err
	}
	t.data[enc] = append(t.data[enc], kv.Pair{Key: key, Val: val})
	t.log.Trace("mope", "insert encoding=%d bucket_len=%d", enc, len(t.data[enc]))
	return nil
}

// Lookup returns the first value stored under key, or (nil, false) if
// key is absent.
func (t *Tree) Lookup(key []byte) ([]byte, bool, error) {
	enc, _, found, err := t.Encode(key, false)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	rows := t.data[enc]
	invariant(len(rows) > 0, "a found encoding must have at least one stored row")
	return rows[0].Val, true, nil
}

// RangeSearch returns every (key, value) pair with key1 <= key < key2
// in plaintext order, the same half-open convention the encode walk's
// bisect-left positions already produce.
func (t *Tree) RangeSearch(key1, key2 []byte) ([]kv.Pair, error) {
	_, ind1, _, err := t.Encode(key1, false)
	if err != nil {
		return nil, err
	}
	_, ind2, _, err := t.Encode(key2, false)
	if err != nil {
		return nil, err
	}
	var out []kv.Pair
	for ii := ind1; ii < ind2; ii++ {
		out = append(out, t.data[t.encodings[ii]]...)
	}
	return out, nil
}

// Size returns the total number of (key, value) pairs stored.
func (t *Tree) Size() int {
	total := 0
	for _, rows := range t.data {
		total += len(rows)
	}
	return total
}

// Traverse returns every (key, value) pair in plaintext order.
func (t *Tree) Traverse() []kv.Pair {
	var out []kv.Pair
	for _, enc := range t.encodings {
		out = append(out, t.data[enc]...)
	}
	return out
}

// Height returns the tree's height (0 for a single leaf).
func (t *Tree) Height() int {
	return t.height(t.root)
}

func (t *Tree) height(idx int) int {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		return 0
	}
	h := t.height(n.children[0])
	for _, c := range n.children[1:] {
		invariant(t.height(c) == h, "all children of an internal node must share height")
	}
	return h + 1
}
