package pope

import (
	"math/rand"

	"github.com/dsroche/pope/internal/arena"
	"github.com/dsroche/pope/kv"
	"github.com/dsroche/pope/logging"
	"github.com/dsroche/pope/oracle"
)

// Tree is the server-side storage backend: lookups, insertions, and
// range searches on encrypted keys, backed by an oracle for order
// comparisons. The zero value is not usable; construct one with New.
type Tree struct {
	oracle *oracle.Oracle
	arena  arena.Arena[node]
	root   int
	rng    *rand.Rand
	log    *logging.Logger
}

// New creates an empty tree bounded by o.L, sampling split pivots from
// rng. Passing a deterministically seeded rng (rand.New(rand.NewSource(seed)))
// makes pivot selection, and therefore the resulting tree shape,
// reproducible in tests.
func New(o *oracle.Oracle, rng *rand.Rand, log *logging.Logger) *Tree {
	if log == nil {
		log = logging.Discard()
	}
	t := &Tree{oracle: o, rng: rng, log: log}
	t.root = t.arena.Put(newLeaf(noParent))
	return t
}

// Insert appends (key, val) to the root's buffer. Nothing is
// compared or moved until a later Split forces a clean-up. It never
// fails; the error return exists only so Tree satisfies index.Index
// alongside the mope and cheater backends, which can fail decoding
// inline.
func (t *Tree) Insert(key, val []byte) error {
	n := t.arena.Get(t.root)
	n.buffer = append(n.buffer, kvPair{Key: key, Val: val})
	t.log.Trace("pope", "insert buffered at root, buffer_len=%d", len(n.buffer))
	return nil
}

// splitResult pairs a routed search key with the leaf it now lives in.
type splitResult struct {
	key  []byte
	leaf int
}

// Split prepares the tree so that a lookup or range search for any of
// the given keys costs O(height): it drains buffers along every path
// those keys would take, pushing pending inserts down and splitting
// any leaf or internal node that overflows. keys must number at most
// o.L; pass inOrder=true when the caller already sorted them in
// plaintext order (as Lookup and RangeSearch do).
func (t *Tree) Split(keys [][]byte, inOrder bool) ([]splitResult, error) {
	release := t.oracle.Acquire()
	defer release()
	return t.doSplit(keys, inOrder)
}

func (t *Tree) doSplit(keys [][]byte, inOrder bool) ([]splitResult, error) {
	if len(keys) > t.oracle.L {
		return nil, oracle.ErrBoundViolation
	}
	work := keys
	if !inOrder && len(keys) > 1 {
		sorted, err := oracle.Sort(t.oracle, keys, oracle.Identity)
		if err != nil {
			return nil, err
		}
		work = sorted
	}
	results, err := t.splitNode(t.root, work)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	for _, r := range results {
		n := t.arena.Get(r.leaf)
		if n.parent != noParent && !seen[n.parent] {
			seen[n.parent] = true
			if err := t.rebalance(n.parent); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

// splitNode dispatches to the leaf or internal split routine.
func (t *Tree) splitNode(idx int, keys [][]byte) ([]splitResult, error) {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		return t.splitLeaf(idx, keys)
	}
	return t.splitInternal(idx, keys)
}

// Lookup returns the value for key, or (nil, false) if it's absent.
func (t *Tree) Lookup(key []byte) ([]byte, bool, error) {
	release := t.oracle.Acquire()
	defer release()

	results, err := t.doSplit([][]byte{key}, true)
	if err != nil {
		return nil, false, err
	}
	invariant(len(results) == 1, "Lookup split must return exactly one leaf")
	leaf := results[0].leaf

	n := t.arena.Get(leaf)
	idxs, err := oracle.Find(t.oracle, [][]byte{key}, n.buffer, oracle.Identity, kvKey)
	if err != nil {
		return nil, false, err
	}
	if idxs[0] < 0 {
		return nil, false, nil
	}
	return n.buffer[idxs[0]].Val, true, nil
}

// Size returns the total number of (key, value) pairs stored anywhere
// in the tree, buffered or sorted.
func (t *Tree) Size() int {
	return t.size(t.root)
}

func (t *Tree) size(idx int) int {
	n := t.arena.Get(idx)
	total := len(n.buffer)
	for _, c := range n.children {
		total += t.size(c)
	}
	return total
}

// Height returns the number of internal levels above the leaves (0 for
// a tree that is just a single leaf).
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

// NumNodes returns the total number of leaf and internal nodes.
func (t *Tree) NumNodes() int {
	return t.numNodes(t.root)
}

func (t *Tree) numNodes(idx int) int {
	n := t.arena.Get(idx)
	total := 1
	for _, c := range n.children {
		total += t.numNodes(c)
	}
	return total
}

// Traverse returns every (key, value) pair in the tree, in no
// particular order: it is a raw structural walk that performs no
// comparisons and therefore reveals nothing new to the oracle.
func (t *Tree) Traverse() []kv.Pair {
	var out []kv.Pair
	t.traverseInto(t.root, &out)
	return out
}

func (t *Tree) traverseInto(idx int, out *[]kv.Pair) {
	n := t.arena.Get(idx)
	for _, p := range n.buffer {
		*out = append(*out, kv.Pair{Key: p.Key, Val: p.Val})
	}
	for _, c := range n.children {
		t.traverseInto(c, out)
	}
}
