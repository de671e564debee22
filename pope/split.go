package pope

import (
	"math/rand"

	"github.com/dsroche/pope/oracle"
)

// sampleKeys draws l distinct keys at random from buf without
// replacement, grounded in the pivot-sampling design note: the caller
// supplies the PRNG so pivot selection, and therefore tree shape, is
// reproducible under test.
func sampleKeys(rng *rand.Rand, buf []kvPair, l int) [][]byte {
	perm := rng.Perm(len(buf))
	out := make([][]byte, l)
	for i := 0; i < l; i++ {
		out[i] = buf[perm[i]].Key
	}
	return out
}

// splitLeaf drains keys through leaf idx, repeatedly performing an
// L-way split while the leaf both still has keys to route and remains
// oversized. The "while keys remain and size() > L" condition (rather
// than just "while size() > L") is deliberate: a leaf that's still
// oversized but has no more pending search keys is left for the next
// operation that visits it, instead of being split just for its own
// sake.
func (t *Tree) splitLeaf(idx int, keys [][]byte) ([]splitResult, error) {
	var result []splitResult

	for len(keys) > 0 && t.size(idx) > t.oracle.L {
		n := t.arena.Get(idx)

		needles := make([]entry, 0, len(n.buffer)+len(keys))
		for _, p := range n.buffer {
			needles = append(needles, entry{key: p.Key, val: p.Val})
		}
		for _, k := range keys {
			needles = append(needles, entry{key: k, isSearch: true})
		}
		sample := sampleKeys(t.rng, n.buffer, t.oracle.L)

		promoted, idxs, err := oracle.PartitionSort(t.oracle, needles, sample, entryKey, oracle.Identity)
		if err != nil {
			return nil, err
		}

		buckets := make([][]kvPair, len(promoted)+1)
		keyBuckets := make([][][]byte, len(promoted)+1)
		for i, e := range needles {
			b := idxs[i]
			if e.isSearch {
				keyBuckets[b] = append(keyBuckets[b], e.key)
			} else {
				buckets[b] = append(buckets[b], kvPair{Key: e.key, Val: e.val})
			}
		}
		// While the last data bucket is empty (no buffered pair lies
		// past the largest remaining pivot), fold its search keys into
		// the bucket before it and drop that pivot.
		for len(buckets) > 1 && len(buckets[len(buckets)-1]) == 0 {
			last := len(buckets) - 1
			buckets = buckets[:last]
			keyBuckets[last-1] = append(keyBuckets[last-1], keyBuckets[last]...)
			keyBuckets = keyBuckets[:last]
			promoted = promoted[:len(promoted)-1]
		}
		invariant(len(buckets) == len(keyBuckets) && len(buckets) == len(promoted)+1, "split bucket counts must agree")

		if n.parent == noParent {
			invariant(idx == t.root, "parentless node must be the tree root")
			rootIdx := t.arena.Put(newInternal(noParent, idx))
			t.root = rootIdx
			n.parent = rootIdx
		}
		parent := n.parent

		for i := 0; i < len(buckets)-1; i++ {
			newLeafNode := newLeaf(parent)
			newLeafNode.buffer = buckets[i]
			newIdx := t.arena.Put(newLeafNode)
			t.insertChildLeft(parent, newIdx, promoted[i], idx)
			if len(keyBuckets[i]) > 0 {
				sub, err := t.splitLeaf(newIdx, keyBuckets[i])
				if err != nil {
					return nil, err
				}
				result = append(result, sub...)
			}
		}
		n.buffer = buckets[len(buckets)-1]
		keys = keyBuckets[len(keyBuckets)-1]
	}

	for _, k := range keys {
		result = append(result, splitResult{key: k, leaf: idx})
	}
	return result, nil
}

// splitInternal pushes every pending buffer entry of internal node idx
// down to the appropriate child according to its existing sorted
// separators, then recurses into whichever children received search
// keys. It performs a single Partition round and never needs to sort,
// since sorted is already kept in plaintext order by rebalance.
func (t *Tree) splitInternal(idx int, keys [][]byte) ([]splitResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	n := t.arena.Get(idx)
	invariant(len(n.sorted) >= 1 && len(n.sorted) <= t.oracle.L, "internal node sorted length out of range before split")

	needles := make([]entry, 0, len(n.buffer)+len(keys))
	for _, p := range n.buffer {
		needles = append(needles, entry{key: p.Key, val: p.Val})
	}
	for _, k := range keys {
		needles = append(needles, entry{key: k, isSearch: true})
	}

	idxs, err := oracle.Partition(t.oracle, needles, n.sorted, entryKey, oracle.Identity)
	if err != nil {
		return nil, err
	}

	keyBuckets := make([][][]byte, len(n.sorted)+1)
	for i, e := range needles {
		b := idxs[i]
		if e.isSearch {
			keyBuckets[b] = append(keyBuckets[b], e.key)
		} else {
			child := t.arena.Get(n.children[b])
			child.buffer = append(child.buffer, kvPair{Key: e.key, Val: e.val})
		}
	}
	n.buffer = nil

	// Splitting a child inserts new siblings into n.children, so iterate
	// over a copy taken before any recursion.
	children := append([]int(nil), n.children...)
	var result []splitResult
	for i, child := range children {
		if len(keyBuckets[i]) > 0 {
			sub, err := t.splitNode(child, keyBuckets[i])
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		}
	}
	return result, nil
}

// insertChildLeft inserts newChild immediately to the left of curChild
// under parent, with splitKey as the new separator between them.
func (t *Tree) insertChildLeft(parent, newChild int, splitKey []byte, curChild int) {
	p := t.arena.Get(parent)
	pos := indexOfChild(p.children, curChild)
	invariant(pos >= 0, "curChild not found under parent")
	p.sorted = insertBytesAt(p.sorted, pos, splitKey)
	p.children = insertIntAt(p.children, pos, newChild)
}

// rebalance ensures idx's sorted array has at most L entries,
// splitting off L/2-sized chunks as needed, then recurses on the
// parent. It requires no comparisons: the separator keys themselves
// never need to be re-sorted, only moved.
func (t *Tree) rebalance(idx int) error {
	n := t.arena.Get(idx)
	invariant(n.kind == internalNode, "rebalance called on a non-internal node")
	invariant(len(n.buffer) == 0, "rebalance called with a non-empty buffer")

	l := t.oracle.L
	for len(n.sorted) > 2*l {
		t.splitOff(idx, l/2)
		n = t.arena.Get(idx)
	}
	if len(n.sorted) > l {
		t.splitOff(idx, len(n.sorted)/2)
		n = t.arena.Get(idx)
	}
	if n.parent != noParent {
		if err := t.rebalance(n.parent); err != nil {
			return err
		}
	}
	return nil
}

// splitOff removes the first count elements of idx's sorted/children
// arrays into a new sibling node placed immediately to its left.
func (t *Tree) splitOff(idx, count int) {
	n := t.arena.Get(idx)
	if n.parent == noParent {
		invariant(idx == t.root, "parentless node must be the tree root")
		rootIdx := t.arena.Put(newInternal(noParent, idx))
		t.root = rootIdx
		n.parent = rootIdx
	}

	newNode := &node{
		kind:     internalNode,
		parent:   n.parent,
		sorted:   append([][]byte(nil), n.sorted[:count]...),
		children: append([]int(nil), n.children[:count+1]...),
	}
	newIdx := t.arena.Put(newNode)
	for _, c := range newNode.children {
		t.arena.Get(c).parent = newIdx
	}

	splitKey := n.sorted[count]
	n.sorted = append([][]byte(nil), n.sorted[count+1:]...)
	n.children = append([]int(nil), n.children[count+1:]...)

	t.insertChildLeft(n.parent, newIdx, splitKey, idx)
}
