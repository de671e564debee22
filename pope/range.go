package pope

import (
	"github.com/dsroche/pope/kv"
	"github.com/dsroche/pope/oracle"
)

// routeKey is either a raw plaintext-order search key (used while
// still at leaf level) or a reference to a child node by arena index
// (used once the range walk has climbed past the leaves and needs to
// locate a former node among its parent's children). Exactly one of
// the two is meaningful at a time: the walk reassigns key1/key2 from
// ciphertexts to node references partway through RangeSearch as it
// climbs toward the common ancestor.
type routeKey struct {
	bytesKey []byte
	child    int
	isChild  bool
}

func byteRouteKey(b []byte) routeKey { return routeKey{bytesKey: b} }
func childRouteKey(idx int) routeKey { return routeKey{child: idx, isChild: true} }

// RangeSearch returns every (key, value) pair with key1 <= key < key2,
// in no particular order.
func (t *Tree) RangeSearch(key1, key2 []byte) ([]kv.Pair, error) {
	release := t.oracle.Acquire()
	defer release()

	results, err := t.doSplit([][]byte{key1, key2}, true)
	if err != nil {
		return nil, err
	}
	invariant(len(results) == 2, "RangeSearch split must return exactly two leaves")
	node1, node2 := results[0].leaf, results[1].leaf

	rk1, rk2 := byteRouteKey(key1), byteRouteKey(key2)
	var out []kv.Pair

	for node1 != node2 {
		r, err := t.rangeRight(node1, rk1)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)

		l, err := t.rangeLeft(node2, rk2)
		if err != nil {
			return nil, err
		}
		out = append(out, l...)

		rk1, rk2 = childRouteKey(node1), childRouteKey(node2)
		node1, node2 = t.arena.Get(node1).parent, t.arena.Get(node2).parent
	}

	mid, err := t.rangeBetween(node1, rk1, rk2)
	if err != nil {
		return nil, err
	}
	return append(out, mid...), nil
}

func (t *Tree) rangeRight(idx int, rk routeKey) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		invariant(!rk.isChild, "leaf rangeRight requires a byte key")
		return t.leafRangeRight(idx, rk.bytesKey)
	}
	invariant(rk.isChild, "internal rangeRight requires a child reference")
	return t.internalRangeRight(idx, rk.child)
}

func (t *Tree) rangeLeft(idx int, rk routeKey) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		invariant(!rk.isChild, "leaf rangeLeft requires a byte key")
		return t.leafRangeLeft(idx, rk.bytesKey)
	}
	invariant(rk.isChild, "internal rangeLeft requires a child reference")
	return t.internalRangeLeft(idx, rk.child)
}

func (t *Tree) rangeBetween(idx int, rk1, rk2 routeKey) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		invariant(!rk1.isChild && !rk2.isChild, "leaf rangeBetween requires byte keys")
		return t.leafRangeBetween(idx, rk1.bytesKey, rk2.bytesKey)
	}
	invariant(rk1.isChild && rk2.isChild, "internal rangeBetween requires child references")
	return t.internalRangeBetween(idx, rk1.child, rk2.child)
}

func toKVs(pairs []kvPair) []kv.Pair {
	out := make([]kv.Pair, len(pairs))
	for i, p := range pairs {
		out[i] = kv.Pair{Key: p.Key, Val: p.Val}
	}
	return out
}

func (t *Tree) leafRangeRight(idx int, key1 []byte) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	sorted, idxs, err := oracle.PartitionSort(t.oracle, [][]byte{key1}, n.buffer, oracle.Identity, kvKey)
	if err != nil {
		return nil, err
	}
	n.buffer = sorted
	return toKVs(n.buffer[idxs[0]:]), nil
}

func (t *Tree) leafRangeLeft(idx int, key2 []byte) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	sorted, idxs, err := oracle.PartitionSort(t.oracle, [][]byte{key2}, n.buffer, oracle.Identity, kvKey)
	if err != nil {
		return nil, err
	}
	n.buffer = sorted
	return toKVs(n.buffer[:idxs[0]]), nil
}

func (t *Tree) leafRangeBetween(idx int, key1, key2 []byte) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	sorted, idxs, err := oracle.PartitionSort(t.oracle, [][]byte{key1, key2}, n.buffer, oracle.Identity, kvKey)
	if err != nil {
		return nil, err
	}
	n.buffer = sorted
	return toKVs(n.buffer[idxs[0]:idxs[1]]), nil
}

func (t *Tree) internalRangeRight(idx, child int) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	pos := indexOfChild(n.children, child)
	invariant(pos >= 0, "child not found under parent in internalRangeRight")
	var out []kv.Pair
	for _, c := range n.children[pos+1:] {
		t.traverseInto(c, &out)
	}
	return out, nil
}

func (t *Tree) internalRangeLeft(idx, child int) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	pos := indexOfChild(n.children, child)
	invariant(pos >= 0, "child not found under parent in internalRangeLeft")
	var out []kv.Pair
	for _, c := range n.children[:pos] {
		t.traverseInto(c, &out)
	}
	return out, nil
}

func (t *Tree) internalRangeBetween(idx, child1, child2 int) ([]kv.Pair, error) {
	n := t.arena.Get(idx)
	pos1 := indexOfChild(n.children, child1)
	pos2 := indexOfChild(n.children, child2)
	invariant(pos1 >= 0 && pos2 >= 0, "child not found under parent in internalRangeBetween")
	var out []kv.Pair
	for _, c := range n.children[pos1+1 : pos2] {
		t.traverseInto(c, &out)
	}
	return out, nil
}
