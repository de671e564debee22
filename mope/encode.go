package mope

import "github.com/dsroche/pope/oracle"

// tupUpdate records that a previously assigned encoding (old) has been
// renumbered to new, so the caller can relocate that encoding's bucket
// in the tree's flat encodings/data index.
type tupUpdate struct {
	old, new tuple
}

// find locates key among n.keys via the oracle, returning its index
// and whether it was found; ind is the insertion point (bisect_left
// semantics) when not found.
func (t *Tree) find(idx int, key []byte) (ind int, found bool, err error) {
	n := t.arena.Get(idx)
	idxs, err := oracle.Find(t.oracle, [][]byte{key}, n.keys, oracle.Identity, oracle.Identity)
	if err != nil {
		return 0, false, err
	}
	if idxs[0] >= 0 {
		return idxs[0], true, nil
	}
	return -1 - idxs[0], false, nil
}

// makeParent ensures idx has a parent, creating a fresh internal root
// above it if it was the tree root, and returns that parent's index.
func (t *Tree) makeParent(idx int) int {
	n := t.arena.Get(idx)
	if n.parent != noParent {
		return n.parent
	}
	invariant(idx == t.root, "parentless node must be the tree root")
	parentIdx := t.arena.Put(newInternal(noParent, 0, nil, concat(tuple{0}, n.suffix), idx))
	t.root = parentIdx
	n.parent = parentIdx
	n.parind = 0
	n.prefix = tuple{0}
	return parentIdx
}

// redoEncs reassigns encs[start:] to their canonical prefix+(i+1)+suffix
// values, recording each change as a tupUpdate, and returns the newly
// inserted slot's encoding (the one whose old value was nil), if any.
func (t *Tree) redoEncs(idx int, updates *[]tupUpdate, start int) tuple {
	n := t.arena.Get(idx)
	var inserted tuple
	for i := start; i < len(n.encs); i++ {
		newEnc := concat(n.prefix, tuple{i + 1}, n.suffix)
		if n.encs[i] == nil {
			invariant(inserted == nil, "at most one newly inserted slot per redoEncs call")
			inserted = newEnc
		} else {
			*updates = append(*updates, tupUpdate{old: n.encs[i], new: newEnc})
		}
		n.encs[i] = newEnc
	}
	return inserted
}

// redoEncsChildren redoes this internal node's own encodings, then
// reindexes children[start:] (parent/prefix/parind) and recurses into
// each, since a split shifts every downstream child's position.
func (t *Tree) redoEncsChildren(idx int, updates *[]tupUpdate, start int) tuple {
	n := t.arena.Get(idx)
	inserted := t.redoEncs(idx, updates, start)
	for i := start; i < len(n.children); i++ {
		c := t.arena.Get(n.children[i])
		c.parent = idx
		c.prefix = concat(n.prefix, tuple{i})
		c.parind = i
		if cins := t.redoAll(n.children[i], updates); cins != nil {
			inserted = cins
		}
	}
	return inserted
}

func (t *Tree) redoAll(idx int, updates *[]tupUpdate) tuple {
	if t.arena.Get(idx).kind == leafNode {
		return t.redoEncs(idx, updates, 0)
	}
	return t.redoEncsChildren(idx, updates, 0)
}

// leafEncode implements Node.LeafNode.encode: locate or insert key,
// splitting this leaf if it overflows maxlen.
func (t *Tree) leafEncode(idx int, key []byte, insert bool, updates *[]tupUpdate) (tuple, bool, error) {
	ind, found, err := t.find(idx, key)
	if err != nil {
		return nil, false, err
	}
	n := t.arena.Get(idx)

	var enc tuple
	switch {
	case insert && !found:
		n.keys = insertBytesAt(n.keys, ind, key)
		n.encs = insertTupAt(n.encs, ind, nil)
		if len(n.keys) > t.maxlen {
			split := t.maxlen / 2
			promotedKey, promotedEnc := n.keys[split], n.encs[split]
			newSibKeys := append([][]byte(nil), n.keys[split+1:]...)
			newSibEncs := append([]tuple(nil), n.encs[split+1:]...)
			parentIdx := t.makeParent(idx)
			sib := newLeaf(parentIdx, 0, nil, n.suffix.clone())
			sib.keys, sib.encs = newSibKeys, newSibEncs
			sibIdx := t.arena.Put(sib)

			n.keys = n.keys[:split]
			n.encs = n.encs[:split]

			parind := t.arena.Get(idx).parind
			inserted, err := t.internalAdd(parentIdx, parind, promotedKey, promotedEnc, sibIdx, updates)
			if err != nil {
				return nil, false, err
			}
			enc = inserted
		} else {
			enc = t.redoEncs(idx, updates, ind)
		}
	case ind < len(n.encs):
		enc = n.encs[ind]
	case len(n.encs) == 0:
		// An empty leaf (only ever the case for a brand-new, still
		// empty tree) has no encoding to extend, so report the first
		// slot this leaf would ever assign.
		enc = concat(n.prefix, tuple{1}, n.suffix)
	default:
		last := n.encs[len(n.encs)-1]
		enc = concat(last[:len(last)-1], tuple{t.maxlen + 1})
	}
	invariant(enc != nil, "leafEncode must always produce an encoding")
	return enc, found, nil
}

// internalAdd implements InternalNode.add: splice (promotedKey,
// promotedEnc, newChild) into this node at position ind, splitting if
// it overflows.
func (t *Tree) internalAdd(idx, ind int, promotedKey []byte, promotedEnc tuple, newChild int, updates *[]tupUpdate) (tuple, error) {
	n := t.arena.Get(idx)
	n.keys = insertBytesAt(n.keys, ind, promotedKey)
	n.encs = insertTupAt(n.encs, ind, promotedEnc)
	n.children = insertIntAt(n.children, ind+1, newChild)
	t.arena.Get(newChild).parent = idx

	var inserted tuple
	if len(n.keys) > t.maxlen {
		split := t.maxlen / 2
		myKey, myEnc := n.keys[split], n.encs[split]
		sib := &node{
			kind:     internalNode,
			parent:   t.makeParent(idx),
			suffix:   n.suffix.clone(),
			keys:     append([][]byte(nil), n.keys[split+1:]...),
			encs:     append([]tuple(nil), n.encs[split+1:]...),
			children: append([]int(nil), n.children[split+1:]...),
		}
		sibIdx := t.arena.Put(sib)

		n.keys = n.keys[:split]
		n.encs = n.encs[:split]
		n.children = n.children[:split+1]

		parind := t.arena.Get(idx).parind
		var err error
		inserted, err = t.internalAdd(t.arena.Get(idx).parent, parind, myKey, myEnc, sibIdx, updates)
		if err != nil {
			return nil, err
		}
	} else {
		inserted = t.redoEncsChildren(idx, updates, ind)
	}
	invariant(inserted != nil, "internalAdd must always produce an inserted encoding")
	return inserted, nil
}

// nodeEncode dispatches to the leaf or internal encode routine,
// matching Node.encode's polymorphism.
func (t *Tree) nodeEncode(idx int, key []byte, insert bool, updates *[]tupUpdate) (tuple, bool, error) {
	n := t.arena.Get(idx)
	if n.kind == leafNode {
		return t.leafEncode(idx, key, insert, updates)
	}
	ind, found, err := t.find(idx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return n.encs[ind], true, nil
	}
	return t.nodeEncode(n.children[ind], key, insert, updates)
}
