package oracle

import (
	"fmt"
	"sort"
)

// Identity is the default key-extraction function for []byte items,
// for callers whose needles/haystack are already raw ciphertexts
// rather than structs a key must be pulled out of.
func Identity(b []byte) []byte { return b }

// Sort decodes every item's key and returns the items reordered into
// plaintext order, ahead of a partition call. Callers must hold
// o.Acquire() for the duration of the call.
func Sort[T any](o *Oracle, items []T, key func(T) []byte) ([]T, error) {
	if len(items) > o.L {
		return nil, fmt.Errorf("%w: %d > %d", ErrBoundViolation, len(items), o.L)
	}
	type keyed struct {
		item T
		key  []byte
	}
	tagged := make([]keyed, len(items))
	for i, it := range items {
		pt, err := o.Crypt.Decode(key(it))
		if err != nil {
			return nil, fmt.Errorf("oracle: decode: %w", err)
		}
		tagged[i] = keyed{it, pt}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return string(tagged[i].key) < string(tagged[j].key)
	})
	o.dataOut += uint64(len(items))

	out := make([]T, len(tagged))
	for i, t := range tagged {
		out[i] = t.item
	}
	return out, nil
}

// decodeSorted decodes haystack's keys and confirms they are already
// in non-decreasing plaintext order, returning ErrOutOfOrderHaystack
// if not.
func decodeSorted[H any](o *Oracle, haystack []H, haykey func(H) []byte) ([][]byte, error) {
	decoded := make([][]byte, len(haystack))
	for i, h := range haystack {
		pt, err := o.Crypt.Decode(haykey(h))
		if err != nil {
			return nil, fmt.Errorf("oracle: decode haystack: %w", err)
		}
		decoded[i] = pt
	}
	for i := 1; i < len(decoded); i++ {
		if string(decoded[i-1]) > string(decoded[i]) {
			return nil, ErrOutOfOrderHaystack
		}
	}
	return decoded, nil
}

// Partition returns, for each needle, the index i in [0, len(haystack)]
// such that haystack[i-1] < needle <= haystack[i] in plaintext order
// (the same contract as sort.Search / bisect.bisect_left). haystack
// must already be sorted in plaintext order by haykey; Partition
// verifies this and returns ErrOutOfOrderHaystack if not.
//
// Callers must hold o.Acquire() for the duration of the call.
func Partition[N, H any](o *Oracle, needles []N, haystack []H, nkey func(N) []byte, haykey func(H) []byte) ([]int, error) {
	if len(haystack) > o.L {
		return nil, fmt.Errorf("%w: %d > %d", ErrBoundViolation, len(haystack), o.L)
	}
	round := o.traceRound("partition", len(haystack), len(needles))

	decoded, err := decodeSorted(o, haystack, haykey)
	if err != nil {
		return nil, err
	}
	o.dataIn += uint64(len(haystack))
	o.rounds++
	for _, d := range decoded {
		o.revealed[string(d)] = struct{}{}
	}

	results := make([]int, len(needles))
	for i, n := range needles {
		o.dataIn++
		o.dataOut++
		dk, err := o.Crypt.Decode(nkey(n))
		if err != nil {
			return nil, fmt.Errorf("oracle: decode needle: %w", err)
		}
		results[i] = sort.Search(len(decoded), func(j int) bool {
			return string(decoded[j]) >= string(dk)
		})
	}
	o.log.Trace("oracle", "partition round=%s done fingerprint=%s", round, fingerprint(decoded))
	return results, nil
}

// PartitionSort first sorts haystack by plaintext order (using haykey),
// then partitions needles against that sorted copy. It returns the
// sorted haystack alongside Partition's result.
//
// Callers must hold o.Acquire() for the duration of the call.
func PartitionSort[N, H any](o *Oracle, needles []N, haystack []H, nkey func(N) []byte, haykey func(H) []byte) ([]H, []int, error) {
	if len(haystack) > o.L {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrBoundViolation, len(haystack), o.L)
	}
	sorted, err := Sort(o, haystack, haykey)
	if err != nil {
		return nil, nil, err
	}
	idxs, err := Partition(o, needles, sorted, nkey, haykey)
	if err != nil {
		return nil, nil, err
	}
	return sorted, idxs, nil
}

// Find searches haystack for each needle, returning its index when
// found. A returned index of -1-i (negative) means the needle was not
// found and would be inserted at position i to keep the haystack
// sorted, mirroring bisect's contract. Unlike Partition, Find never
// updates Revealed: a point lookup discloses equality with one
// element, not the haystack's relative order.
//
// Callers must hold o.Acquire() for the duration of the call.
func Find[N, H any](o *Oracle, needles []N, haystack []H, nkey func(N) []byte, haykey func(H) []byte) ([]int, error) {
	if len(haystack) > o.L {
		return nil, fmt.Errorf("%w: %d > %d", ErrBoundViolation, len(haystack), o.L)
	}
	round := o.traceRound("find", len(haystack), len(needles))

	type keyed struct {
		key []byte
		idx int
	}
	tagged := make([]keyed, len(haystack))
	for i, h := range haystack {
		pt, err := o.Crypt.Decode(haykey(h))
		if err != nil {
			return nil, fmt.Errorf("oracle: decode haystack: %w", err)
		}
		tagged[i] = keyed{pt, i}
	}
	sort.Slice(tagged, func(i, j int) bool {
		return string(tagged[i].key) < string(tagged[j].key)
	})
	o.dataIn += uint64(len(haystack))
	o.rounds++

	results := make([]int, len(needles))
	for i, n := range needles {
		o.dataIn++
		o.dataOut++
		dk, err := o.Crypt.Decode(nkey(n))
		if err != nil {
			return nil, fmt.Errorf("oracle: decode needle: %w", err)
		}
		found := sort.Search(len(tagged), func(j int) bool {
			return string(tagged[j].key) >= string(dk)
		})
		if found < len(tagged) && string(tagged[found].key) == string(dk) {
			results[i] = tagged[found].idx
		} else {
			results[i] = -1 - found
		}
	}
	o.log.Trace("oracle", "find round=%s done", round)
	return results, nil
}
