package mope

import "errors"

// ErrNotFound names the absent-key condition. Lookup does not return
// it: an absent key is reported as (nil, false, nil).
var ErrNotFound = errors.New("mope: key not found")

const assertEnabled = true

func invariant(cond bool, msg string) {
	if assertEnabled && !cond {
		panic("mope: invariant violation: " + msg)
	}
}
