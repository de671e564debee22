// Package index ties the oracle-backed POPE/mOPE trees and the
// plaintext Cheater reference together behind one interface, and
// layers a Client on top that speaks plaintext to its caller while the
// chosen backend only ever sees ciphertext.
package index

import "github.com/dsroche/pope/kv"

// Index is satisfied by every server-side storage backend: pope.Tree,
// mope.Tree, and cheater.Index. All three operate purely on
// ciphertext; a Client is responsible for encoding/decoding at the
// boundary.
type Index interface {
	Insert(key, val []byte) error
	Lookup(key []byte) ([]byte, bool, error)
	RangeSearch(key1, key2 []byte) ([]kv.Pair, error)
	Size() int
	Traverse() []kv.Pair
}
