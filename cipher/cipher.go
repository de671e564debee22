// Package cipher defines the opaque ciphertext contract the rest of
// this module treats as a black box: the server never decodes a
// ciphertext itself, only the Oracle does, on the client's behalf.
package cipher

import "errors"

// ErrBadCiphertext is returned by Decode when its input is corrupted or
// was never produced by this Cipher.
var ErrBadCiphertext = errors.New("cipher: bad ciphertext")

// Cipher maps plaintexts to ciphertexts and back. Encode may be
// randomized (distinct ciphertexts for the same plaintext); Decode is
// deterministic and must be a left inverse of every Encode output.
type Cipher interface {
	Encode(plaintext []byte) ([]byte, error)
	Decode(ciphertext []byte) ([]byte, error)
}
