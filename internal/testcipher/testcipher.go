// Package testcipher provides a deterministic, reversible cipher
// fixture for tests that need a cheap stand-in for cipher.Cipher: it
// reverses the plaintext bytes and appends a key tag.
package testcipher

import (
	"bytes"
	"fmt"

	"github.com/dsroche/pope/cipher"
)

// Cipher is not secure; it exists only so pope/mope/cheater tests can
// exercise Encode/Decode without pulling in real crypto.
type Cipher struct {
	key []byte
}

// New returns a Cipher tagged with key, so that ciphertexts produced
// under distinct keys are never cross-decodable.
func New(key []byte) *Cipher {
	if len(key) == 0 {
		key = []byte("DumbKey")
	}
	return &Cipher{key: key}
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// Encode reverses plaintext and appends "|"+key.
func (c *Cipher) Encode(plaintext []byte) ([]byte, error) {
	out := append(reversed(plaintext), '|')
	out = append(out, c.key...)
	return out, nil
}

// Decode strips the trailing "|"+key tag and reverses the remainder.
// It returns cipher.ErrBadCiphertext if the tag doesn't match.
func (c *Cipher) Decode(ciphertext []byte) ([]byte, error) {
	suffix := append([]byte{'|'}, c.key...)
	if !bytes.HasSuffix(ciphertext, suffix) {
		return nil, fmt.Errorf("%w: wrong key tag", cipher.ErrBadCiphertext)
	}
	body := ciphertext[:len(ciphertext)-len(suffix)]
	return reversed(body), nil
}
