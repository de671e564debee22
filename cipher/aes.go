package cipher

import (
	"crypto/aes"
	"crypto/rand"
	"fmt"

	aeskw "github.com/nickball/go-aes-key-wrap"
	"github.com/tink-crypto/tink-go/v2/aead/subtle"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams configures the Argon2id pass used to stretch a
// passphrase into the key-wrapping key.
type Argon2idParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2idParams mirrors the conservative interactive profile
// recommended upstream: three passes, 64 MiB, four lanes.
var DefaultArgon2idParams = Argon2idParams{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// AESCipher is the production Cipher implementation: a passphrase is stretched
// with Argon2id into a key-wrapping key, which wraps a random 256-bit
// data key with AES-KW (RFC 3394); the data key then drives AES-GCM-SIV
// for the actual plaintexts. Encode is randomized (fresh data key and
// nonce per call); Decode is deterministic.
type AESCipher struct {
	wrapKey []byte
	params  Argon2idParams
}

// NewAESCipher derives a wrapping key from passphrase and salt with the
// given Argon2id parameters.
func NewAESCipher(passphrase, salt []byte, params Argon2idParams) *AESCipher {
	return &AESCipher{
		wrapKey: argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, params.KeyLen),
		params:  params,
	}
}

// NewDefaultAESCipher uses DefaultArgon2idParams.
func NewDefaultAESCipher(passphrase, salt []byte) *AESCipher {
	return NewAESCipher(passphrase, salt, DefaultArgon2idParams)
}

// Encode generates a fresh 256-bit data key, wraps it with AES-KW under
// the passphrase-derived key, and seals plaintext with AES-GCM-SIV under
// the data key. The wire format is wrapped-key || aead-ciphertext.
func (c *AESCipher) Encode(plaintext []byte) ([]byte, error) {
	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("cipher: generate data key: %w", err)
	}

	wrapBlock, err := aes.NewCipher(c.wrapKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: wrap key: %w", err)
	}
	wrapped, err := aeskw.Wrap(wrapBlock, dataKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: wrap data key: %w", err)
	}

	aead, err := subtle.NewAESGCMSIV(dataKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: new aead: %w", err)
	}
	sealed, err := aead.Encrypt(plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("cipher: seal: %w", err)
	}

	out := make([]byte, 0, len(wrapped)+len(sealed))
	out = append(out, wrapped...)
	out = append(out, sealed...)
	return out, nil
}

// wrappedKeyLen is the size of an AES-KW wrapped 256-bit key: the key
// itself plus one 8-byte integrity block (RFC 3394 §2.2.1).
const wrappedKeyLen = 32 + 8

// Decode unwraps the data key and opens the AEAD ciphertext. Any
// failure, including authentication failure, is reported as
// ErrBadCiphertext.
func (c *AESCipher) Decode(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < wrappedKeyLen {
		return nil, fmt.Errorf("%w: truncated", ErrBadCiphertext)
	}
	wrapped, sealed := ciphertext[:wrappedKeyLen], ciphertext[wrappedKeyLen:]

	wrapBlock, err := aes.NewCipher(c.wrapKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: wrap key: %w", err)
	}
	dataKey, err := aeskw.Unwrap(wrapBlock, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap: %v", ErrBadCiphertext, err)
	}

	aead, err := subtle.NewAESGCMSIV(dataKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: new aead: %w", err)
	}
	plaintext, err := aead.Decrypt(sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrBadCiphertext, err)
	}
	return plaintext, nil
}
