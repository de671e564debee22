package index

import (
	"bytes"
	"math/rand"

	"github.com/dsroche/pope/cheater"
	"github.com/dsroche/pope/cipher"
	"github.com/dsroche/pope/config"
	"github.com/dsroche/pope/kv"
	"github.com/dsroche/pope/logging"
	"github.com/dsroche/pope/mope"
	"github.com/dsroche/pope/oracle"
	"github.com/dsroche/pope/pope"
)

// Pair is a plaintext key/value pair, as returned to a Client's caller.
type Pair struct {
	Key []byte
	Val []byte
}

// Client wraps a server-side Index with a Cipher, so that every method
// it exposes speaks plaintext at the boundary while the wrapped Index
// never sees anything but ciphertext. It is the only type in this
// module meant to hold the decryption key's matching encoding key
// alongside the index itself.
type Client struct {
	backend Index
	crypt   cipher.Cipher
}

// New wraps an existing backend and cipher. Most callers should use
// NewFromConfig instead, which also builds the oracle and backend.
func New(backend Index, crypt cipher.Cipher) *Client {
	return &Client{backend: backend, crypt: crypt}
}

// NewFromConfig validates cfg and builds a Client around the backend it
// names, wiring a fresh Oracle bounded by cfg.L. rng seeds POPE's pivot
// sampling and is ignored by the other backends; pass nil to use one
// seeded with the fixed value 1.
func NewFromConfig(cfg config.Config, crypt cipher.Cipher, rng *rand.Rand, log *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := oracle.New(crypt, cfg.L, log)

	var backend Index
	switch cfg.Backend {
	case config.POPE:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		backend = pope.New(o, rng, log)
	case config.MOPE:
		backend = mope.New(o, cfg.Maxlen, log)
	case config.Cheater:
		backend = cheater.New(crypt)
	}
	return New(backend, crypt), nil
}

// Insert encrypts (key, val) and stores it in the backend.
func (c *Client) Insert(key, val []byte) error {
	ek, err := c.crypt.Encode(key)
	if err != nil {
		return err
	}
	ev, err := c.crypt.Encode(val)
	if err != nil {
		return err
	}
	return c.backend.Insert(ek, ev)
}

// Lookup encrypts key, looks it up in the backend, and decrypts the
// stored value. It returns (nil, false, nil) if key is absent.
func (c *Client) Lookup(key []byte) ([]byte, bool, error) {
	ek, err := c.crypt.Encode(key)
	if err != nil {
		return nil, false, err
	}
	ev, found, err := c.backend.Lookup(ek)
	if err != nil || !found {
		return nil, found, err
	}
	val, err := c.crypt.Decode(ev)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// RangeSearch returns every (key, value) pair with key1 <= key < key2,
// given key1 and key2 in plaintext. If key1 > key2, it returns an
// empty slice without consulting the backend at all, since every
// backend's own half-open contract would otherwise require a wasted
// round trip to discover the same thing.
func (c *Client) RangeSearch(key1, key2 []byte) ([]Pair, error) {
	if bytes.Compare(key1, key2) > 0 {
		return nil, nil
	}

	ek1, err := c.crypt.Encode(key1)
	if err != nil {
		return nil, err
	}
	ek2, err := c.crypt.Encode(key2)
	if err != nil {
		return nil, err
	}
	pairs, err := c.backend.RangeSearch(ek1, ek2)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(pairs)
}

// Size returns the total number of (key, value) pairs stored.
func (c *Client) Size() int {
	return c.backend.Size()
}

// Traverse returns every (key, value) pair in the backend, decrypted,
// in no particular order.
func (c *Client) Traverse() ([]Pair, error) {
	return c.decodeAll(c.backend.Traverse())
}

func (c *Client) decodeAll(pairs []kv.Pair) ([]Pair, error) {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		key, err := c.crypt.Decode(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := c.crypt.Decode(p.Val)
		if err != nil {
			return nil, err
		}
		out = append(out, Pair{Key: key, Val: val})
	}
	return out, nil
}
