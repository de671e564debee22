// Package oracle implements the bounded-memory comparison server that
// both the POPE and mOPE trees delegate plaintext order decisions to.
// It holds the only decryption key in the system; the index server
// never sees a plaintext.
package oracle

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/dsroche/pope/cipher"
	"github.com/dsroche/pope/logging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// ErrBoundViolation is returned when a caller presents a haystack
// larger than the oracle's configured bound L.
var ErrBoundViolation = errors.New("oracle: haystack exceeds bound")

// ErrOutOfOrderHaystack is returned when Partition is handed a
// haystack that does not decode to sorted plaintext order. Find sorts
// its haystack itself and never returns it.
var ErrOutOfOrderHaystack = errors.New("oracle: haystack is not sorted in plaintext order")

// Oracle is a bounded-memory comparison service: it decodes
// ciphertexts with the key it alone holds, compares the resulting
// plaintexts, and reports only the comparison result plus a running
// tally of ciphertexts moved. Acquire serializes callers so that the
// "at most L plaintexts visible at once" bound is a real invariant and
// not just a convention.
type Oracle struct {
	Crypt cipher.Cipher
	L     int

	mu  sync.Mutex
	log *logging.Logger

	dataIn   uint64
	dataOut  uint64
	rounds   uint64
	revealed map[string]struct{}
}

// New creates an Oracle bounded to at most L plaintexts of local
// storage per round, using crypt to decode ciphertexts. log may be
// nil, in which case logging.Discard() is used.
func New(crypt cipher.Cipher, l int, log *logging.Logger) *Oracle {
	if log == nil {
		log = logging.Discard()
	}
	return &Oracle{
		Crypt:    crypt,
		L:        l,
		log:      log,
		revealed: make(map[string]struct{}),
	}
}

// Acquire implements the scoped exclusive-access pattern: callers hold
// the oracle for the duration of a single tree operation (one split,
// one lookup descent) and must call the returned release on every exit
// path.
func (o *Oracle) Acquire() (release func()) {
	o.mu.Lock()
	return o.mu.Unlock
}

// Counts returns the running communication tallies: ciphertexts counted
// as moving into the oracle, ciphertexts counted as moving out, and the number
// of rounds (Partition/PartitionSort/Find calls) so far.
func (o *Oracle) Counts() (dataIn, dataOut, rounds uint64) {
	return o.dataIn, o.dataOut, o.rounds
}

// Stats formats Counts for human consumption.
func (o *Oracle) Stats() string {
	dataIn, dataOut, rounds := o.Counts()
	return "oracle: " + humanize.Comma(int64(rounds)) + " rounds, " +
		humanize.Comma(int64(dataIn)) + " ciphertexts in, " +
		humanize.Comma(int64(dataOut)) + " ciphertexts out"
}

// Revealed returns the set of plaintexts (as strings) whose relative
// order has been disclosed to the server so far via Partition or
// PartitionSort. Find never populates this set: only a partition
// reveals order, a point lookup does not.
func (o *Oracle) Revealed() map[string]struct{} {
	out := make(map[string]struct{}, len(o.revealed))
	for k := range o.revealed {
		out[k] = struct{}{}
	}
	return out
}

// fingerprint returns a short, non-reversible tag summarizing a batch
// of decoded plaintexts for trace logs, without ever writing a
// plaintext to the log. The two lines a round emits are correlated by
// the round id from traceRound, not by this tag.
func fingerprint(items [][]byte) string {
	h := blake3.New()
	for _, it := range items {
		h.Write(it)
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:6])
}

func (o *Oracle) traceRound(op string, haystackLen, needleLen int) string {
	id := uuid.New().String()[:8]
	o.log.Trace("oracle", "%s round=%s haystack_len=%d needles=%d", op, id, haystackLen, needleLen)
	return id
}
