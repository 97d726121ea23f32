// Package luck is the deterministic pseudo-random source behind cache
// spawning. The same key always yields the same value, across sessions
// and process restarts, with no hidden state.
package luck

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/cespare/xxhash/v2"
)

// Generator maps an arbitrary string key to a value in [0,1).
// Implementations must be pure: identical key, identical output, no
// dependence on call order or prior invocations.
type Generator interface {
	ValueFor(key string) float64
}

// CountKey derives the coin-count roll key from a cell's spawn key.
// Spawn and count rolls must never share a key, or "does a cache exist"
// and "how many coins" would be correlated outcomes.
func CountKey(cellKey string) string { return cellKey + "-count" }

// Hashed is the default generator: xxhash64 of seed plus key, scaled to
// [0,1). The NUL separator keeps seed/key pairs from colliding.
type Hashed struct {
	seed string
}

func NewHashed(seed string) *Hashed { return &Hashed{seed: seed} }

func (h *Hashed) ValueFor(key string) float64 {
	sum := xxhash.Sum64String(h.seed + "\x00" + key)
	// Top 53 bits, the full precision of a float64 mantissa.
	return float64(sum>>11) / float64(1<<53)
}

// ProvablyFair folds an HMAC-SHA256 digest into a float, the
// construction used by auditable game engines: the operator seed is the
// MAC key and the roll key is the message, so any roll can be verified
// by a player once the seed is revealed.
type ProvablyFair struct {
	serverSeed []byte
}

func NewProvablyFair(serverSeed string) *ProvablyFair {
	return &ProvablyFair{serverSeed: []byte(serverSeed)}
}

func (p *ProvablyFair) ValueFor(key string) float64 {
	mac := hmac.New(sha256.New, p.serverSeed)
	mac.Write([]byte(key))
	sum := mac.Sum(nil)

	// Four bytes give far more resolution than any spawn threshold needs.
	v := 0.0
	div := 256.0
	for _, b := range sum[:4] {
		v += float64(b) / div
		div *= 256.0
	}
	return v
}
