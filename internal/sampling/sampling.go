// Package sampling provides deterministic random streams and weighted choice.
package sampling

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
)

// Stream returns a generator derived from the run seed and a stable key. Two
// calls with the same seed and key yield identical sequences, whatever order
// they happen in.
func Stream(seed uint64, key ...any) *rand.Rand {
	return rand.New(rand.NewPCG(seed, KeyHash(key...)))
}

// KeyHash hashes a key made of strings and integers.
func KeyHash(key ...any) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, part := range key {
		switch v := part.(type) {
		case string:
			_, _ = h.Write([]byte(v))
			_, _ = h.Write([]byte{0})
		case int:
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			_, _ = h.Write(buf[:])
		case uint64:
			binary.LittleEndian.PutUint64(buf[:], v)
			_, _ = h.Write(buf[:])
		case int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// Bool returns true with probability p.
func Bool(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// Weighted picks an index with probability proportional to its weight.
// Negative weights count as zero. It returns -1 when no weight is positive.
func Weighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := rng.Float64() * total
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

// Gauss samples a normal distribution.
func Gauss(rng *rand.Rand, mu, sigma float64) float64 {
	return mu + rng.NormFloat64()*sigma
}
