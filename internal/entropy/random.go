// Package entropy provides the simulation's seedable random streams.
// A run is reproducible from its seed; an unset seed falls back to crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"log/slog"
	mrand "math/rand"
)

// Named streams, one per consumer, so draws by one never shift another.
const (
	StreamOccupant = "occupant"
	StreamSampler  = "sampler"
)

// Seed returns configured when non-zero, otherwise a fresh seed from crypto/rand.
func Seed(configured int64) int64 {
	if configured != 0 {
		return configured
	}
	return cryptoSeed()
}

// New returns a deterministic source for seed.
func New(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// Derive returns an independent deterministic source for a named stream of seed.
func Derive(seed int64, stream string) *mrand.Rand {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(stream))
	return New(int64(h.Sum64() >> 1))
}

// cryptoSeed draws 63 bits from crypto/rand.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; a fixed seed keeps the run usable.
		slog.Warn("crypto/rand unavailable, using fixed seed", "error", err)
		return 1
	}
	s := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}
