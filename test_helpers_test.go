package frozen

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/cespare/xxhash/v2"
)

const (
	testSeed1 = 0x9E3779B97F4A7C15
	testSeed2 = 0xC2B2AE3D27D4EB4F
)

// newTestRNG returns a deterministic RNG seeded from the test name, so each
// test gets stable but distinct pseudo-random data.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateUniqueKeys creates n distinct pseudo-random keys with lengths in
// [1, maxSize].
func generateUniqueKeys(rng *rand.Rand, n, maxSize int) [][]byte {
	keys := make([][]byte, 0, n)
	seen := make(map[string]struct{}, n)
	for len(keys) < n {
		size := 1 + rng.IntN(maxSize)
		key := make([]byte, size)
		fillFromRNG(rng, key)
		if _, ok := seen[string(key)]; ok {
			continue
		}
		seen[string(key)] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// entriesFromKeys pairs each key with a pseudo-random int32 value.
func entriesFromKeys(rng *rand.Rand, keys [][]byte) []Entry {
	entries := make([]Entry, len(keys))
	for i, key := range keys {
		entries[i] = Entry{Key: key, Value: int32(rng.Int32())}
	}
	return entries
}

// nonMemberKey derives a key guaranteed absent from seen.
func nonMemberKey(rng *rand.Rand, seen map[string]struct{}) []byte {
	for {
		key := make([]byte, 1+rng.IntN(24))
		fillFromRNG(rng, key)
		if _, ok := seen[string(key)]; !ok {
			return key
		}
	}
}

// keySet builds a membership set for nonMemberKey.
func keySet(keys [][]byte) map[string]struct{} {
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		seen[string(key)] = struct{}{}
	}
	return seen
}

// reseal recomputes the header checksum after a test has mutated the blob
// body, so structural invariant checks are reached instead of the checksum
// rejecting the mutation first.
func reseal(blob []byte) {
	binary.LittleEndian.PutUint64(blob[8:16], xxhash.Sum64(blob[headerSize:]))
}
