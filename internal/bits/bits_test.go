package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/big"
	"math/rand/v2"
	"testing"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(s1, s2))
}

// FastModMultiplier is defined as floor(2^64/d)+1; check the arithmetic
// against big-integer division, including the power-of-two divisors where
// math.MaxUint64/d alone is off by one.
func TestFastModMultiplier(t *testing.T) {
	two64 := new(big.Int).Lsh(big.NewInt(1), 64)
	for _, d := range []uint32{1, 2, 3, 4, 5, 7, 8, 16, 41, 97, 1024, 65537, 1 << 20, math.MaxUint32} {
		want := new(big.Int).Div(two64, big.NewInt(int64(d)))
		want.Add(want, big.NewInt(1))
		want.Mod(want, two64) // d=1 wraps: floor(2^64/1)+1 ≡ 1 in uint64 arithmetic
		if got := FastModMultiplier(d); got != want.Uint64() {
			t.Errorf("FastModMultiplier(%d) got %#x, want %#x", d, got, want.Uint64())
		}
	}
}

func TestFastMod32MatchesModulo(t *testing.T) {
	rng := newTestRNG(t)
	divisors := []uint32{1, 2, 3, 4, 5, 7, 8, 11, 41, 53, 97, 1009, 65537, 1 << 16, 1 << 24, math.MaxUint32, math.MaxUint32 - 4}
	edges := []uint32{0, 1, 2, math.MaxUint32 - 1, math.MaxUint32}

	for _, d := range divisors {
		m := FastModMultiplier(d)
		for _, x := range edges {
			if got, want := FastMod32(x, d, m), x%d; got != want {
				t.Fatalf("FastMod32(%d, %d) got %d, want %d", x, d, got, want)
			}
		}
		for range 10000 {
			x := rng.Uint32()
			if got, want := FastMod32(x, d, m), x%d; got != want {
				t.Fatalf("FastMod32(%d, %d) got %d, want %d", x, d, got, want)
			}
		}
	}
}

func BenchmarkFastMod32(b *testing.B) {
	const d = 1009
	m := FastModMultiplier(d)
	var sink uint32
	for i := 0; b.Loop(); i++ {
		sink += FastMod32(uint32(i)*2654435761, d, m)
	}
	_ = sink
}
