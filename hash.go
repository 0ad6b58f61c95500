package frozen

import (
	"bytes"

	"github.com/zeebo/xxh3"
)

// keyHash is the single fixed hash shared by every compiler and loader in
// this package. It applies xxHash3-64 and reinterprets the low 32 bits as a
// signed value. The algorithm is part of the blob format: a blob is only
// readable by a loader computing the exact same hash, and xxh3's output is
// stable across runs and platforms for a given input.
func keyHash(key []byte) int32 {
	return int32(uint32(xxh3.Hash(key)))
}

// compareEntries orders (ah, a) against (bh, b) under the combined
// (hash, bytes) total order: hash first, ties broken by lexicographic
// comparison of the raw key bytes. This is the sole ordering contract of
// the blob format; binary search and bucket linearization both rely on
// reproducing it bit-for-bit.
func compareEntries(ah int32, a []byte, bh int32, b []byte) int {
	if ah != bh {
		if ah < bh {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}
