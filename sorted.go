package frozen

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	"github.com/edsrzf/mmap-go"
	frozenerrors "github.com/dkoltun/frozen/errors"
)

// Sorted-index blob body (after the 16-byte common header, all int32
// little-endian):
//
//	Offset        Size  Field
//	0             4     itemCount
//	4             4×n   hashes      (ascending; ties ordered by key bytes)
//	4+4n          4×n   keyOffsets  (byte offset into keysBlob, non-decreasing)
//	4+8n          ...   keysBlob    (keys concatenated in entry order)
//
// Key length for entry i is keyOffsets[i+1]-keyOffsets[i], or
// len(keysBlob)-keyOffsets[i] for the last entry.

// SortedCompilation is the result of CompileSorted: an in-memory index
// usable immediately plus the blob encoding the identical mapping for
// later zero-copy loading.
type SortedCompilation struct {
	// Index maps each key to its sorted position. It agrees exactly with
	// LoadSorted(Blob) on every key.
	Index map[string]int32

	// Blob is the serialized table. Byte-identical for any permutation of
	// the same input key set.
	Blob []byte
}

// CompileSorted builds a sorted-index table from a set of distinct keys.
// Each key's value is its position in the (hash, bytes) total order.
// Duplicate keys are rejected with ErrDuplicateKey.
func CompileSorted(keys [][]byte) (*SortedCompilation, error) {
	if len(keys) > maxItems {
		return nil, frozenerrors.ErrTooManyKeys
	}

	type record struct {
		hash int32
		key  []byte
	}
	recs := make([]record, len(keys))
	keyBytes := 0
	for i, key := range keys {
		if err := checkKey(key); err != nil {
			return nil, err
		}
		keyBytes += len(key)
		recs[i] = record{hash: keyHash(key), key: key}
	}
	if keyBytes > maxItems {
		return nil, frozenerrors.ErrBlobTooLarge
	}

	// Sorting normalizes any input order, which is what makes the output
	// blob deterministic for a given key set.
	slices.SortFunc(recs, func(a, b record) int {
		return compareEntries(a.hash, a.key, b.hash, b.key)
	})
	for i := 1; i < len(recs); i++ {
		if recs[i].hash == recs[i-1].hash && bytes.Equal(recs[i].key, recs[i-1].key) {
			return nil, fmt.Errorf("%w: %q", frozenerrors.ErrDuplicateKey, recs[i].key)
		}
	}

	n := len(recs)
	body := make([]byte, 0, 4+8*n+keyBytes)
	body = putInt32(body, int32(n))
	for _, r := range recs {
		body = putInt32(body, r.hash)
	}
	offset := int32(0)
	for _, r := range recs {
		body = putInt32(body, offset)
		offset += int32(len(r.key))
	}
	for _, r := range recs {
		body = append(body, r.key...)
	}

	index := make(map[string]int32, n)
	for i, r := range recs {
		index[string(r.key)] = int32(i)
	}

	return &SortedCompilation{Index: index, Blob: sealBlob(kindSorted, body)}, nil
}

// SortedTable is a loaded sorted-index table. It borrows the blob it was
// constructed from and never mutates it; all methods are safe for
// concurrent use.
type SortedTable struct {
	data []byte // full blob, borrowed for the table's lifetime

	n          int // itemCount
	hashesOff  int
	offsetsOff int
	keysOff    int
	keysLen    int

	mmap mmap.MMap // non-nil only for tables opened via OpenSorted
}

// LoadSorted constructs a SortedTable over blob without copying key bytes.
// All layout invariants are validated here, eagerly; after LoadSorted
// succeeds, lookups cannot fail on blob integrity. The table borrows blob
// and must not outlive it.
func LoadSorted(blob []byte) (*SortedTable, error) {
	if err := verifyHeader(blob, kindSorted); err != nil {
		return nil, err
	}
	if len(blob) < headerSize+4 {
		return nil, frozenerrors.ErrTruncatedBlob
	}

	n := int32At(blob, headerSize)
	if n < 0 {
		return nil, fmt.Errorf("%w: negative item count %d", frozenerrors.ErrMalformedBlob, n)
	}
	// Widen before multiplying: a hostile item count must not overflow the
	// size arithmetic.
	if int64(headerSize)+4+8*int64(n) > int64(len(blob)) {
		return nil, frozenerrors.ErrTruncatedBlob
	}
	arraysEnd := headerSize + 4 + 8*int(n)

	t := &SortedTable{
		data:       blob,
		n:          int(n),
		hashesOff:  headerSize + 4,
		offsetsOff: headerSize + 4 + 4*int(n),
		keysOff:    arraysEnd,
		keysLen:    len(blob) - arraysEnd,
	}
	if err := t.validateEntries(); err != nil {
		return nil, err
	}
	return t, nil
}

// validateEntries checks offset monotonicity and bounds, and that entries
// respect the (hash, bytes) total order the binary search depends on.
func (t *SortedTable) validateEntries() error {
	prev := int32(-1)
	for i := range t.n {
		off := int32At(t.data, t.offsetsOff+4*i)
		if off < 0 || int(off) >= t.keysLen {
			return fmt.Errorf("%w: key offset %d out of range at entry %d", frozenerrors.ErrMalformedBlob, off, i)
		}
		if off < prev {
			return fmt.Errorf("%w: key offsets decrease at entry %d", frozenerrors.ErrMalformedBlob, i)
		}
		prev = off
	}
	for i := 1; i < t.n; i++ {
		if compareEntries(t.hashAt(i-1), t.Key(i-1), t.hashAt(i), t.Key(i)) >= 0 {
			return fmt.Errorf("%w: entries out of order at index %d", frozenerrors.ErrMalformedBlob, i)
		}
	}
	return nil
}

func (t *SortedTable) hashAt(i int) int32 {
	return int32At(t.data, t.hashesOff+4*i)
}

// Key returns the key bytes of entry i. The slice aliases the blob; callers
// must not modify it. Panics if i is out of range, like a slice index.
func (t *SortedTable) Key(i int) []byte {
	start := int(int32At(t.data, t.offsetsOff+4*i))
	end := t.keysLen
	if i+1 < t.n {
		end = int(int32At(t.data, t.offsetsOff+4*(i+1)))
	}
	return t.data[t.keysOff+start : t.keysOff+end]
}

// Len returns the number of entries in the table.
func (t *SortedTable) Len() int {
	return t.n
}

// IndexOf returns the sorted position of key, or the bitwise complement of
// the insertion point if key is absent. A negative result r means key is
// not present and would sort at position ^r.
func (t *SortedTable) IndexOf(key []byte) int {
	h := keyHash(key)
	lo, hi := 0, t.n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if compareEntries(t.hashAt(mid), t.Key(mid), h, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < t.n && t.hashAt(lo) == h && bytes.Equal(t.Key(lo), key) {
		return lo
	}
	return ^lo
}

// Lookup returns key's sorted position and whether key is present.
func (t *SortedTable) Lookup(key []byte) (int32, bool) {
	i := t.IndexOf(key)
	if i < 0 {
		return 0, false
	}
	return int32(i), true
}

// Contains reports whether key is present in the table.
func (t *SortedTable) Contains(key []byte) bool {
	return t.IndexOf(key) >= 0
}

// All returns an iterator over (key, position) pairs in sorted order.
// Yielded key slices alias the blob and must not be modified.
func (t *SortedTable) All() iter.Seq2[[]byte, int32] {
	return func(yield func([]byte, int32) bool) {
		for i := range t.n {
			if !yield(t.Key(i), int32(i)) {
				return
			}
		}
	}
}

// SortedStats holds diagnostics for a loaded sorted-index table.
type SortedStats struct {
	Items    int
	KeyBytes int
	BlobSize int
}

// Stats returns diagnostics for the table.
func (t *SortedTable) Stats() SortedStats {
	return SortedStats{
		Items:    t.n,
		KeyBytes: t.keysLen,
		BlobSize: len(t.data),
	}
}

// Close releases the memory mapping backing a table opened via OpenSorted.
// It is a no-op for tables loaded from caller-owned byte slices. Close must
// only be called after all lookups have completed.
func (t *SortedTable) Close() error {
	if t.mmap != nil {
		mm := t.mmap
		t.mmap = nil
		t.data = nil
		return mm.Unmap()
	}
	return nil
}
