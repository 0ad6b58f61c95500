package frozen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"slices"

	"github.com/edsrzf/mmap-go"
	frozenerrors "github.com/dkoltun/frozen/errors"
	intbits "github.com/dkoltun/frozen/internal/bits"
)

// Hash-table blob body (after the 16-byte common header, int32 fields
// little-endian):
//
//	Offset          Size  Field
//	0               4     itemCount
//	4               4×n   keyHashes
//	4+4n            4×n   keyOffsets         (byte offset into keysBlob)
//	4+8n            4×n   values
//	4+12n           4     bucketCount
//	8+12n           8×B   buckets            (startIndex, endIndex int32 pairs)
//	8+12n+8B        8     fastModMultiplier  uint64_le
//	16+12n+8B       ...   keysBlob
//
// Entries within [bucket.startIndex, bucket.endIndex) are exactly those
// whose hash fastmod-reduces to that bucket; buckets tile [0, itemCount)
// in bucket-index order.

// Entry is a single (key, value) pair for CompileTable. Keys must be
// distinct and non-empty; values carry no uniqueness or contiguity
// requirement.
type Entry struct {
	Key   []byte
	Value int32
}

// TableCompilation is the result of CompileTable: an in-memory index
// usable immediately plus the blob encoding the identical mapping for
// later zero-copy loading.
type TableCompilation struct {
	// Index maps each key to its value. It agrees exactly with
	// LoadTable(Blob) on every key.
	Index map[string]int32

	// Blob is the serialized table. Byte-identical for any permutation of
	// the same input entry set.
	Blob []byte
}

// nextPrime returns the smallest prime >= n (>= 2).
// Compilation runs offline; trial division is fine at int32 scale.
func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for c := n; ; c++ {
		if isPrime(c) {
			return c
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// CompileTable builds a bucketed hash table from a set of distinct keys
// with explicit values. The bucket count is the smallest prime >= the
// entry count, giving a load factor <= 1 with a prime modulus; the
// fastmod multiplier is derived from it once so lookups select buckets
// without a division. Duplicate keys are rejected with ErrDuplicateKey.
func CompileTable(entries []Entry) (*TableCompilation, error) {
	if len(entries) > maxItems {
		return nil, frozenerrors.ErrTooManyKeys
	}

	n := len(entries)
	index := make(map[string]int32, n)

	if n == 0 {
		// Empty table: no arrays, no buckets, zero multiplier.
		body := make([]byte, 0, 16)
		body = putInt32(body, 0)
		body = putInt32(body, 0)
		body = binary.LittleEndian.AppendUint64(body, 0)
		return &TableCompilation{Index: index, Blob: sealBlob(kindTable, body)}, nil
	}

	bucketCount := nextPrime(n)
	multiplier := intbits.FastModMultiplier(uint32(bucketCount))

	type record struct {
		hash   int32
		bucket uint32
		key    []byte
		value  int32
	}
	recs := make([]record, n)
	keyBytes := 0
	for i, e := range entries {
		if err := checkKey(e.Key); err != nil {
			return nil, err
		}
		if _, dup := index[string(e.Key)]; dup {
			return nil, fmt.Errorf("%w: %q", frozenerrors.ErrDuplicateKey, e.Key)
		}
		index[string(e.Key)] = e.Value
		keyBytes += len(e.Key)
		h := keyHash(e.Key)
		recs[i] = record{
			hash:   h,
			bucket: intbits.FastMod32(uint32(h), uint32(bucketCount), multiplier),
			key:    e.Key,
			value:  e.Value,
		}
	}
	if keyBytes > maxItems {
		return nil, frozenerrors.ErrBlobTooLarge
	}

	// Linearize by bucket, ordering entries inside a bucket by the
	// (hash, bytes) total order so the blob is deterministic for any input
	// permutation of the same entry set.
	slices.SortFunc(recs, func(a, b record) int {
		if a.bucket != b.bucket {
			if a.bucket < b.bucket {
				return -1
			}
			return 1
		}
		return compareEntries(a.hash, a.key, b.hash, b.key)
	})

	body := make([]byte, 0, 16+12*n+8*bucketCount+keyBytes)
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
		body = putInt32(body, r.value)
	}
	body = putInt32(body, int32(bucketCount))
	pos := 0
	for b := 0; b < bucketCount; b++ {
		start := pos
		for pos < n && recs[pos].bucket == uint32(b) {
			pos++
		}
		body = putInt32(body, int32(start))
		body = putInt32(body, int32(pos))
	}
	body = binary.LittleEndian.AppendUint64(body, multiplier)
	for _, r := range recs {
		body = append(body, r.key...)
	}

	return &TableCompilation{Index: index, Blob: sealBlob(kindTable, body)}, nil
}

// Table is a loaded bucketed hash table. It borrows the blob it was
// constructed from and never mutates it; all methods are safe for
// concurrent use.
type Table struct {
	data []byte // full blob, borrowed for the table's lifetime

	n           int // itemCount
	hashesOff   int
	offsetsOff  int
	valuesOff   int
	bucketCount int
	bucketsOff  int
	multiplier  uint64
	keysOff     int
	keysLen     int

	mmap mmap.MMap // non-nil only for tables opened via OpenTable
}

// LoadTable constructs a Table over blob without copying key bytes.
// All layout invariants are validated here, eagerly, including that every
// entry physically resides in the bucket its hash fastmod-reduces to.
// After LoadTable succeeds, lookups cannot fail on blob integrity. The
// table borrows blob and must not outlive it.
func LoadTable(blob []byte) (*Table, error) {
	if err := verifyHeader(blob, kindTable); err != nil {
		return nil, err
	}
	if len(blob) < headerSize+4 {
		return nil, frozenerrors.ErrTruncatedBlob
	}

	n := int32At(blob, headerSize)
	if n < 0 {
		return nil, fmt.Errorf("%w: negative item count %d", frozenerrors.ErrMalformedBlob, n)
	}
	// Widen before multiplying: hostile counts must not overflow the size
	// arithmetic.
	if int64(headerSize)+4+12*int64(n)+4 > int64(len(blob)) {
		return nil, frozenerrors.ErrTruncatedBlob
	}
	bucketCountOff := headerSize + 4 + 12*int(n)
	bucketCount := int32At(blob, bucketCountOff)
	if bucketCount < 0 || (n > 0 && bucketCount == 0) {
		return nil, fmt.Errorf("%w: bucket count %d for %d items", frozenerrors.ErrMalformedBlob, bucketCount, n)
	}
	bucketsOff := bucketCountOff + 4
	if int64(bucketsOff)+8*int64(bucketCount)+8 > int64(len(blob)) {
		return nil, frozenerrors.ErrTruncatedBlob
	}
	multiplierOff := bucketsOff + 8*int(bucketCount)
	keysOff := multiplierOff + 8

	t := &Table{
		data:        blob,
		n:           int(n),
		hashesOff:   headerSize + 4,
		offsetsOff:  headerSize + 4 + 4*int(n),
		valuesOff:   headerSize + 4 + 8*int(n),
		bucketCount: int(bucketCount),
		bucketsOff:  bucketsOff,
		multiplier:  binary.LittleEndian.Uint64(blob[multiplierOff:]),
		keysOff:     keysOff,
		keysLen:     len(blob) - keysOff,
	}
	if err := t.validateLayout(); err != nil {
		return nil, err
	}
	return t, nil
}

// validateLayout checks offsets, the bucket partition, the stored fastmod
// multiplier, and per-entry bucket residency.
func (t *Table) validateLayout() error {
	if t.n == 0 {
		return nil
	}
	if want := intbits.FastModMultiplier(uint32(t.bucketCount)); t.multiplier != want {
		return fmt.Errorf("%w: fastmod multiplier %#x does not match bucket count %d", frozenerrors.ErrMalformedBlob, t.multiplier, t.bucketCount)
	}

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

	// Buckets must tile [0, itemCount) in order, and every entry must
	// fastmod-reduce to the bucket that physically holds it.
	pos := int32(0)
	for b := range t.bucketCount {
		start, end := t.bucketRange(b)
		if start != pos || end < start || int(end) > t.n {
			return fmt.Errorf("%w: bucket %d range [%d, %d) breaks the partition at position %d", frozenerrors.ErrMalformedBlob, b, start, end, pos)
		}
		for i := start; i < end; i++ {
			if got := intbits.FastMod32(uint32(t.hashAt(int(i))), uint32(t.bucketCount), t.multiplier); got != uint32(b) {
				return fmt.Errorf("%w: entry %d resides in bucket %d but hashes to bucket %d", frozenerrors.ErrMalformedBlob, i, b, got)
			}
		}
		pos = end
	}
	if int(pos) != t.n {
		return fmt.Errorf("%w: buckets cover %d of %d entries", frozenerrors.ErrMalformedBlob, pos, t.n)
	}
	return nil
}

func (t *Table) hashAt(i int) int32 {
	return int32At(t.data, t.hashesOff+4*i)
}

func (t *Table) valueAt(i int) int32 {
	return int32At(t.data, t.valuesOff+4*i)
}

func (t *Table) bucketRange(b int) (start, end int32) {
	return int32At(t.data, t.bucketsOff+8*b), int32At(t.data, t.bucketsOff+8*b+4)
}

// Key returns the key bytes of entry i in blob order. The slice aliases
// the blob; callers must not modify it.
func (t *Table) Key(i int) []byte {
	start := int(int32At(t.data, t.offsetsOff+4*i))
	end := t.keysLen
	if i+1 < t.n {
		end = int(int32At(t.data, t.offsetsOff+4*(i+1)))
	}
	return t.data[t.keysOff+start : t.keysOff+end]
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return t.n
}

// NumBuckets returns the number of hash buckets.
func (t *Table) NumBuckets() int {
	return t.bucketCount
}

// Lookup returns the value stored for key and whether key is present.
// It selects the bucket with a division-free fastmod reduction and scans
// the bucket's contiguous range, comparing the stored hash before touching
// key bytes.
func (t *Table) Lookup(key []byte) (int32, bool) {
	if t.n == 0 {
		return 0, false
	}
	h := keyHash(key)
	b := intbits.FastMod32(uint32(h), uint32(t.bucketCount), t.multiplier)
	start, end := t.bucketRange(int(b))
	for i := int(start); i < int(end); i++ {
		if t.hashAt(i) == h && bytes.Equal(t.Key(i), key) {
			return t.valueAt(i), true
		}
	}
	return 0, false
}

// Value returns the value stored for key, or ErrNotFound if key is absent.
// Prefer Lookup in hot paths; Value exists for callers that thread errors.
func (t *Table) Value(key []byte) (int32, error) {
	v, ok := t.Lookup(key)
	if !ok {
		return 0, frozenerrors.ErrNotFound
	}
	return v, nil
}

// Contains reports whether key is present in the table.
func (t *Table) Contains(key []byte) bool {
	_, ok := t.Lookup(key)
	return ok
}

// All returns an iterator over (key, value) pairs in blob order.
// Yielded key slices alias the blob and must not be modified.
func (t *Table) All() iter.Seq2[[]byte, int32] {
	return func(yield func([]byte, int32) bool) {
		for i := range t.n {
			if !yield(t.Key(i), t.valueAt(i)) {
				return
			}
		}
	}
}

// TableStats holds diagnostics for a loaded hash table.
type TableStats struct {
	Items         int
	Buckets       int
	KeyBytes      int
	BlobSize      int
	MaxBucketLen  int
	MeanBucketLen float64
}

// Stats returns diagnostics for the table, including bucket occupancy.
func (t *Table) Stats() TableStats {
	s := TableStats{
		Items:    t.n,
		Buckets:  t.bucketCount,
		KeyBytes: t.keysLen,
		BlobSize: len(t.data),
	}
	for b := range t.bucketCount {
		start, end := t.bucketRange(b)
		if occ := int(end - start); occ > s.MaxBucketLen {
			s.MaxBucketLen = occ
		}
	}
	if t.bucketCount > 0 {
		s.MeanBucketLen = float64(t.n) / float64(t.bucketCount)
	}
	return s
}

// Close releases the memory mapping backing a table opened via OpenTable.
// It is a no-op for tables loaded from caller-owned byte slices. Close must
// only be called after all lookups have completed.
func (t *Table) Close() error {
	if t.mmap != nil {
		mm := t.mmap
		t.mmap = nil
		t.data = nil
		return mm.Unmap()
	}
	return nil
}
