// Package frozen implements precompiled immutable key→index lookup tables.
//
// A table is compiled once, offline, from a set of distinct byte-string
// keys into a flat little-endian blob. The blob can be embedded as a
// constant, shipped over the network, or memory-mapped from disk; loading
// it back performs bounds validation only — no deserialization pass, no
// copy of the key bytes, no per-key allocation. Every lookup is pure slice
// arithmetic over the original blob bytes.
//
// Two variants are provided, trading blob simplicity against lookup cost:
//
//   - Sorted index (CompileSorted, LoadSorted): entries sorted by
//     (hash, key bytes); O(log n) binary-search lookup returning the key's
//     sorted position. Misses report the bitwise complement of the
//     insertion point, in the style of conventional binary-search APIs.
//   - Bucketed hash table (CompileTable, LoadTable): entries grouped into
//     contiguous bucket ranges selected by a division-free fastmod
//     reduction; O(1) average lookup returning an explicit per-key value.
//
// # Basic Usage
//
// Compiling and loading a hash table:
//
//	comp, err := frozen.CompileTable(entries)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tbl, err := frozen.LoadTable(comp.Blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, ok := tbl.Lookup([]byte("mykey"))
//
// Loading from a file via mmap:
//
//	tbl, err := frozen.OpenTable("lookup.ftbl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tbl.Close()
//
// Both compilers are deterministic: compiling the same key set in any input
// order yields a byte-identical blob, so blobs can be content-addressed,
// cached, and diffed.
//
// Tables are immutable after construction and safe for unlimited concurrent
// lookups without locking. A loaded table borrows the blob it was given;
// the caller must not mutate the blob while the table is in use, and an
// mmap-backed table must be Closed only after all lookups have completed.
//
// # Package Structure
//
//   - Public API: sorted.go (CompileSorted, SortedTable), table.go
//     (CompileTable, Table), file.go (OpenSorted, OpenTable)
//   - Serialization: blob.go (common header, checksum, layout constants)
//   - Hashing: hash.go (key hash and the (hash, bytes) total order)
//   - Reduction: internal/bits (fastmod multiplier and reduction)
//   - Platform: prefault_*.go (OS-specific mmap prefaulting)
package frozen
