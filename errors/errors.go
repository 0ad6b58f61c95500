// Package errors defines all exported error sentinels for the frozen library.
//
// This is the single source of truth for error values. Both the top-level
// frozen package and any internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Compile errors
var (
	ErrDuplicateKey = errors.New("frozen: duplicate key in input set")
	ErrEmptyKey     = errors.New("frozen: empty key is not representable")
	ErrKeyTooLong   = errors.New("frozen: key exceeds maximum length (65535 bytes)")
	ErrTooManyKeys  = errors.New("frozen: key count exceeds maximum (2^31-1)")
	ErrBlobTooLarge = errors.New("frozen: total key bytes exceed maximum (2^31-1)")
)

// Load errors
var (
	ErrInvalidMagic   = errors.New("frozen: invalid magic number")
	ErrInvalidVersion = errors.New("frozen: unsupported format version")
	ErrWrongKind      = errors.New("frozen: blob encodes a different table kind")
	ErrChecksumFailed = errors.New("frozen: blob checksum verification failed")
	ErrTruncatedBlob  = errors.New("frozen: blob is truncated")
	ErrMalformedBlob  = errors.New("frozen: blob layout invariant violated")
)

// Lookup errors
var (
	ErrNotFound = errors.New("frozen: key not found")
)
