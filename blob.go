package frozen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	frozenerrors "github.com/dkoltun/frozen/errors"
)

const (
	// magic number for frozen table blobs ("FZTB")
	magic = uint32(0x465A5442)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized common header (16 bytes)
	headerSize = 16

	// Blob kinds. The two layouts share the common header and diverge after
	// the item count.
	kindSorted = uint16(1)
	kindTable  = uint16(2)

	// maxKeyLength is the maximum key length accepted by the compilers.
	maxKeyLength = 65535

	// maxItems is the maximum entry count. The limit comes from the int32
	// item count and per-entry offsets in the blob layout.
	maxItems = math.MaxInt32
)

// sealBlob prepends the common header to body and returns the full blob.
//
// The common header precedes both blob layouts (16 bytes):
//
//	Offset  Size  Field     Type
//	0       4     Magic     0x465A5442 ("FZTB")
//	4       2     Version   0x0001
//	6       2     Kind      uint16_le (1=sorted index, 2=hash table)
//	8       8     Checksum  uint64_le (xxHash64 of every byte after the header)
//
// The checksum covers the entire body, including the trailing key bytes.
// Structural invariants alone cannot catch a truncation that only shortens
// the last key; the checksum closes that hole and rejects bit flips
// anywhere in the blob.
func sealBlob(kind uint16, body []byte) []byte {
	blob := make([]byte, headerSize+len(body))
	binary.LittleEndian.PutUint32(blob[0:4], magic)
	binary.LittleEndian.PutUint16(blob[4:6], version)
	binary.LittleEndian.PutUint16(blob[6:8], kind)
	copy(blob[headerSize:], body)
	binary.LittleEndian.PutUint64(blob[8:16], xxhash.Sum64(blob[headerSize:]))
	return blob
}

// verifyHeader validates the common header of blob against the expected
// kind and verifies the body checksum. On success the body starts at
// headerSize.
func verifyHeader(blob []byte, kind uint16) error {
	if len(blob) < headerSize {
		return frozenerrors.ErrTruncatedBlob
	}
	if binary.LittleEndian.Uint32(blob[0:4]) != magic {
		return frozenerrors.ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(blob[4:6]); v != version {
		return fmt.Errorf("%w: version %d", frozenerrors.ErrInvalidVersion, v)
	}
	if k := binary.LittleEndian.Uint16(blob[6:8]); k != kind {
		return fmt.Errorf("%w: kind %d", frozenerrors.ErrWrongKind, k)
	}
	if binary.LittleEndian.Uint64(blob[8:16]) != xxhash.Sum64(blob[headerSize:]) {
		return frozenerrors.ErrChecksumFailed
	}
	return nil
}

// int32At reads a little-endian int32 at byte offset off.
// Bounds are established once at load time; reads are unaligned-safe.
func int32At(data []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(data[off:]))
}

// putInt32 appends v to dst in little-endian order.
func putInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

// checkKey validates a compiler input key against the format's limits.
// Empty keys are rejected because the layout derives key lengths from
// adjacent offsets with the invariant keyOffsets[i] < len(keysBlob), which
// cannot represent a zero-length final key.
func checkKey(key []byte) error {
	if len(key) == 0 {
		return frozenerrors.ErrEmptyKey
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: %d bytes", frozenerrors.ErrKeyTooLong, len(key))
	}
	return nil
}
