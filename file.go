package frozen

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// LoadOption is a functional option for configuring file-backed loads.
type LoadOption func(*loadConfig)

type loadConfig struct {
	prefault bool
}

// WithPrefault asks the kernel to fault the mapping in ahead of first use.
// Useful when the table is queried immediately after open and the blob is
// expected to be cold. Best-effort; unsupported platforms ignore it.
func WithPrefault() LoadOption {
	return func(c *loadConfig) {
		c.prefault = true
	}
}

// OpenSorted memory-maps the sorted-index blob at path and loads it.
// The returned table owns the mapping; call Close after all lookups have
// completed. Per POSIX mmap(2), the underlying file descriptor is closed
// before OpenSorted returns.
func OpenSorted(path string, opts ...LoadOption) (*SortedTable, error) {
	mm, err := mapBlobFile(path, opts)
	if err != nil {
		return nil, err
	}
	t, err := LoadSorted([]byte(mm))
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	t.mmap = mm
	return t, nil
}

// OpenTable memory-maps the hash-table blob at path and loads it.
// The returned table owns the mapping; call Close after all lookups have
// completed.
func OpenTable(path string, opts ...LoadOption) (*Table, error) {
	mm, err := mapBlobFile(path, opts)
	if err != nil {
		return nil, err
	}
	t, err := LoadTable([]byte(mm))
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	t.mmap = mm
	return t, nil
}

// mapBlobFile memory-maps the file at path read-only. The file descriptor
// is closed before returning; the mapping survives it.
func mapBlobFile(path string, opts []LoadOption) (mmap.MMap, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob file: %w", err)
	}
	defer file.Close()

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap blob file: %w", err)
	}
	if cfg.prefault {
		prefaultRegion(mm)
	}
	return mm, nil
}

// WriteFile writes the compiled blob to path.
func (c *SortedCompilation) WriteFile(path string) error {
	return os.WriteFile(path, c.Blob, 0o644)
}

// WriteFile writes the compiled blob to path.
func (c *TableCompilation) WriteFile(path string) error {
	return os.WriteFile(path, c.Blob, 0o644)
}
