//go:build !linux

package frozen

// prefaultRegion is a no-op on platforms without madvise support.
func prefaultRegion(data []byte) {
}
