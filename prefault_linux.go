//go:build linux

package frozen

import "golang.org/x/sys/unix"

// prefaultRegion asks the kernel to read the mapped region ahead of first
// access. Best-effort: madvise failures are ignored.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}
