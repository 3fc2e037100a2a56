//go:build linux || darwin || freebsd

package vmem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// reserve maps size bytes of anonymous, inaccessible address space. Pages
// become usable only once commit flips them to read/write.
func reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// commit makes the page-aligned range mem read/write.
func commit(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE)
}

// release unmaps the whole reservation.
func release(mem []byte) error {
	err := unix.Munmap(mem)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
