//go:build unix

package genheap

import (
	"golang.org/x/sys/unix"
)

// reserveSystemMemory reserves byteSize bytes of anonymous, page-aligned
// memory directly from the OS. The returned slice is the exact reserved
// range; mmap guarantees page alignment.
func reserveSystemMemory(byteSize uintptr) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(byteSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func releaseSystemMemory(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
