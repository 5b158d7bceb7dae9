//go:build !unix

package genheap

import "unsafe"

const reserveAlignment = 4096

// reserveSystemMemory reserves byteSize bytes from the Go heap, aligned
// to page granularity. The subslice keeps the full backing array alive.
func reserveSystemMemory(byteSize uintptr) ([]byte, error) {
	mem := make([]byte, byteSize+reserveAlignment)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	off := alignUp(base, reserveAlignment) - base
	return mem[off : off+byteSize : off+byteSize], nil
}

func releaseSystemMemory(b []byte) error {
	return nil
}
