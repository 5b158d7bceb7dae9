package genheap

import (
	"fmt"
	"unsafe"
)

// ReservedSpace is a contiguous address-space reservation: the full
// extent a generation may ever occupy. The backing memory stays alive
// for as long as the ReservedSpace is referenced.
type ReservedSpace struct {
	backing []byte
	base    Address
	size    uintptr
}

// ReserveSpace reserves byteSize bytes of contiguous address space.
// The size is rounded up to whole heap words.
func ReserveSpace(byteSize uintptr) (ReservedSpace, error) {
	if byteSize == 0 {
		return ReservedSpace{}, &HeapError{
			Code:    ErrorInvalidSize,
			Message: "zero-size reservation",
		}
	}
	byteSize = alignUp(byteSize, WordSize)
	b, err := reserveSystemMemory(byteSize)
	if err != nil {
		return ReservedSpace{}, &HeapError{
			Code:    ErrorReservationFailed,
			Message: fmt.Sprintf("reserving %d bytes: %v", byteSize, err),
		}
	}
	return ReservedSpace{
		backing: b,
		base:    Address(uintptr(unsafe.Pointer(unsafe.SliceData(b)))),
		size:    byteSize,
	}, nil
}

// IsReserved reports whether the reservation holds memory.
func (rs ReservedSpace) IsReserved() bool { return rs.size > 0 }

// Base returns the first address of the reservation.
func (rs ReservedSpace) Base() Address { return rs.base }

// ByteSize returns the reserved extent in bytes.
func (rs ReservedSpace) ByteSize() uintptr { return rs.size }

// Region returns the reserved extent as an address interval.
func (rs ReservedSpace) Region() MemRegion {
	return MemRegion{Start: rs.base, End: rs.base + Address(rs.size)}
}

// Release returns the reservation to the OS. The caller must guarantee
// no generation still references the range.
func (rs *ReservedSpace) Release() error {
	err := releaseSystemMemory(rs.backing)
	rs.backing = nil
	rs.base = NilAddress
	rs.size = 0
	return err
}

// VirtualSpace tracks the committed portion of a ReservedSpace. A
// generation is the exclusive owner of its VirtualSpace; [Low, High)
// is committed and usable, [LowBoundary, HighBoundary) is the permanent
// reserved ceiling.
type VirtualSpace struct {
	rs        ReservedSpace
	committed uintptr
}

// Initialize binds the virtual space to rs and commits committedSize
// bytes of it. It fails when rs is empty or cannot satisfy the request.
func (vs *VirtualSpace) Initialize(rs ReservedSpace, committedSize uintptr) error {
	if !rs.IsReserved() {
		return &HeapError{
			Code:    ErrorReservationFailed,
			Message: "empty reservation",
		}
	}
	committedSize = alignUp(committedSize, WordSize)
	if committedSize > rs.size {
		return &HeapError{
			Code:    ErrorReservationFailed,
			Message: fmt.Sprintf("cannot commit %d bytes of a %d byte reservation", committedSize, rs.size),
		}
	}
	vs.rs = rs
	vs.committed = committedSize
	return nil
}

// Low returns the first committed address.
func (vs *VirtualSpace) Low() Address { return vs.rs.base }

// High returns the first address past the committed range.
func (vs *VirtualSpace) High() Address { return vs.rs.base + Address(vs.committed) }

// LowBoundary returns the first reserved address.
func (vs *VirtualSpace) LowBoundary() Address { return vs.rs.base }

// HighBoundary returns the first address past the reserved range.
func (vs *VirtualSpace) HighBoundary() Address { return vs.rs.base + Address(vs.rs.size) }

// CommittedSize returns the committed extent in bytes.
func (vs *VirtualSpace) CommittedSize() uintptr { return vs.committed }

// ReservedSize returns the reserved extent in bytes.
func (vs *VirtualSpace) ReservedSize() uintptr { return vs.rs.size }

// UncommittedSize returns the bytes still available for expansion.
func (vs *VirtualSpace) UncommittedSize() uintptr { return vs.rs.size - vs.committed }

// Contains reports whether p lies within the committed range.
func (vs *VirtualSpace) Contains(p Address) bool {
	return p >= vs.Low() && p < vs.High()
}

// ExpandBy grows the committed range by byteSize bytes, capped at the
// reservation boundary. It reports whether the full amount fit.
func (vs *VirtualSpace) ExpandBy(byteSize uintptr) bool {
	byteSize = alignUp(byteSize, WordSize)
	if byteSize > vs.UncommittedSize() {
		return false
	}
	vs.committed += byteSize
	return true
}

// ShrinkBy gives back byteSize committed bytes. It reports whether the
// committed range was large enough.
func (vs *VirtualSpace) ShrinkBy(byteSize uintptr) bool {
	byteSize = alignUp(byteSize, WordSize)
	if byteSize > vs.committed {
		return false
	}
	vs.committed -= byteSize
	return true
}
