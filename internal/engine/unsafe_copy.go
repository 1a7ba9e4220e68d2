package engine

import "unsafe"

// copyToPointer and copyFromPointer move bytes between a mapped device
// memory window and a Go slice — the same raw-pointer pattern the
// teacher's MemoryAllocation.Mapped field exists for (pkg/vk/memory.go),
// just pushed down to the point of actual use instead of stored long-term.
func copyToPointer(dst unsafe.Pointer, src []byte) {
	if len(src) == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(dst), len(src))
	copy(dstSlice, src)
}

func copyFromPointer(dst []byte, src unsafe.Pointer) {
	if len(dst) == 0 {
		return
	}
	srcSlice := unsafe.Slice((*byte)(src), len(dst))
	copy(dst, srcSlice)
}

// unsafePointerOf returns v's address as an unsafe.Pointer; OpenDevice
// casts it to the stable 64-bit diagnostic handle used for Engine's
// DeviceLost{Handle} id.
func unsafePointerOf(v *vkDevice) unsafe.Pointer {
	return unsafe.Pointer(v)
}
