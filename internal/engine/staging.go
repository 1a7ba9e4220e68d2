//go:build unix

package engine

import "golang.org/x/sys/unix"

// stagingBuffer is a page-aligned, anonymously-mapped host buffer used
// as the round-trip intermediary for DeviceBuffer.Transfer when the
// source and destination buffers live on different engines.
// A plain make([]byte, n) is not guaranteed page-aligned, which some
// Vulkan implementations require for the host-visible copy path; mmap'd
// anonymous memory always is, the same guarantee io_uring's ring buffers
// lean on for DMA-friendly host memory.
type stagingBuffer struct {
	mem []byte
}

func newStagingBuffer(size int) (*stagingBuffer, error) {
	if size == 0 {
		return &stagingBuffer{}, nil
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &stagingBuffer{mem: mem}, nil
}

func (s *stagingBuffer) bytes() []byte { return s.mem }

func (s *stagingBuffer) release() {
	if len(s.mem) == 0 {
		return
	}
	_ = unix.Munmap(s.mem)
}
