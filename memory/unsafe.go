package memory

import "unsafe"

// uintptrOf returns the virtual address backing the first byte of buf,
// the same unsafe.Pointer(&buf[0]) pattern the teacher uses to pin down
// a mmap'd slice's backing address.
func uintptrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&buf[0]))
}
