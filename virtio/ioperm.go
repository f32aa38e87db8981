package virtio

import "golang.org/x/sys/unix"

// acquirePortAccess raises the process I/O privilege level so the inb/outb
// family of instructions stop faulting. It must be called once before any
// legacy virtio device is touched; like hugepage allocation, it requires
// the process to run privileged (CAP_SYS_RAWIO in practice).
func acquirePortAccess() error {
	return unix.Iopl(3)
}
