package heart

import "unsafe"

// MaxHarts bounds the per-hart bookkeeping. QEMU virt tops out well below
// this; a tree declaring more harts still extracts, the extras just never
// get brought online.
const MaxHarts = 32

// BootInfo is everything the boot stub hands the kernel: the values the
// previous stage placed in registers plus the addresses the linker script
// pinned. It is assembled once, in the entry shim, and treated as
// read-only afterwards.
type BootInfo struct {
	// HartID is the hart the firmware chose to boot on.
	HartID uint32

	// DTB is the device tree blob pointer from the firmware, untouched.
	DTB unsafe.Pointer

	// ImageStart and DataEnd bracket everything the linker placed: text,
	// rodata, data and bss. Memory below DataEnd is never handed to the
	// allocator.
	ImageStart uintptr
	DataEnd    uintptr

	// TrapVector is the address of the trap save/restore stub. Must be
	// 4-byte aligned since it goes into stvec in direct mode.
	TrapVector uintptr
}

// Arch is the thin layer of privileged-instruction operations the kernel
// needs. The real machine backs this with csr instructions; tests back it
// with a recorder, because single-stepping sstatus writes in a unit test
// is not a thing.
type Arch interface {
	// InstallTrapVector writes the trap entry address into stvec.
	InstallTrapVector(addr uintptr)

	// EnableTrapSources turns on the software, timer and external
	// interrupt enables and then the global supervisor interrupt enable.
	EnableTrapSources()

	// DisableTraps clears the global supervisor interrupt enable.
	DisableTraps()

	// ClearSoftwareInterrupt acknowledges a pending supervisor software
	// interrupt. Timer pending clears on the next set_timer call and
	// external pending is owned by the interrupt controller, so only the
	// software bit needs an explicit clear.
	ClearSoftwareInterrupt()

	// Time reads the time csr: ticks of the platform timebase.
	Time() uint64

	// Park stalls the hart until something interesting happens. Allowed
	// to return spuriously.
	Park()
}
