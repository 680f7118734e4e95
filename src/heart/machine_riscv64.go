//go:build riscv64

package heart

import (
	"unsafe"

	"courage/src/hardware/riscv"
	"courage/src/lib/candor"
	"courage/src/sbi"
)

// trapVectorAddr returns the link-time address of trap_entry in
// boot/trap.S. Implemented in entry_riscv64.s so the reference is an
// ordinary relocation the external linker resolves.
func trapVectorAddr() uintptr

// machineArch backs the Arch interface with the real csr instructions.
type machineArch struct{}

func (machineArch) InstallTrapVector(addr uintptr) {
	riscv.SetTrapVector(addr &^ riscv.TrapVectorModeMask)
}

func (machineArch) EnableTrapSources() {
	riscv.SetInterruptEnable(riscv.InterruptEnableSupervisorSoftware |
		riscv.InterruptEnableSupervisorTimer |
		riscv.InterruptEnableSupervisorExternal)
	riscv.SetStatusBits(riscv.StatusSupervisorInterruptEnable)
}

func (machineArch) DisableTraps() {
	riscv.ClearStatusBits(riscv.StatusSupervisorInterruptEnable)
}

func (machineArch) ClearSoftwareInterrupt() {
	riscv.ClearInterruptPending(riscv.InterruptEnableSupervisorSoftware)
}

func (machineArch) Time() uint64 { return riscv.ReadTime() }

func (machineArch) Park() { riscv.WaitForInterrupt() }

// kernelInit is the first Go code to run, reached through the kinit
// trampoline in entry_riscv64.s. The boot stub has set up gp, a per-hart
// stack and a zeroed bss, parked the hart id in tp, and passed along the
// firmware's a0/a1 plus the image bounds the linker script pinned.
func kernelInit(hartID, fdt, imageStart, dataEnd uintptr) {
	boot := BootInfo{
		HartID:     uint32(hartID),
		DTB:        unsafe.Pointer(fdt),
		ImageStart: imageStart,
		DataEnd:    dataEnd,
		TrapVector: trapVectorAddr(),
	}
	k := NewKernel(machineArch{})
	if err := k.Init(boot, sbi.Machine{}); err != nil {
		// the console may not exist yet; Fatalf copes with a nil sink
		candor.Fatalf(1, "boot failed: %v", err)
		for {
			riscv.WaitForInterrupt()
		}
	}
	k.Run()
}

// dispatchTrap is reached through the trapDispatch trampoline once the
// save stub in trap.S has built the frame. The stub keeps the hart id in
// tp across the whole trap window, so the saved TP slot is authoritative.
func dispatchTrap(f *riscv.TrapFrame) {
	k := Current()
	if k == nil {
		// trap before Init finished; nothing can be saved
		for {
			riscv.WaitForInterrupt()
		}
	}
	k.Dispatch(uint32(f.TP), f)
}
