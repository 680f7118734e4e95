package riscv

import "unsafe"

//////////////////////////////////////////////////////////////////
// RISC-V Trap Frame
//////////////////////////////////////////////////////////////////

// NumSavedRegisters is every general purpose register except x0, which is
// hardwired to zero and not worth a store/load pair.
const NumSavedRegisters = 31

// TrapFrame is the register state captured by the trap entry stub. The
// fields are laid out in register-number order (x1..x31) followed by the
// three CSRs sampled at entry. The assembly in boot/trap.S stores and
// reloads these slots by fixed offset, so the field order here is ABI:
// do not reorder, insert, or resize fields.
type TrapFrame struct {
	RA uint64 // x1, return address
	SP uint64 // x2, stack pointer at the time of the trap
	GP uint64 // x3, global pointer
	TP uint64 // x4, thread pointer

	T0 uint64 // x5
	T1 uint64 // x6
	T2 uint64 // x7

	S0 uint64 // x8, frame pointer
	S1 uint64 // x9

	A0 uint64 // x10
	A1 uint64 // x11
	A2 uint64 // x12
	A3 uint64 // x13
	A4 uint64 // x14
	A5 uint64 // x15
	A6 uint64 // x16
	A7 uint64 // x17

	S2  uint64 // x18
	S3  uint64 // x19
	S4  uint64 // x20
	S5  uint64 // x21
	S6  uint64 // x22
	S7  uint64 // x23
	S8  uint64 // x24
	S9  uint64 // x25
	S10 uint64 // x26
	S11 uint64 // x27

	T3 uint64 // x28
	T4 uint64 // x29
	T5 uint64 // x30
	T6 uint64 // x31

	Cause  uint64 // scause at entry
	EPC    uint64 // sepc: faulting/return program counter
	Status uint64 // sstatus at entry
}

// registerNames maps frame slot index (0 = RA = x1) to the assembler name.
var registerNames = [NumSavedRegisters]string{
	"ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

// RegisterName returns the assembler name of frame slot i, where slot 0
// holds x1 (ra) and slot 30 holds x31 (t6).
func RegisterName(i int) string {
	if i < 0 || i >= NumSavedRegisters {
		return "??"
	}
	return registerNames[i]
}

// Register returns the value in frame slot i. Slot i holds register x(i+1).
func (f *TrapFrame) Register(i int) uint64 {
	return f.slots()[i]
}

// SetRegister stores v into frame slot i.
func (f *TrapFrame) SetRegister(i int, v uint64) {
	f.slots()[i] = v
}

func (f *TrapFrame) slots() *[NumSavedRegisters]uint64 {
	// The 31 register fields are the leading, contiguous part of the
	// struct; trapframe_test.go pins this with unsafe.Offsetof.
	return (*[NumSavedRegisters]uint64)(unsafe.Pointer(f))
}
