//go:build riscv64

package riscv

// CSR access stubs implemented in csr_riscv64.s. The Go assembler has no
// CSR mnemonics, so each stub is a WORD-encoded instruction operating on
// the A0 argument register.

// SetTrapVector writes stvec. addr must be 4-byte aligned (direct mode).
func SetTrapVector(addr uintptr)

// SetStatusBits sets bits in sstatus (csrs).
func SetStatusBits(mask uintptr)

// ClearStatusBits clears bits in sstatus (csrc).
func ClearStatusBits(mask uintptr)

// SetInterruptEnable sets bits in sie (csrs).
func SetInterruptEnable(mask uintptr)

// ClearInterruptPending clears bits in sip (csrc).
func ClearInterruptPending(mask uintptr)

// ReadTime reads the free running time CSR, a shadow of mtime.
func ReadTime() uint64

// WaitForInterrupt stalls the hart until an interrupt becomes pending.
// May return spuriously; callers loop.
func WaitForInterrupt()
