//go:build riscv64

package sbi

// Machine is the real firmware boundary: one ecall instruction with the
// fixed register convention. It blocks at the single-instruction level
// while firmware runs; there is no cancelling an in-flight call.
type Machine struct{}

func (Machine) Ecall(ext, fn uintptr, a0, a1, a2, a3, a4, a5 uintptr) (uintptr, uintptr) {
	return ecall(ext, fn, a0, a1, a2, a3, a4, a5)
}

// implemented in ecall_riscv64.s
func ecall(ext, fn, a0, a1, a2, a3, a4, a5 uintptr) (uintptr, uintptr)
