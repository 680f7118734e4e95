package riscv

// ***************************************
// sstatus, Supervisor Status Register. Privileged spec v20211203 §4.1.1.
// ***************************************

const (
	StatusSupervisorInterruptEnable     = 1 << 1 // SIE
	StatusSupervisorPriorInterruptEnbl  = 1 << 5 // SPIE
	StatusSupervisorPreviousPrivilege   = 1 << 8 // SPP: 0=U, 1=S
	StatusFloatingPointStateMask        = 3 << 13
	StatusSupervisorUserMemoryAccess    = 1 << 18 // SUM
	StatusMakeExecutableReadable        = 1 << 19 // MXR
)

// ***************************************
// sie/sip, Supervisor Interrupt Enable/Pending. §4.1.3.
// ***************************************

const (
	InterruptEnableSupervisorSoftware = 1 << 1 // SSIE / SSIP
	InterruptEnableSupervisorTimer    = 1 << 5 // STIE / STIP
	InterruptEnableSupervisorExternal = 1 << 9 // SEIE / SEIP
)

// ***************************************
// stvec, Supervisor Trap Vector. §4.1.2.
// ***************************************

// stvec mode field (low two bits). The trap entry stub is direct-mode,
// so its address must be at least 4-byte aligned with mode zero.
const (
	TrapVectorModeDirect   = 0
	TrapVectorModeVectored = 1
	TrapVectorModeMask     = 3
)
