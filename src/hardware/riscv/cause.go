package riscv

//////////////////////////////////////////////////////////////////
// scause decoding
//////////////////////////////////////////////////////////////////

// The interrupt bit lives in the top bit of scause; the rest is the cause
// code. Privileged spec v20211203, table 4.2.
const causeInterruptFlag = uint64(1) << 63

// Interrupt cause codes (scause with bit 63 set).
const (
	InterruptSupervisorSoftware = 1
	InterruptSupervisorTimer    = 5
	InterruptSupervisorExternal = 9
)

// Exception cause codes (scause with bit 63 clear).
const (
	ExceptionInstructionMisaligned  = 0
	ExceptionInstructionAccessFault = 1
	ExceptionIllegalInstruction     = 2
	ExceptionBreakpoint             = 3
	ExceptionLoadMisaligned         = 4
	ExceptionLoadAccessFault        = 5
	ExceptionStoreMisaligned        = 6
	ExceptionStoreAccessFault       = 7
	ExceptionEcallFromUser          = 8
	ExceptionEcallFromSupervisor    = 9
	ExceptionInstructionPageFault   = 12
	ExceptionLoadPageFault          = 13
	ExceptionStorePageFault         = 15
)

// MaxCauseCode bounds the dispatch tables. Anything at or beyond this is
// unrecognized by construction.
const MaxCauseCode = 16

// Cause is a decoded scause value.
type Cause struct {
	Interrupt bool
	Code      uint64
}

// DecodeCause splits a raw scause register value into its interrupt class
// bit and cause code.
func DecodeCause(scause uint64) Cause {
	return Cause{
		Interrupt: scause&causeInterruptFlag != 0,
		Code:      scause &^ causeInterruptFlag,
	}
}

var interruptNames = [MaxCauseCode]string{
	InterruptSupervisorSoftware: "supervisor software interrupt",
	InterruptSupervisorTimer:    "supervisor timer interrupt",
	InterruptSupervisorExternal: "supervisor external interrupt",
}

var exceptionNames = [MaxCauseCode]string{
	ExceptionInstructionMisaligned:  "instruction address misaligned",
	ExceptionInstructionAccessFault: "instruction access fault",
	ExceptionIllegalInstruction:     "illegal instruction",
	ExceptionBreakpoint:             "breakpoint",
	ExceptionLoadMisaligned:         "load address misaligned",
	ExceptionLoadAccessFault:        "load access fault",
	ExceptionStoreMisaligned:        "store/AMO address misaligned",
	ExceptionStoreAccessFault:       "store/AMO access fault",
	ExceptionEcallFromUser:          "environment call from U-mode",
	ExceptionEcallFromSupervisor:    "environment call from S-mode",
	ExceptionInstructionPageFault:   "instruction page fault",
	ExceptionLoadPageFault:          "load page fault",
	ExceptionStorePageFault:         "store/AMO page fault",
}

// Name returns a human readable description of the cause, or "unknown"
// for codes outside the recognized tables.
func (c Cause) Name() string {
	var n string
	if c.Code < MaxCauseCode {
		if c.Interrupt {
			n = interruptNames[c.Code]
		} else {
			n = exceptionNames[c.Code]
		}
	}
	if n == "" {
		if c.Interrupt {
			return "unknown interrupt"
		}
		return "unknown exception"
	}
	return n
}
