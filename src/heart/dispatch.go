package heart

import (
	"courage/src/hardware/riscv"
	"courage/src/lib/candor"
)

// TrapHandler services one decoded cause on one hart. The frame is live:
// writes to it land in the interrupted context when the stub restores it.
type TrapHandler func(k *Kernel, hart uint32, f *riscv.TrapFrame)

// Fatal exit codes handed to the candor hook. Small and distinct so they
// survive into a reset reason or an exit status.
const (
	fatalCodeUnrecognizedTrap = 10
	fatalCodeReentrantTrap    = 11
	fatalCodeBadHart          = 12
)

// RegisterInterrupt installs a handler for an interrupt cause code,
// returning the previous one. Passing nil restores always-fatal.
func (k *Kernel) RegisterInterrupt(code uint64, h TrapHandler) TrapHandler {
	if code >= riscv.MaxCauseCode {
		return nil
	}
	prev := k.interruptHandlers[code]
	k.interruptHandlers[code] = h
	return prev
}

// RegisterException installs a handler for an exception cause code,
// returning the previous one.
func (k *Kernel) RegisterException(code uint64, h TrapHandler) TrapHandler {
	if code >= riscv.MaxCauseCode {
		return nil
	}
	prev := k.exceptionHandlers[code]
	k.exceptionHandlers[code] = h
	return prev
}

// Dispatch is the go side of the trap path. The entry stub has already
// saved the 31 general registers plus scause/sepc/sstatus into the frame;
// this routes on the cause and the stub restores whatever state the
// handler left. A trap nobody claims is always fatal: limping past an
// unexplained fault corrupts more than it saves.
func (k *Kernel) Dispatch(hart uint32, f *riscv.TrapFrame) {
	if hart >= MaxHarts {
		candor.Fatalf(fatalCodeBadHart, "%s",
			KernelErrorMessage(MakeError(ErrorTrapBadHart, hart)))
		return
	}
	st := &k.harts[hart]
	if st.inTrap {
		// the trap handler itself trapped; state is gone
		k.dumpFrame(hart, f)
		candor.Fatalf(fatalCodeReentrantTrap, "%s",
			KernelErrorMessage(MakeError(ErrorTrapReentered, hart)))
		return
	}
	st.inTrap = true
	defer func() { st.inTrap = false }()

	cause := riscv.DecodeCause(f.Cause)
	var h TrapHandler
	if cause.Code < riscv.MaxCauseCode {
		if cause.Interrupt {
			h = k.interruptHandlers[cause.Code]
		} else {
			h = k.exceptionHandlers[cause.Code]
		}
	}
	if h == nil {
		k.dumpFrame(hart, f)
		candor.Fatalf(fatalCodeUnrecognizedTrap, "%s: %s (scause %#x)",
			KernelErrorMessage(MakeError(ErrorTrapUnrecognizedCause, hart)),
			cause.Name(), f.Cause)
		return
	}
	h(k, hart, f)
}

func (k *Kernel) softwareInterrupt(hart uint32, f *riscv.TrapFrame) {
	k.arch.ClearSoftwareInterrupt()
	k.harts[hart].softwareIRQs++
	candor.Debugf("hart %d: software interrupt", hart)
}

func (k *Kernel) externalInterrupt(hart uint32, f *riscv.TrapFrame) {
	// no plic driver yet: count it so the fact is visible, and rely on
	// the controller masking to keep it from storming
	k.harts[hart].externalIRQs++
	candor.Debugf("hart %d: external interrupt", hart)
}

// dumpFrame prints the complete saved context, one register per line, the
// way you want it when staring at a crash over a serial port.
func (k *Kernel) dumpFrame(hart uint32, f *riscv.TrapFrame) {
	cause := riscv.DecodeCause(f.Cause)
	candor.Errorf("hart %d trap: %s", hart, cause.Name())
	candor.Errorf("sepc=%016x sstatus=%016x scause=%016x", f.EPC, f.Status, f.Cause)
	for i := 0; i < riscv.NumSavedRegisters; i += 2 {
		if i+1 < riscv.NumSavedRegisters {
			candor.Errorf("%4s=%016x %4s=%016x",
				riscv.RegisterName(i), f.Register(i),
				riscv.RegisterName(i+1), f.Register(i+1))
		} else {
			candor.Errorf("%4s=%016x", riscv.RegisterName(i), f.Register(i))
		}
	}
}
