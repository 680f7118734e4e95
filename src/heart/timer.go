package heart

import (
	"github.com/pkg/errors"

	"courage/src/hardware/riscv"
	"courage/src/lib/candor"
)

// OnTick registers the callback the timer interrupt fires. It runs once
// per interrupt, in trap context, and returns the tick of the next wanted
// wakeup; returning zero asks for the default cadence of one timebase
// second after the wakeup that just fired.
func (k *Kernel) OnTick(fn func(hart uint32, now uint64) uint64) {
	k.onTick = fn
}

// SetWakeup programs the firmware timer for the calling hart and records
// the deadline so the interrupt path knows what it is acknowledging.
func (k *Kernel) SetWakeup(hart uint32, tick uint64) error {
	if hart >= MaxHarts {
		return errors.Errorf("hart %d out of range", hart)
	}
	if err := k.FW.SetTimer(tick); err != nil {
		return errors.Wrapf(err, "arming timer for tick %d", tick)
	}
	k.harts[hart].deadline = tick
	return nil
}

// PendingWakeup reports the armed deadline for a hart, false when the
// timer is not armed.
func (k *Kernel) PendingWakeup(hart uint32) (uint64, bool) {
	if hart >= MaxHarts {
		return 0, false
	}
	d := k.harts[hart].deadline
	return d, d != noDeadline
}

// TimerInterrupts is the count of serviced timer interrupts on a hart.
func (k *Kernel) TimerInterrupts(hart uint32) uint64 {
	if hart >= MaxHarts {
		return 0
	}
	return k.harts[hart].timerIRQs
}

// timerInterrupt services a supervisor timer interrupt. Rearming through
// set_timer is also what clears the pending bit, so the hart always
// leaves here with a fresh deadline; a kernel that stops asking for timer
// interrupts stops having a clock.
func (k *Kernel) timerInterrupt(hart uint32, f *riscv.TrapFrame) {
	st := &k.harts[hart]
	st.timerIRQs++

	fired := st.deadline
	st.deadline = noDeadline
	now := k.Clock.Ticks()
	if fired == noDeadline {
		// spurious or first tick: anchor the cadence on the counter
		fired = now
	}

	var next uint64
	if k.onTick != nil {
		next = k.onTick(hart, now)
	}
	if next == 0 {
		// cadence anchored on the previous deadline, not on now, so
		// handler latency never accumulates into drift
		next = fired + k.Clock.Frequency()
	}
	if next <= now {
		next = now + 1
	}
	if err := k.SetWakeup(hart, next); err != nil {
		candor.Errorf("hart %d: rearm failed: %v", hart, err)
	}
}
