package heart

import (
	"courage/src/lib/candor"
	"courage/src/sbi"
)

const banner = "courage: riscv64 supervisor kernel"

// Run is the kernel's steady state after Init: print what was found, get
// the timer ticking on the boot hart, then echo the console until asked
// to quit. 'q' shuts the machine down. This loop never returns.
func (k *Kernel) Run() {
	candor.Infof("%s", banner)
	k.LogFacts()

	first := k.Clock.Ticks() + k.Clock.Frequency()
	if err := k.SetWakeup(k.Boot.HartID, first); err != nil {
		candor.Errorf("timer not armed: %v", err)
	}

	haveSuspend := true
	for {
		b, ok := k.Console.ReadByte()
		if !ok {
			// idle until the next interrupt: retentive suspend hands
			// the hart to firmware, wfi is the fallback
			if haveSuspend {
				if err := k.FW.HartSuspend(); err != nil {
					haveSuspend = false
				}
				continue
			}
			k.arch.Park()
			continue
		}
		switch b {
		case 'q':
			k.Shutdown()
		case 't':
			candor.Infof("uptime %v (%d ticks)", k.Clock.Uptime(), k.Clock.Ticks())
		case 'i':
			// poke ourselves with a software interrupt; the dispatcher's
			// counter proves the whole trap path round trips
			if err := k.FW.SendIPI(sbi.Single(k.Boot.HartID)); err != nil {
				candor.Errorf("ipi: %v", err)
			}
		case '\r':
			k.Console.Write([]byte{'\n'})
		default:
			k.Console.Write([]byte{b})
		}
	}
}
