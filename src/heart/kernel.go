// Package heart is the kernel proper: it takes the machine as the boot
// stub left it, discovers the hardware, and brings up traps, the timer
// and the console. Everything below it (sbi, dtb, bump, candor) is policy
// free; heart is where the decisions live.
package heart

import (
	"github.com/pkg/errors"

	"courage/src/hardware/riscv"
	"courage/src/lib/bump"
	"courage/src/lib/candor"
	"courage/src/lib/dtb"
	"courage/src/sbi"
)

const noDeadline = ^uint64(0)

// heapAlign is the alignment of the heap's first byte. Generous enough
// for any structure the kernel hands out early.
const heapAlign = 16

type hartState struct {
	inTrap       bool
	deadline     uint64 // tick of the pending wakeup, noDeadline if none
	timerIRQs    uint64
	softwareIRQs uint64
	externalIRQs uint64
}

// Kernel is the singleton that owns the machine. There is exactly one,
// package-level, because there is exactly one machine; tests build their
// own instances around fakes.
type Kernel struct {
	Boot    BootInfo
	FW      *sbi.Client
	Facts   *dtb.HardwareFacts
	Heap    *bump.Region
	Clock   *Clock
	Console *Console

	arch   Arch
	harts  [MaxHarts]hartState
	onTick func(hart uint32, now uint64) uint64

	interruptHandlers [riscv.MaxCauseCode]TrapHandler
	exceptionHandlers [riscv.MaxCauseCode]TrapHandler
}

var kernel *Kernel

// Current returns the live kernel, nil before Init.
func Current() *Kernel { return kernel }

func NewKernel(arch Arch) *Kernel {
	k := &Kernel{arch: arch}
	for i := range k.harts {
		k.harts[i].deadline = noDeadline
	}
	k.interruptHandlers[riscv.InterruptSupervisorSoftware] = (*Kernel).softwareInterrupt
	k.interruptHandlers[riscv.InterruptSupervisorTimer] = (*Kernel).timerInterrupt
	k.interruptHandlers[riscv.InterruptSupervisorExternal] = (*Kernel).externalInterrupt
	return k
}

// Init brings the kernel up in dependency order: firmware first so there
// is a console to complain on, then hardware discovery, then memory, then
// traps. Any error is fatal to boot; there is no degraded mode.
func (k *Kernel) Init(boot BootInfo, fw sbi.Firmware) error {
	initErrors()
	k.Boot = boot

	client, err := sbi.Probe(fw)
	if err != nil {
		return errors.Wrap(err, KernelErrorMessage(MakeError(ErrorFirmwareNoBase, boot.HartID)))
	}
	k.FW = client
	k.Console = NewConsole(client)
	candor.SetOutput(k.Console)
	candor.OnFatal(k.fatal)
	candor.Infof("firmware: sbi %s", client.SpecVersion())

	facts, err := dtb.ExtractRaw(boot.DTB)
	if err != nil {
		return errors.Wrap(err, KernelErrorMessage(MakeError(ErrorDiscoveryBadTree, boot.HartID)))
	}
	k.Facts = facts

	if err := k.carveHeap(); err != nil {
		return err
	}

	k.Clock = NewClock(facts.TimebaseFreq, k.arch.Time)

	kernel = k
	k.arch.InstallTrapVector(boot.TrapVector)
	k.arch.EnableTrapSources()
	return nil
}

// carveHeap gives the allocator everything in the kernel's RAM region
// above the image, minus firmware reservations.
func (k *Kernel) carveHeap() error {
	region, ok := k.imageRegion()
	if !ok {
		return errors.New(KernelErrorMessage(MakeError(ErrorDiscoveryImageOutsideRAM, k.Boot.HartID)))
	}

	start := uint64(k.Boot.DataEnd)
	if start%heapAlign != 0 {
		start += heapAlign - start%heapAlign
	}
	end := region.End()

	// Firmware reservations punch holes; push the start past any that
	// cover it and clip the end at the first one above. The reservation
	// block is not sorted, so pushing past one entry can land inside an
	// earlier-listed one: rescan until no entry covers the start.
	for moved := true; moved; {
		moved = false
		for _, r := range k.Facts.Reserved {
			if r.Base <= start && start < r.End() {
				start = r.End()
				if start%heapAlign != 0 {
					start += heapAlign - start%heapAlign
				}
				moved = true
			}
		}
	}
	for _, r := range k.Facts.Reserved {
		if r.Base > start && r.Base < end {
			end = r.Base
		}
	}
	if start >= end {
		return errors.New(KernelErrorMessage(MakeError(ErrorMemoryNoRoomForHeap, k.Boot.HartID)))
	}

	heap, err := bump.New(uintptr(start), uintptr(end))
	if err != nil {
		return errors.Wrap(err, KernelErrorMessage(MakeError(ErrorMemoryNoRoomForHeap, k.Boot.HartID)))
	}
	k.Heap = heap
	return nil
}

// imageRegion finds the discovered memory region the kernel image sits
// in. The whole image must fit in one region.
func (k *Kernel) imageRegion() (dtb.Region, bool) {
	lo := uint64(k.Boot.ImageStart)
	hi := uint64(k.Boot.DataEnd)
	for _, m := range k.Facts.Memory {
		if m.Base <= lo && hi <= m.End() {
			return m, true
		}
	}
	return dtb.Region{}, false
}

// LogFacts prints the discovered hardware, one line per fact, at boot.
func (k *Kernel) LogFacts() {
	for _, m := range k.Facts.Memory {
		candor.Infof("memory: %#x..%#x (%d MB)", m.Base, m.End(), m.Size>>20)
	}
	for _, r := range k.Facts.Reserved {
		candor.Infof("reserved: %#x..%#x", r.Base, r.End())
	}
	for _, h := range k.Facts.Harts {
		status := "okay"
		if !h.Enabled {
			status = "disabled"
		}
		candor.Infof("hart %d: %s (%s)", h.ID, h.ISA, status)
	}
	candor.Infof("uart: %#x irq %d", k.Facts.UART.Reg.Base, k.Facts.UART.Interrupt)
	candor.Infof("plic: %#x", k.Facts.PLIC.Reg.Base)
	candor.Infof("timebase: %d Hz", k.Facts.TimebaseFreq)
	candor.Infof("heap: %#x..%#x (%d KB free)", k.Heap.Start(), k.Heap.End(),
		k.Heap.Remaining()>>10)
}

// Shutdown asks the firmware to power the machine off and parks the hart
// if the firmware will not cooperate.
func (k *Kernel) Shutdown() {
	candor.Infof("shutting down")
	if err := k.FW.Shutdown(); err != nil {
		candor.Errorf("shutdown refused: %v", err)
	}
	for {
		k.arch.Park()
	}
}

// fatal is the candor escalation hook: report, try to stop the machine,
// and never return.
func (k *Kernel) fatal(code int) {
	k.arch.DisableTraps()
	candor.Errorf("unrecoverable, code %d", code)
	if k.FW != nil {
		_ = k.FW.SystemReset(sbi.ResetShutdown, sbi.ReasonSystemFailure)
		_ = k.FW.Shutdown()
	}
	for {
		k.arch.Park()
	}
}
