package dtb

// HardwareFacts is everything the kernel needs to know about the machine,
// pulled from the device tree in one pass at boot. It is built exactly
// once, fully populated or not at all, and is read-only from then on.
type HardwareFacts struct {
	// Memory holds the RAM regions from /memory reg entries.
	Memory []Region
	// Reserved holds the blob's memory reservation block entries;
	// firmware claims these ranges and the kernel must not allocate
	// from them.
	Reserved []Region
	// UART is the console device the serial driver will program.
	UART UART
	// PLIC is the platform interrupt controller.
	PLIC PLIC
	// TimebaseFreq is ticks per second of the free running counter.
	TimebaseFreq uint64
	// Harts describes every cpu node, enabled or not, in blob order.
	Harts []Hart
}

// Region is a physical address range.
type Region struct {
	Base uint64
	Size uint64
}

// End returns the first address past the region.
func (r Region) End() uint64 { return r.Base + r.Size }

// UART holds the configuration facts for the ns16550a console device.
// Programming its registers is driver territory, not ours.
type UART struct {
	Reg             Region
	Interrupt       uint32
	InterruptParent uint32
	ClockFreq       uint32
}

// PLIC holds the interrupt controller's MMIO window and phandle.
type PLIC struct {
	Reg     Region
	Phandle uint32
}

// Hart describes one cpu node.
type Hart struct {
	ID  uint32
	ISA string
	// Enabled is the node's status property: "okay" (or absent) means
	// the hart may be brought up.
	Enabled bool
}

// EnabledHarts counts the harts reported as usable.
func (f *HardwareFacts) EnabledHarts() int {
	n := 0
	for _, h := range f.Harts {
		if h.Enabled {
			n++
		}
	}
	return n
}

// TotalMemory sums the RAM region sizes.
func (f *HardwareFacts) TotalMemory() uint64 {
	var n uint64
	for _, m := range f.Memory {
		n += m.Size
	}
	return n
}
