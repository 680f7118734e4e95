package dtb

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

// blobBuilder assembles a syntactically valid flattened tree in memory
// so the tests never depend on dtc or a fixture file.
type blobBuilder struct {
	reserved  [][2]uint64
	structure bytes.Buffer
	strs      bytes.Buffer
	strOff    map[string]uint32
	version   uint32
	lastComp  uint32
	badMagic  bool
}

func newBlob() *blobBuilder {
	return &blobBuilder{
		strOff:   map[string]uint32{},
		version:  17,
		lastComp: 16,
	}
}

func (b *blobBuilder) reserve(base, size uint64) {
	b.reserved = append(b.reserved, [2]uint64{base, size})
}

func (b *blobBuilder) token(t uint32) {
	binary.Write(&b.structure, binary.BigEndian, t)
}

func (b *blobBuilder) pad() {
	for b.structure.Len()%4 != 0 {
		b.structure.WriteByte(0)
	}
}

func (b *blobBuilder) begin(name string) {
	b.token(fdtBeginNode)
	b.structure.WriteString(name)
	b.structure.WriteByte(0)
	b.pad()
}

func (b *blobBuilder) end() {
	b.token(fdtEndNode)
}

func (b *blobBuilder) nameOffset(name string) uint32 {
	if off, ok := b.strOff[name]; ok {
		return off
	}
	off := uint32(b.strs.Len())
	b.strs.WriteString(name)
	b.strs.WriteByte(0)
	b.strOff[name] = off
	return off
}

func (b *blobBuilder) prop(name string, val []byte) {
	b.token(fdtProp)
	binary.Write(&b.structure, binary.BigEndian, uint32(len(val)))
	binary.Write(&b.structure, binary.BigEndian, b.nameOffset(name))
	b.structure.Write(val)
	b.pad()
}

func (b *blobBuilder) propU32(name string, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.prop(name, buf[:])
}

func (b *blobBuilder) propStr(name, v string) {
	b.prop(name, append([]byte(v), 0))
}

func cells(vals ...uint32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func cells64(vals ...uint64) []byte {
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(out[8*i:], v)
	}
	return out
}

func (b *blobBuilder) finish() []byte {
	b.token(fdtEnd)

	rsvOff := uint32(headerSize)
	rsvSize := uint32(16 * (len(b.reserved) + 1))
	structOff := rsvOff + rsvSize
	structSize := uint32(b.structure.Len())
	strsOff := structOff + structSize
	strsSize := uint32(b.strs.Len())
	total := strsOff + strsSize

	var out bytes.Buffer
	magic := uint32(fdtMagic)
	if b.badMagic {
		magic = 0xfeedface
	}
	binary.Write(&out, binary.BigEndian, magic)
	binary.Write(&out, binary.BigEndian, total)
	binary.Write(&out, binary.BigEndian, structOff)
	binary.Write(&out, binary.BigEndian, strsOff)
	binary.Write(&out, binary.BigEndian, rsvOff)
	binary.Write(&out, binary.BigEndian, b.version)
	binary.Write(&out, binary.BigEndian, b.lastComp)
	binary.Write(&out, binary.BigEndian, uint32(0)) // boot cpuid
	binary.Write(&out, binary.BigEndian, strsSize)
	binary.Write(&out, binary.BigEndian, structSize)
	for _, r := range b.reserved {
		binary.Write(&out, binary.BigEndian, r[0])
		binary.Write(&out, binary.BigEndian, r[1])
	}
	binary.Write(&out, binary.BigEndian, uint64(0))
	binary.Write(&out, binary.BigEndian, uint64(0))
	out.Write(b.structure.Bytes())
	out.Write(b.strs.Bytes())
	return out.Bytes()
}

// virtBlob mimics the shape of the tree QEMU's virt machine hands over:
// 64 bit root cells, a timebase on /cpus, two harts, one ns16550 and a
// plic under /soc with 32 bit cells.
func virtBlob(withPlic bool) *blobBuilder {
	b := newBlob()
	b.begin("")
	b.propU32("#address-cells", 2)
	b.propU32("#size-cells", 2)

	b.begin("memory@80000000")
	b.propStr("device_type", "memory")
	b.prop("reg", cells64(0x80000000, 0x400000000))
	b.end()

	b.begin("cpus")
	b.propU32("#address-cells", 1)
	b.propU32("#size-cells", 0)
	b.propU32("timebase-frequency", 0xf4240)
	b.begin("cpu@0")
	b.propStr("device_type", "cpu")
	b.prop("reg", cells(0))
	b.propStr("riscv,isa", "rv64imafdc")
	b.propStr("status", "okay")
	b.end()
	b.begin("cpu@1")
	b.propStr("device_type", "cpu")
	b.prop("reg", cells(1))
	b.propStr("riscv,isa", "rv64imafdc")
	b.end()
	b.end()

	b.begin("soc")
	b.propU32("#address-cells", 2)
	b.propU32("#size-cells", 2)
	b.begin("uart@10010000")
	b.prop("compatible", append(append([]byte("ns16550a"), 0), 0))
	b.prop("reg", cells64(0x10010000, 0x100))
	b.propU32("interrupts", 0x0a)
	b.propU32("interrupt-parent", 0x03)
	b.propU32("clock-frequency", 3686400)
	b.end()
	if withPlic {
		b.begin("plic@c000000")
		b.propStr("compatible", "sifive,plic-1.0.0")
		b.prop("reg", cells64(0xc000000, 0x4000000))
		b.propU32("phandle", 0x03)
		b.end()
	}
	b.end()

	b.end()
	return b
}

func TestExtractVirtTree(t *testing.T) {
	facts, err := Extract(virtBlob(true).finish())
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(facts.Memory) != 1 {
		t.Fatalf("expected 1 memory region, got %d", len(facts.Memory))
	}
	mem := facts.Memory[0]
	if mem.Base != 0x80000000 || mem.Size != 0x400000000 {
		t.Errorf("memory region %#x+%#x", mem.Base, mem.Size)
	}
	if mem.End() != 0x480000000 {
		t.Errorf("memory end %#x", mem.End())
	}
	if facts.UART.Reg.Base != 0x10010000 {
		t.Errorf("uart base %#x", facts.UART.Reg.Base)
	}
	if facts.UART.Interrupt != 0x0a || facts.UART.InterruptParent != 0x03 {
		t.Errorf("uart irq %d parent %d", facts.UART.Interrupt, facts.UART.InterruptParent)
	}
	if facts.PLIC.Reg.Base != 0xc000000 || facts.PLIC.Phandle != 0x03 {
		t.Errorf("plic %#x phandle %d", facts.PLIC.Reg.Base, facts.PLIC.Phandle)
	}
	if facts.TimebaseFreq != 1000000 {
		t.Errorf("timebase %d", facts.TimebaseFreq)
	}
	if len(facts.Harts) != 2 {
		t.Fatalf("expected 2 harts, got %d", len(facts.Harts))
	}
	for i, hart := range facts.Harts {
		if hart.ID != uint32(i) {
			t.Errorf("hart %d has id %d", i, hart.ID)
		}
		if hart.ISA != "rv64imafdc" {
			t.Errorf("hart %d isa %q", i, hart.ISA)
		}
		if !hart.Enabled {
			t.Errorf("hart %d not enabled", i)
		}
	}
	if got := facts.EnabledHarts(); got != 2 {
		t.Errorf("enabled harts %d", got)
	}
	if facts.TotalMemory() != 0x400000000 {
		t.Errorf("total memory %#x", facts.TotalMemory())
	}
}

func TestNestedCellCountsNotInherited(t *testing.T) {
	// the bus narrows to 32 bit cells; the uart reg must decode with the
	// bus's counts, not the root's
	b := newBlob()
	b.begin("")
	b.propU32("#address-cells", 2)
	b.propU32("#size-cells", 2)
	b.begin("memory@80000000")
	b.propStr("device_type", "memory")
	b.prop("reg", cells64(0x80000000, 0x8000000))
	b.end()
	b.begin("cpus")
	b.propU32("#address-cells", 1)
	b.propU32("#size-cells", 0)
	b.propU32("timebase-frequency", 10000000)
	b.begin("cpu@0")
	b.propStr("device_type", "cpu")
	b.prop("reg", cells(0))
	b.end()
	b.end()
	b.begin("soc")
	b.propU32("#address-cells", 1)
	b.propU32("#size-cells", 1)
	b.begin("serial@10000000")
	b.propStr("compatible", "ns16550a")
	b.prop("reg", cells(0x10000000, 0x100))
	b.end()
	b.begin("interrupt-controller@c000000")
	b.propStr("compatible", "riscv,plic0")
	b.prop("reg", cells(0xc000000, 0x400000))
	b.end()
	b.end()
	b.end()

	facts, err := Extract(b.finish())
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if facts.UART.Reg.Base != 0x10000000 || facts.UART.Reg.Size != 0x100 {
		t.Errorf("uart region %#x+%#x", facts.UART.Reg.Base, facts.UART.Reg.Size)
	}
	if facts.PLIC.Reg.Base != 0xc000000 {
		t.Errorf("plic base %#x", facts.PLIC.Reg.Base)
	}
}

func TestReservationsCollected(t *testing.T) {
	b := virtBlob(true)
	b.reserve(0x80000000, 0x10000)
	b.reserve(0x81000000, 0x2000)
	facts, err := Extract(b.finish())
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(facts.Reserved) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(facts.Reserved))
	}
	if facts.Reserved[0].Base != 0x80000000 || facts.Reserved[0].Size != 0x10000 {
		t.Errorf("reservation 0 is %#x+%#x", facts.Reserved[0].Base, facts.Reserved[0].Size)
	}
}

func TestDisabledHartReported(t *testing.T) {
	b := newBlob()
	b.begin("")
	b.propU32("#address-cells", 2)
	b.propU32("#size-cells", 2)
	b.begin("memory@80000000")
	b.propStr("device_type", "memory")
	b.prop("reg", cells64(0x80000000, 0x8000000))
	b.end()
	b.begin("cpus")
	b.propU32("#address-cells", 1)
	b.propU32("#size-cells", 0)
	b.propU32("timebase-frequency", 1000000)
	b.begin("cpu@0")
	b.propStr("device_type", "cpu")
	b.prop("reg", cells(0))
	b.propStr("status", "disabled")
	b.end()
	b.end()
	b.begin("serial@10000000")
	b.propStr("compatible", "ns16550")
	b.prop("reg", cells64(0x10000000, 0x100))
	b.end()
	b.begin("plic@c000000")
	b.propStr("compatible", "riscv,plic0")
	b.prop("reg", cells64(0xc000000, 0x400000))
	b.end()
	b.end()

	facts, err := Extract(b.finish())
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(facts.Harts) != 1 || facts.Harts[0].Enabled {
		t.Fatalf("expected single disabled hart: %+v", facts.Harts)
	}
	if facts.EnabledHarts() != 0 {
		t.Errorf("disabled hart counted as enabled")
	}
}

func TestErrorKinds(t *testing.T) {
	bad := virtBlob(true)
	bad.badMagic = true

	old := virtBlob(true)
	old.version = 16
	old.lastComp = 16

	noPlic := virtBlob(false)

	badCells := newBlob()
	badCells.begin("")
	badCells.propU32("#address-cells", 3)
	badCells.end()

	cases := []struct {
		name string
		blob []byte
		want error
	}{
		{"bad magic", bad.finish(), ErrBadMagic},
		{"old version", old.finish(), ErrBadHeader},
		{"missing plic", noPlic.finish(), ErrMissing},
		{"three address cells", badCells.finish(), ErrBadCells},
		{"short blob", []byte{0xd0, 0x0d, 0xfe, 0xed}, ErrBadHeader},
	}
	for _, tc := range cases {
		facts, err := Extract(tc.blob)
		if facts != nil {
			t.Errorf("%s: got partial facts", tc.name)
		}
		if errors.Cause(err) != tc.want {
			t.Errorf("%s: got %v, want kind %v", tc.name, err, tc.want)
		}
	}
}

func TestTruncatedStructure(t *testing.T) {
	blob := virtBlob(true).finish()
	// chop the end token off the structure block but keep the header's
	// declared sizes intact by shrinking them
	shrunk := make([]byte, len(blob))
	copy(shrunk, blob)
	structSize := binary.BigEndian.Uint32(shrunk[36:])
	binary.BigEndian.PutUint32(shrunk[36:], structSize-4)
	_, err := Extract(shrunk)
	if errors.Cause(err) != ErrTruncated {
		t.Fatalf("got %v, want truncated", err)
	}
}

func TestOversizedBlobRejected(t *testing.T) {
	blob := virtBlob(true).finish()
	binary.BigEndian.PutUint32(blob[4:], maxTotalSize+1)
	_, err := Extract(blob)
	if errors.Cause(err) != ErrTooLarge {
		t.Fatalf("got %v, want too-large", err)
	}
}

func TestUnbalancedNodesRejected(t *testing.T) {
	b := newBlob()
	b.begin("")
	b.begin("memory@0")
	// only one end for two begins
	b.end()
	_, err := Extract(b.finish())
	if errors.Cause(err) != ErrTruncated && errors.Cause(err) != ErrMalformed {
		t.Fatalf("got %v, want malformed or truncated", err)
	}
}

func TestNopTokensSkipped(t *testing.T) {
	b := virtBlob(true)
	// splice NOPs in front of the structure the builder made
	var pre bytes.Buffer
	binary.Write(&pre, binary.BigEndian, uint32(fdtNop))
	binary.Write(&pre, binary.BigEndian, uint32(fdtNop))
	pre.Write(b.structure.Bytes())
	b.structure = pre
	if _, err := Extract(b.finish()); err != nil {
		t.Fatalf("nop tokens broke the scan: %v", err)
	}
}
