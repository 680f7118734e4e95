package riscv

import (
	"testing"
	"unsafe"
)

// The trap entry stub stores x1..x31 at offsets 0,8,...,240 and the three
// CSR samples after them. If any of these move, save and restore silently
// corrupt the interrupted context, so pin every offset.
func TestFrameLayoutMatchesEntryStub(t *testing.T) {
	var f TrapFrame
	offsets := []struct {
		name string
		off  uintptr
	}{
		{"ra", unsafe.Offsetof(f.RA)},
		{"sp", unsafe.Offsetof(f.SP)},
		{"gp", unsafe.Offsetof(f.GP)},
		{"tp", unsafe.Offsetof(f.TP)},
		{"t0", unsafe.Offsetof(f.T0)},
		{"t1", unsafe.Offsetof(f.T1)},
		{"t2", unsafe.Offsetof(f.T2)},
		{"s0", unsafe.Offsetof(f.S0)},
		{"s1", unsafe.Offsetof(f.S1)},
		{"a0", unsafe.Offsetof(f.A0)},
		{"a1", unsafe.Offsetof(f.A1)},
		{"a2", unsafe.Offsetof(f.A2)},
		{"a3", unsafe.Offsetof(f.A3)},
		{"a4", unsafe.Offsetof(f.A4)},
		{"a5", unsafe.Offsetof(f.A5)},
		{"a6", unsafe.Offsetof(f.A6)},
		{"a7", unsafe.Offsetof(f.A7)},
		{"s2", unsafe.Offsetof(f.S2)},
		{"s3", unsafe.Offsetof(f.S3)},
		{"s4", unsafe.Offsetof(f.S4)},
		{"s5", unsafe.Offsetof(f.S5)},
		{"s6", unsafe.Offsetof(f.S6)},
		{"s7", unsafe.Offsetof(f.S7)},
		{"s8", unsafe.Offsetof(f.S8)},
		{"s9", unsafe.Offsetof(f.S9)},
		{"s10", unsafe.Offsetof(f.S10)},
		{"s11", unsafe.Offsetof(f.S11)},
		{"t3", unsafe.Offsetof(f.T3)},
		{"t4", unsafe.Offsetof(f.T4)},
		{"t5", unsafe.Offsetof(f.T5)},
		{"t6", unsafe.Offsetof(f.T6)},
	}
	if len(offsets) != NumSavedRegisters {
		t.Fatalf("expected %d register fields, found %d", NumSavedRegisters, len(offsets))
	}
	for i, reg := range offsets {
		if want := uintptr(i) * 8; reg.off != want {
			t.Errorf("%s at offset %d, entry stub stores it at %d", reg.name, reg.off, want)
		}
		if RegisterName(i) != reg.name {
			t.Errorf("slot %d named %q, want %q", i, RegisterName(i), reg.name)
		}
	}
	if unsafe.Offsetof(f.Cause) != NumSavedRegisters*8 {
		t.Errorf("cause at offset %d, want %d", unsafe.Offsetof(f.Cause), NumSavedRegisters*8)
	}
	if unsafe.Offsetof(f.EPC) != (NumSavedRegisters+1)*8 {
		t.Errorf("epc at offset %d, want %d", unsafe.Offsetof(f.EPC), (NumSavedRegisters+1)*8)
	}
	if unsafe.Offsetof(f.Status) != (NumSavedRegisters+2)*8 {
		t.Errorf("status at offset %d, want %d", unsafe.Offsetof(f.Status), (NumSavedRegisters+2)*8)
	}
}

func TestRegisterRoundTrip(t *testing.T) {
	var f TrapFrame
	for i := 0; i < NumSavedRegisters; i++ {
		f.SetRegister(i, 0x1000+uint64(i))
	}
	if f.RA != 0x1000 || f.SP != 0x1001 || f.A0 != 0x1009 || f.T6 != 0x101e {
		t.Fatalf("slot indexing does not match field order: ra=%#x sp=%#x a0=%#x t6=%#x",
			f.RA, f.SP, f.A0, f.T6)
	}
	for i := 0; i < NumSavedRegisters; i++ {
		if got := f.Register(i); got != 0x1000+uint64(i) {
			t.Errorf("slot %d (%s): got %#x, want %#x", i, RegisterName(i), got, 0x1000+uint64(i))
		}
	}
}

func TestRegisterNameBounds(t *testing.T) {
	if RegisterName(-1) != "??" || RegisterName(NumSavedRegisters) != "??" {
		t.Error("out of range slots should name as ??")
	}
}
