// Package sbi is the kernel's client for the firmware's binary call
// interface. Every privileged service the kernel cannot reach directly
// (console bytes, the timer compare register, system reset, hart state)
// goes through one typed wrapper here; no other package issues raw
// firmware calls.
package sbi

import "fmt"

//////////////////////////////////////////////////////////////////
// Call ABI
//////////////////////////////////////////////////////////////////

// Firmware is the raw call boundary: extension id in a7, function id in
// a6, arguments in a0..a5, and the (error, value) pair back in a0/a1.
// The real implementation is a single ecall instruction; tests substitute
// a fake because testing on baremetal is hard.
type Firmware interface {
	Ecall(ext, fn uintptr, a0, a1, a2, a3, a4, a5 uintptr) (uintptr, uintptr)
}

// Extension ids, SBI spec v2.0 §4 (legacy ids from §5).
const (
	extLegacyPutChar  = 0x01
	extLegacyGetChar  = 0x02
	extLegacyShutdown = 0x08
	extBase           = 0x10
	extTime           = 0x54494D45 // "TIME"
	extIPI            = 0x735049   // "sPI"
	extRfence         = 0x52464E43 // "RFNC"
	extHSM            = 0x48534D   // "HSM"
	extSRST           = 0x53525354 // "SRST"
)

// Base extension function ids.
const (
	baseGetSpecVersion = 0
	baseGetImplID      = 1
	baseGetImplVersion = 2
	baseProbeExtension = 3
)

const (
	timeSetTimer    = 0
	ipiSendIPI      = 0
	rfenceFenceI    = 0
	hsmHartSuspend  = 3
	srstSystemReset = 0
)

//////////////////////////////////////////////////////////////////
// Return codes
//////////////////////////////////////////////////////////////////

// Error is a firmware error code (the a0 return register, negated
// meanings per the SBI spec §3.2). The zero value is success and is never
// returned as an error.
type Error int64

const (
	ErrFailed           Error = -1
	ErrNotSupported     Error = -2
	ErrInvalidParam     Error = -3
	ErrDenied           Error = -4
	ErrInvalidAddress   Error = -5
	ErrAlreadyAvailable Error = -6
	ErrAlreadyStarted   Error = -7
	ErrAlreadyStopped   Error = -8
)

func (e Error) Error() string {
	switch e {
	case ErrFailed:
		return "sbi: call failed"
	case ErrNotSupported:
		return "sbi: extension or function not supported"
	case ErrInvalidParam:
		return "sbi: invalid parameter"
	case ErrDenied:
		return "sbi: denied"
	case ErrInvalidAddress:
		return "sbi: invalid address"
	case ErrAlreadyAvailable:
		return "sbi: already available"
	case ErrAlreadyStarted:
		return "sbi: already started"
	case ErrAlreadyStopped:
		return "sbi: already stopped"
	}
	return fmt.Sprintf("sbi: unknown error %d", int64(e))
}

// errFromRaw converts the a0 return register into a Go error. Unknown
// codes are preserved rather than collapsed.
func errFromRaw(a0 uintptr) error {
	if int64(a0) == 0 {
		return nil
	}
	return Error(int64(a0))
}

//////////////////////////////////////////////////////////////////
// Misc call types
//////////////////////////////////////////////////////////////////

// SpecVersion is the firmware's implemented SBI specification version.
type SpecVersion struct {
	Major int
	Minor int
}

func (v SpecVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// HartMask addresses a set of harts: bit n of Mask selects hart Base+n.
type HartMask struct {
	Mask uintptr
	Base uintptr
}

// Single returns a mask selecting exactly one hart.
func Single(hart uint32) HartMask {
	return HartMask{Mask: 1, Base: uintptr(hart)}
}

// ResetType selects what a system reset does. SBI spec §10.
type ResetType uint32

const (
	ResetShutdown   ResetType = 0
	ResetColdReboot ResetType = 1
	ResetWarmReboot ResetType = 2
)

// ResetReason annotates why the reset was requested.
type ResetReason uint32

const (
	ReasonNone          ResetReason = 0
	ReasonSystemFailure ResetReason = 1
)

// RetentiveSuspend is the HSM suspend type that keeps register and memory
// state, resuming at the instruction after the suspend call.
const RetentiveSuspend = 0
