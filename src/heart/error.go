package heart

import "fmt"

// Kernel error values pack a subsystem, the faulting hart, and an error
// number into one uint64 so a failure can be reported (or parked in a
// register for a debugger) without allocating.
const subsystemMask = 0x00ff_0000_0000_0000
const hartIDMask = 0x0000_ffff_0000_0000
const errorNumberMask = 0x0000_0000_0000_ffff

const NoError = KernelError(0)

// Firmware errors
const FirmwareSubsystem = 1
const FirmwareNoBase = 1
const FirmwareResetFailed = 2

var ErrorFirmwareNoBase = errorValue(FirmwareSubsystem, FirmwareNoBase)
var ErrorFirmwareResetFailed = errorValue(FirmwareSubsystem, FirmwareResetFailed)

// Hardware discovery errors
const DiscoverySubsystem = 2
const DiscoveryBadTree = 1
const DiscoveryImageOutsideRAM = 2

var ErrorDiscoveryBadTree = errorValue(DiscoverySubsystem, DiscoveryBadTree)
var ErrorDiscoveryImageOutsideRAM = errorValue(DiscoverySubsystem, DiscoveryImageOutsideRAM)

// Memory errors
const MemorySubsystem = 3
const MemoryNoRoomForHeap = 1

var ErrorMemoryNoRoomForHeap = errorValue(MemorySubsystem, MemoryNoRoomForHeap)

// Trap errors
const TrapSubsystem = 4
const TrapUnrecognizedCause = 1
const TrapReentered = 2
const TrapBadHart = 3

var ErrorTrapUnrecognizedCause = errorValue(TrapSubsystem, TrapUnrecognizedCause)
var ErrorTrapReentered = errorValue(TrapSubsystem, TrapReentered)
var ErrorTrapBadHart = errorValue(TrapSubsystem, TrapBadHart)

type KernelError uint64
type RawKernelError uint64 // error with just the constant part of the value filled in

var errorMap map[uint64]string

func KernelErrorMessage(k KernelError) string {
	return errorText(uint64(k))
}

func initErrors() {
	errorMap = make(map[uint64]string)
	createError(FirmwareSubsystem, FirmwareNoBase,
		"firmware does not implement the base extension")
	createError(FirmwareSubsystem, FirmwareResetFailed,
		"system reset call returned")
	createError(DiscoverySubsystem, DiscoveryBadTree,
		"device tree blob rejected")
	createError(DiscoverySubsystem, DiscoveryImageOutsideRAM,
		"kernel image does not sit inside discovered memory")
	createError(MemorySubsystem, MemoryNoRoomForHeap,
		"no usable memory left after the kernel image")
	createError(TrapSubsystem, TrapUnrecognizedCause,
		"trap cause has no handler")
	createError(TrapSubsystem, TrapReentered,
		"trap taken while already handling a trap")
	createError(TrapSubsystem, TrapBadHart,
		"trap on a hart id outside the configured range")
}

func createError(subsys byte, errorNumber uint16, format string) {
	n := errorValue(subsys, errorNumber)
	errorMap[uint64(n)] = format
}

func errorText(raw uint64) string {
	t, ok := errorMap[raw&^hartIDMask]
	if !ok {
		return "Unknown error code"
	}
	hart := (raw & hartIDMask) >> 32
	return fmt.Sprintf("hart %d: %s", hart, t)
}

func errorValue(subsys byte, errorNumber uint16) RawKernelError {
	ss := subsystemMask & (uint64(subsys) << 48)
	en := errorNumberMask & (uint64(errorNumber) << 0)
	return RawKernelError(ss | en)
}

// MakeError adds the dynamic fields (the hart that hit the condition) to
// the error value.
func MakeError(rawError RawKernelError, hart uint32) KernelError {
	raw := uint64(rawError)
	h := (uint64(hart) << 32) & hartIDMask
	return KernelError(raw | h)
}
