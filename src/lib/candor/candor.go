// Package candor is the kernel's logging layer. It is a mask-leveled
// logger writing through an injectable sink, because where log bytes go
// depends on how far boot has progressed: nowhere at all, the SBI
// console, or stderr when the same packages run inside a host tool.
package candor

import (
	"fmt"
	"io"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	fatalMask MaskLevel = 0x80
)

var level = fatalMask | ErrorMask | WarnMask | InfoMask | DebugMask

var sink io.Writer

// onFatal runs after a Fatalf message is emitted. The kernel registers
// shutdown-and-spin; host tools get os.Exit semantics from their own
// registration. Until something is registered Fatalf just returns, which
// leaves the caller to park the hart itself.
var onFatal func(code int)

// SetOutput installs the writer log lines are emitted to and returns the
// previous one. A nil writer silences everything, including Fatalf output
// (but not its hook).
func SetOutput(w io.Writer) io.Writer {
	prev := sink
	sink = w
	return prev
}

// OnFatal registers the function Fatalf escalates to.
func OnFatal(f func(code int)) {
	onFatal = f
}

// SetLevel replaces the log mask, returning the previous one. Pass
// something like ErrorMask|InfoMask to control exactly what gets printed.
// Fatalf is not maskable.
func SetLevel(mask MaskLevel) MaskLevel {
	prev := level &^ fatalMask
	level = (mask & (ErrorMask | WarnMask | InfoMask | DebugMask)) | fatalMask
	return prev
}

func Level() MaskLevel {
	return level &^ fatalMask
}

func logf(l MaskLevel, format string, params ...interface{}) {
	if level&l == 0 || sink == nil {
		return
	}
	switch {
	case l&fatalMask > 0:
		fmt.Fprintf(sink, "FATAL:")
	case l&ErrorMask > 0:
		fmt.Fprintf(sink, "ERROR:")
	case l&WarnMask > 0:
		fmt.Fprintf(sink, " WARN:")
	case l&InfoMask > 0:
		fmt.Fprintf(sink, " INFO:")
	case l&DebugMask > 0:
		fmt.Fprintf(sink, "DEBUG:")
	}
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Fprintf(sink, format, params...)
}

// Fatalf prints the given message unconditionally and then escalates to
// the registered fatal hook with the provided code.
func Fatalf(code int, format string, params ...interface{}) {
	logf(fatalMask, format, params...)
	if onFatal != nil {
		onFatal(code)
	}
}

// Errorf prints the given message at the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	logf(ErrorMask, format, params...)
}

// Warnf prints the given message at the WarnMask level.
func Warnf(format string, params ...interface{}) {
	logf(WarnMask, format, params...)
}

// Infof prints the given message at the InfoMask level.
func Infof(format string, params ...interface{}) {
	logf(InfoMask, format, params...)
}

// Debugf prints the given message at the DebugMask level.
func Debugf(format string, params ...interface{}) {
	logf(DebugMask, format, params...)
}
