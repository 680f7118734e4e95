// tether attaches a host terminal to the kernel's serial console. It puts
// the named tty (or the controlling terminal, for a qemu -serial stdio
// setup behind a pty) into raw mode and shovels bytes both ways until the
// escape character (ctrl-]) is typed.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	tty "github.com/mattn/go-tty"
)

var dev = flag.String("d", "/dev/ttyUSB0", "serial device the target console is on")

const escapeChar = 0x1d // ctrl-]

func main() {
	flag.Parse()

	serial, err := tty.OpenDevice(*dev)
	if err != nil {
		log.Fatalf("%s: %v", *dev, err)
	}
	defer serial.Close()
	restoreSerial := serial.MustRaw()
	defer restoreSerial()

	local, err := tty.Open()
	if err != nil {
		log.Fatalf("controlling terminal: %v", err)
	}
	defer local.Close()
	restoreLocal := local.MustRaw()
	defer restoreLocal()

	// target -> screen
	go func() {
		if _, err := io.Copy(os.Stdout, serial.Input()); err != nil {
			log.Printf("target side closed: %v", err)
		}
		os.Exit(0)
	}()

	// keyboard -> target
	for {
		r, err := local.ReadRune()
		if err != nil {
			log.Fatalf("keyboard read: %v", err)
		}
		if r == escapeChar {
			return
		}
		if _, err := serial.Output().WriteString(string(r)); err != nil {
			log.Fatalf("target write: %v", err)
		}
	}
}
