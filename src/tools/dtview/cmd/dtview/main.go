// dtview runs the kernel's device tree extraction against a blob file on
// the host, printing exactly the facts the kernel would boot with. Handy
// for checking what a given qemu invocation actually hands over:
//
//	qemu-system-riscv64 -M virt,dumpdtb=virt.dtb ...
//	dtview virt.dtb
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"courage/src/lib/dtb"
)

var quiet = flag.Bool("q", false, "exit status only, print nothing")

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatalf("usage: dtview [-q] <blob.dtb>")
	}
	blob, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	facts, err := dtb.Extract(blob)
	if err != nil {
		if *quiet {
			os.Exit(1)
		}
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
	if *quiet {
		return
	}
	for _, m := range facts.Memory {
		fmt.Printf("memory    %#012x..%#012x (%d MB)\n", m.Base, m.End(), m.Size>>20)
	}
	for _, r := range facts.Reserved {
		fmt.Printf("reserved  %#012x..%#012x\n", r.Base, r.End())
	}
	for _, h := range facts.Harts {
		status := "okay"
		if !h.Enabled {
			status = "disabled"
		}
		fmt.Printf("hart %-4d %s (%s)\n", h.ID, h.ISA, status)
	}
	fmt.Printf("uart      %#012x irq %d\n", facts.UART.Reg.Base, facts.UART.Interrupt)
	fmt.Printf("plic      %#012x\n", facts.PLIC.Reg.Base)
	fmt.Printf("timebase  %d Hz\n", facts.TimebaseFreq)
}
