//go:build riscv64

package main

import (
	"courage/src/heart"
	"courage/src/lib/candor"
)

// this function is never called because the boot stub tail calls kinit
// this has to be here to avoid linker complaints
func main() {
	candor.Errorf("main reached; the boot stub should have entered kinit")
	if k := heart.Current(); k != nil {
		k.Shutdown()
	}
	for {
	}
}
