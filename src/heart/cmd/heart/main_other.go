//go:build !riscv64

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "heart only runs on riscv64 baremetal; cross compile with GOARCH=riscv64")
	os.Exit(1)
}
