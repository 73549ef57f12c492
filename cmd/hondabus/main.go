// Command hondabus inspects and exercises the Honda/Acura vehicle-integration
// layer: catalog and bus layout, offline control encoding, radar replay and
// raw frame capture.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
