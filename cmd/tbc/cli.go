package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "rejection":
		if len(args) >= 3 && args[2] == "verify" {
			return runRejectionVerify(args[3:])
		}
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "tbc"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s keygen [--seed-out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --in <envelope.json> (--pubkey-hex <hex>|--pubkey-base64 <b64>) [--at <rfc3339>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s rejection verify --in <rejection.json> (--pubkey-hex <hex>|--pubkey-base64 <b64>)\n", name)
}
