package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

// runKeygen generates a gateway signing keypair. The seed goes to a file or
// stderr, never stdout, so piping the public key stays safe.
func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var seedOut string
	fs.StringVar(&seedOut, "seed-out", "", "write the hex seed to this file (0600)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}
	seedHex := hex.EncodeToString(priv.Seed())

	if seedOut != "" {
		if err := os.WriteFile(seedOut, []byte(seedHex+"\n"), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "write seed: %v\n", err)
			return 1
		}
	} else {
		fmt.Fprintf(os.Stderr, "seed-hex: %s\n", seedHex)
	}

	fmt.Printf("pubkey-hex: %s\n", hex.EncodeToString(pub))
	return 0
}
