package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	cryptoinfra "github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/crypto"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/usecase"
)

// runVerify checks a gateway envelope offline: expiry first, signature second.
func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var pubHex string
	var pubBase64 string
	var atText string

	fs.StringVar(&inPath, "in", "", "envelope JSON path")
	fs.StringVar(&pubHex, "pubkey-hex", "", "gateway ed25519 public key hex")
	fs.StringVar(&pubBase64, "pubkey-base64", "", "gateway ed25519 public key base64")
	fs.StringVar(&atText, "at", "", "verification instant (RFC 3339, default now)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --in")
		return 1
	}
	pubKey, err := parsePublicKey(pubHex, pubBase64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse public key: %v\n", err)
		return 1
	}

	at := time.Now()
	if atText != "" {
		at, err = time.Parse(time.RFC3339, atText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse --at: %v\n", err)
			return 1
		}
	}

	payload, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read envelope: %v\n", err)
		return 1
	}
	var envelope domain.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		fmt.Fprintf(os.Stderr, "decode envelope: %v\n", err)
		return 1
	}

	if err := usecase.VerifyEnvelope(cryptoinfra.NewService(), pubKey, envelope, at); err != nil {
		if errors.Is(err, domain.ErrEnvelopeExpired) {
			fmt.Fprintf(os.Stderr, "envelope expired at %s\n", envelope.ExpiresAt.Format(time.RFC3339))
		} else {
			fmt.Fprintf(os.Stderr, "envelope invalid: %v\n", err)
		}
		return 1
	}

	fmt.Printf("envelope valid: target=%s session=%s expires=%s\n",
		envelope.TargetRef, envelope.SessionRef, envelope.ExpiresAt.Format(time.RFC3339))
	return 0
}

func runRejectionVerify(args []string) int {
	fs := flag.NewFlagSet("rejection verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var pubHex string
	var pubBase64 string

	fs.StringVar(&inPath, "in", "", "rejection JSON path")
	fs.StringVar(&pubHex, "pubkey-hex", "", "gateway ed25519 public key hex")
	fs.StringVar(&pubBase64, "pubkey-base64", "", "gateway ed25519 public key base64")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "rejection verify requires --in")
		return 1
	}
	pubKey, err := parsePublicKey(pubHex, pubBase64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse public key: %v\n", err)
		return 1
	}

	payload, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read rejection: %v\n", err)
		return 1
	}
	var rejection domain.RejectionRecord
	if err := json.Unmarshal(payload, &rejection); err != nil {
		fmt.Fprintf(os.Stderr, "decode rejection: %v\n", err)
		return 1
	}

	if err := usecase.VerifyRejection(cryptoinfra.NewService(), pubKey, rejection); err != nil {
		fmt.Fprintf(os.Stderr, "rejection invalid: %v\n", err)
		return 1
	}

	fmt.Printf("rejection valid: code=%s layer=%d retry_allowed=%t\n",
		rejection.ErrorCode, rejection.LayerFailed, rejection.RetryAllowed)
	return 0
}

func parsePublicKey(pubHex, pubBase64 string) (ed25519.PublicKey, error) {
	if (pubHex == "" && pubBase64 == "") || (pubHex != "" && pubBase64 != "") {
		return nil, errors.New("exactly one of --pubkey-hex or --pubkey-base64 is required")
	}
	var decoded []byte
	var err error
	if pubHex != "" {
		decoded, err = hex.DecodeString(pubHex)
	} else {
		decoded, err = base64.StdEncoding.DecodeString(pubBase64)
	}
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected public key length: %d", len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}
