package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// Service signs and verifies JCS-canonical payloads with ed25519. Every
// signed artifact the gateway emits (envelopes, rejections) goes through it,
// as does the inbound profile-signature check.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Canonicalize(payload any) ([]byte, error) {
	return CanonicalizeAny(payload)
}

// Sign canonicalizes payload and returns a base64 ed25519 signature.
func (s *Service) Sign(priv ed25519.PrivateKey, payload any) (string, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid ed25519 private key length: %d", len(priv))
	}
	canonical, err := CanonicalizeAny(payload)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, canonical)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 ed25519 signature over the canonical payload.
func (s *Service) Verify(pub ed25519.PublicKey, payload any, sigB64 string) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 public key length: %d", len(pub))
	}
	if sigB64 == "" {
		return errors.New("signature value is required")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid ed25519 signature length: %d", len(sigBytes))
	}
	canonical, err := CanonicalizeAny(payload)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, canonical, sigBytes) {
		return errors.New("signature verification failed")
	}
	return nil
}

// LoadSigningKey loads the gateway signing key from either a full base64 key
// or a hex seed, whichever is configured.
func LoadSigningKey(b64, seedHex string) (ed25519.PrivateKey, error) {
	if b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode signing key: %w", err)
		}
		switch len(decoded) {
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(decoded), nil
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(decoded), nil
		default:
			return nil, fmt.Errorf("unexpected signing key length: %d", len(decoded))
		}
	}
	if seedHex != "" {
		decoded, err := hex.DecodeString(seedHex)
		if err != nil {
			return nil, fmt.Errorf("decode signing key seed: %w", err)
		}
		if len(decoded) != ed25519.SeedSize {
			return nil, fmt.Errorf("unexpected seed length: %d", len(decoded))
		}
		return ed25519.NewKeyFromSeed(decoded), nil
	}
	return nil, errors.New("no signing key configured")
}
