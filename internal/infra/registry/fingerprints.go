package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// FingerprintTable is the version-pinned expected-fingerprint snapshot. It is
// loaded once at startup and never mutated afterwards, so lookups need no
// locking.
type FingerprintTable struct {
	entries map[fingerprintKey]domain.ResourceFingerprint
}

type fingerprintKey struct {
	targetRef string
	chainID   uint64
}

type fingerprintFile struct {
	Fingerprints []domain.ResourceFingerprint `json:"fingerprints"`
}

// LoadFingerprints reads the pinned fingerprint snapshot from a JSON file.
// Duplicate (target, chain) pins are a configuration error.
func LoadFingerprints(path string) (*FingerprintTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint table: %w", err)
	}
	var file fingerprintFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fingerprint table: %w", err)
	}
	return NewFingerprintTable(file.Fingerprints)
}

func NewFingerprintTable(pins []domain.ResourceFingerprint) (*FingerprintTable, error) {
	entries := make(map[fingerprintKey]domain.ResourceFingerprint, len(pins))
	for _, pin := range pins {
		if pin.TargetRef == "" || pin.Fingerprint == "" {
			return nil, fmt.Errorf("fingerprint pin for %q is incomplete", pin.TargetRef)
		}
		key := fingerprintKey{targetRef: pin.TargetRef, chainID: pin.ChainID}
		if _, ok := entries[key]; ok {
			return nil, fmt.Errorf("duplicate fingerprint pin for %s on chain %d", pin.TargetRef, pin.ChainID)
		}
		entries[key] = pin
	}
	return &FingerprintTable{entries: entries}, nil
}

func (t *FingerprintTable) Lookup(targetRef string, chainID uint64) (*domain.ResourceFingerprint, bool) {
	if t == nil {
		return nil, false
	}
	pin, ok := t.entries[fingerprintKey{targetRef: targetRef, chainID: chainID}]
	if !ok {
		return nil, false
	}
	return &pin, true
}

func (t *FingerprintTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
