package domain

import "time"

type ProfileStatus string

const (
	ProfileActive    ProfileStatus = "active"
	ProfileSuspended ProfileStatus = "suspended"
	ProfileRetired   ProfileStatus = "retired"
)

// Profile is a registered controlling profile for a target resource. The
// registry is read-only during evaluation; updates go through the admin path.
type Profile struct {
	Ref          string        `json:"profile_ref"`
	Status       ProfileStatus `json:"status"`
	PublicKey    []byte        `json:"public_key"`
	SigAlg       string        `json:"sig_alg"`
	Jurisdiction string        `json:"jurisdiction,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (p Profile) Active() bool {
	return p.Status == ProfileActive
}

// ResourceFingerprint pins the expected canonical code/state fingerprint for
// one target resource version.
type ResourceFingerprint struct {
	TargetRef   string `json:"target_ref"`
	ChainID     uint64 `json:"chain_id"`
	Version     string `json:"version"`
	Fingerprint string `json:"fingerprint"`
	Asset       string `json:"asset"`
}
