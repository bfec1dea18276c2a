package domain

// PolicyInput is the document handed to the policy engine for layer 5.
type PolicyInput struct {
	Request      VerificationRequest `json:"request"`
	Verification PolicyVerification  `json:"verification"`
}

// PolicyVerification carries the advisory facts established by earlier
// layers. Signature validity here proves intent to publish a profile, not
// that the referenced resource is safe.
type PolicyVerification struct {
	ProfileActive    bool   `json:"profile_active"`
	SignatureValid   bool   `json:"signature_valid"`
	ResourceVerified bool   `json:"resource_verified"`
	Fingerprint      string `json:"fingerprint,omitempty"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash,omitempty"`
	Result     PolicyResult `json:"result"`
}

// PolicyRules is the deterministic built-in rule table, loaded at startup and
// read-only during evaluation.
type PolicyRules struct {
	Whitelist            []string `json:"whitelist"`
	ValueCeiling         uint64   `json:"value_ceiling"`
	RateLimitRequests    int      `json:"rate_limit_requests"`
	RateLimitWindowSecs  int      `json:"rate_limit_window_seconds"`
	BlockedJurisdictions []string `json:"blocked_jurisdictions"`
}
