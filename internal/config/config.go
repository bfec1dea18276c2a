package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	AdminAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProviderURLs    []string
	QuorumN         int
	QuorumM         int
	ProviderTimeout time.Duration
	ResolveTimeout  time.Duration
	LayerTimeout    time.Duration

	SigningKeyBase64     string
	SigningKeySeedHex    string
	AttestorPubKeyHex    string
	AttestationThreshold uint64

	EnvelopeValidity time.Duration

	FingerprintsPath string
	OPABundlePath    string
	OPABundleID      string

	PolicyWhitelist            []string
	PolicyValueCeiling         uint64
	PolicyRateLimitRequests    int
	PolicyRateLimitWindowSecs  int
	PolicyBlockedJurisdictions []string

	EscrowMinAmount  uint64
	EscrowMaxAmount  uint64
	RegistryCacheTTL time.Duration

	AcceptanceWindow  time.Duration
	FulfillmentWindow time.Duration
	ClaimWindow       time.Duration
	SweepCron         string
	EventPollInterval time.Duration
	NotifyWebhookURL  string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:    addr,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envIntDefault("REDIS_DB", 0),

		ProviderURLs:    envList("PROVIDER_URLS"),
		QuorumN:         envIntDefault("QUORUM_N", 5),
		QuorumM:         envIntDefault("QUORUM_M", 3),
		ProviderTimeout: envMillisDefault("PROVIDER_TIMEOUT_MS", 2000),
		ResolveTimeout:  envMillisDefault("RESOLVE_TIMEOUT_MS", 5000),
		LayerTimeout:    envMillisDefault("LAYER_TIMEOUT_MS", 3000),

		SigningKeyBase64:     os.Getenv("SIGNING_KEY_BASE64"),
		SigningKeySeedHex:    os.Getenv("SIGNING_KEY_SEED_HEX"),
		AttestorPubKeyHex:    os.Getenv("ATTESTOR_PUBKEY_HEX"),
		AttestationThreshold: envUintDefault("ATTESTATION_THRESHOLD", 1_000_000),

		EnvelopeValidity: envSecondsDefault("ENVELOPE_TTL_SECONDS", 300),

		FingerprintsPath: os.Getenv("FINGERPRINTS_PATH"),
		OPABundlePath:    os.Getenv("OPA_BUNDLE_PATH"),
		OPABundleID:      envDefault("OPA_BUNDLE_ID", "gateway-policy"),

		PolicyWhitelist:            envList("POLICY_WHITELIST"),
		PolicyValueCeiling:         envUintDefault("POLICY_VALUE_CEILING", 10_000_000),
		PolicyRateLimitRequests:    envIntDefault("POLICY_RATE_LIMIT_REQUESTS", 0),
		PolicyRateLimitWindowSecs:  envIntDefault("POLICY_RATE_LIMIT_WINDOW_SECONDS", 60),
		PolicyBlockedJurisdictions: envList("POLICY_BLOCKED_JURISDICTIONS"),

		EscrowMinAmount:  envUintDefault("ESCROW_MIN_AMOUNT", 1),
		EscrowMaxAmount:  envUintDefault("ESCROW_MAX_AMOUNT", 0),
		RegistryCacheTTL: envSecondsDefault("REGISTRY_CACHE_TTL_SECONDS", 30),

		AcceptanceWindow:  envSecondsDefault("ESCROW_ACCEPTANCE_WINDOW_SECONDS", 1800),
		FulfillmentWindow: envSecondsDefault("ESCROW_FULFILLMENT_WINDOW_SECONDS", 3600),
		ClaimWindow:       envSecondsDefault("ESCROW_CLAIM_WINDOW_SECONDS", 86400),
		SweepCron:         envDefault("ESCROW_SWEEP_CRON", "@every 30s"),
		EventPollInterval: envSecondsDefault("ESCROW_EVENT_POLL_SECONDS", 10),
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envUintDefault(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func envMillisDefault(key string, defMillis int) time.Duration {
	return time.Duration(envIntDefault(key, defMillis)) * time.Millisecond
}

func envSecondsDefault(key string, defSecs int) time.Duration {
	return time.Duration(envIntDefault(key, defSecs)) * time.Second
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
