package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/config"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/escrow"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/attest"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/chainwatch"
	cryptoinfra "github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/crypto"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/db"
	httpinfra "github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/http"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/metrics"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/notify"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/nullifier"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/policyopa"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/quorum"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/ratelimit"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/registry"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("gateway exited")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	store, err := db.NewStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if store.Available() {
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	cryptoSvc := cryptoinfra.NewService()
	signingKey, err := cryptoinfra.LoadSigningKey(cfg.SigningKeyBase64, cfg.SigningKeySeedHex)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	clock := usecase.SystemClock()

	// Registry: database-backed when available, otherwise in-memory. Either
	// way the evaluation path reads through a short TTL cache.
	var profiles httpinfra.ProfileStore
	var registryRepo usecase.RegistryRepository
	if store.Available() {
		repo := db.NewProfileRepository(store.DB)
		profiles, registryRepo = repo, repo
	} else {
		mem := registry.NewMemoryRegistry()
		profiles, registryRepo = mem, mem
	}
	cachedRegistry := registry.NewCachedRegistry(registryRepo, cfg.RegistryCacheTTL, clock.Now)

	var emitter *usecase.AuditEmitter
	if store.Available() {
		emitter = usecase.NewAuditEmitter(db.NewAuditEventRepository(store.DB), clock, logger)
		defer emitter.Close()
	}

	resolver, err := buildResolver(cfg, logger, emitter)
	if err != nil {
		return err
	}

	fingerprints, err := loadFingerprints(cfg, logger)
	if err != nil {
		return err
	}

	var attestor usecase.AttestationVerifier
	if cfg.AttestorPubKeyHex != "" {
		verifier, err := attest.NewVerifier(cfg.AttestorPubKeyHex, clock.Now)
		if err != nil {
			return fmt.Errorf("attestation verifier: %w", err)
		}
		attestor = verifier
	}

	var limiter domain.RateLimiter
	var nullifiers usecase.NullifierStore
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, clock.Now)
		if err != nil {
			return fmt.Errorf("redis rate limiter: %w", err)
		}
		nullifiers, err = nullifier.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis nullifier store: %w", err)
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{Now: clock.Now})
		nullifiers = nullifier.NewMemoryStore()
	}

	var policyEngine usecase.PolicyEngine
	if cfg.OPABundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), cfg.OPABundlePath, cfg.OPABundleID)
		if err != nil {
			return fmt.Errorf("load policy bundle: %w", err)
		}
		policyEngine = engine
		logger.Info().Str("bundle_id", cfg.OPABundleID).Str("bundle_hash", engine.BundleHash()).Msg("policy bundle loaded")
	}

	rules := &usecase.PolicyRuleSet{
		Rules: domain.PolicyRules{
			Whitelist:            cfg.PolicyWhitelist,
			ValueCeiling:         cfg.PolicyValueCeiling,
			RateLimitRequests:    cfg.PolicyRateLimitRequests,
			RateLimitWindowSecs:  cfg.PolicyRateLimitWindowSecs,
			BlockedJurisdictions: cfg.PolicyBlockedJurisdictions,
		},
		Limiter: limiter,
	}

	chain := &usecase.Chain{
		Layers: []usecase.Layer{
			&usecase.RegistryLayer{Registry: cachedRegistry},
			&usecase.SignatureLayer{Crypto: cryptoSvc},
			&usecase.ResourceLayer{Resolver: resolver, Fingerprints: fingerprints},
			&usecase.AttestationLayer{Verifier: attestor, Threshold: cfg.AttestationThreshold},
			&usecase.PolicyLayer{Rules: rules, Engine: policyEngine},
			&usecase.EscrowEligibilityLayer{Nullifiers: nullifiers, MinAmount: cfg.EscrowMinAmount, MaxAmount: cfg.EscrowMaxAmount},
		},
		LayerTimeout: cfg.LayerTimeout,
		Generator: &usecase.EnvelopeGenerator{
			Crypto:     cryptoSvc,
			SigningKey: signingKey,
			Validity:   cfg.EnvelopeValidity,
			Clock:      clock,
		},
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics.ChainObserver{},
	}
	if store.Available() {
		chain.Attempts = db.NewAttemptRepository(store.DB)
	}

	var escrowRepo escrow.RecordRepository
	if store.Available() {
		escrowRepo = db.NewEscrowRepository(store.DB)
	} else {
		escrowRepo = escrow.NewMemoryRepository()
	}
	machineCfg := escrow.MachineConfig{
		Repo: escrowRepo,
		Windows: domain.EscrowWindows{
			Acceptance:  cfg.AcceptanceWindow,
			Fulfillment: cfg.FulfillmentWindow,
			Claim:       cfg.ClaimWindow,
		},
		Clock:      clock,
		Logger:     logger,
		Notifier:   notify.NewWebhook(cfg.NotifyWebhookURL, 0),
		Nullifiers: nullifiers,
	}
	if emitter != nil {
		machineCfg.Audit = emitter
	}
	machine, err := escrow.NewMachine(machineCfg)
	if err != nil {
		return fmt.Errorf("escrow machine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.ProviderURLs) > 0 {
		source := chainwatch.NewSource(cfg.ProviderURLs[0], 0)
		watcher := escrow.NewWatcher(source, machine, cfg.EventPollInterval, logger)
		go watcher.Run(ctx)
	} else {
		logger.Warn().Msg("no provider URLs configured; escrow event stream disabled")
	}

	sweeper, err := escrow.NewSweeper(machine, cfg.SweepCron, logger)
	if err != nil {
		return fmt.Errorf("escrow sweeper: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	deps := httpinfra.ServerDeps{
		Store:       store,
		Chain:       chain,
		Machine:     machine,
		Profiles:    profiles,
		Cache:       cachedRegistry,
		AdminAPIKey: cfg.AdminAPIKey,
	}
	if emitter != nil {
		deps.Audit = emitter
	}
	srv := httpinfra.NewServerWithDeps(cfg, deps)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("gateway listening")
	return srv.Run()
}

func buildResolver(cfg config.Config, logger zerolog.Logger, emitter *usecase.AuditEmitter) (*quorum.Resolver, error) {
	if len(cfg.ProviderURLs) == 0 {
		return nil, errors.New("PROVIDER_URLS is required")
	}
	providers := make([]quorum.Provider, 0, len(cfg.ProviderURLs))
	for i, url := range cfg.ProviderURLs {
		providers = append(providers, quorum.NewRPCProvider(fmt.Sprintf("provider-%d", i+1), url, cfg.ProviderTimeout))
	}
	if cfg.QuorumN != len(providers) {
		logger.Warn().
			Int("configured_n", cfg.QuorumN).
			Int("providers", len(providers)).
			Msg("QUORUM_N does not match provider count; using provider count")
	}
	rcfg := quorum.ResolverConfig{
		Providers:       providers,
		Threshold:       cfg.QuorumM,
		ProviderTimeout: cfg.ProviderTimeout,
		ResolveTimeout:  cfg.ResolveTimeout,
		Logger:          logger,
	}
	if emitter != nil {
		rcfg.Audit = emitter
	}
	return quorum.NewResolver(rcfg)
}

func loadFingerprints(cfg config.Config, logger zerolog.Logger) (*registry.FingerprintTable, error) {
	if cfg.FingerprintsPath == "" {
		logger.Warn().Msg("FINGERPRINTS_PATH not set; no targets are pinned and layer 3 will fail every request")
		return registry.NewFingerprintTable(nil)
	}
	table, err := registry.LoadFingerprints(cfg.FingerprintsPath)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	logger.Info().Int("pins", table.Len()).Msg("fingerprint table loaded")
	return table, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
