package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/alerts"
	"github.com/memerun/memerun/internal/bundles"
	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/data/cache"
	"github.com/memerun/memerun/internal/datafacade"
	"github.com/memerun/memerun/internal/discovery"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
	"github.com/memerun/memerun/internal/metrics"
	"github.com/memerun/memerun/internal/momentum"
	"github.com/memerun/memerun/internal/persistence"
	"github.com/memerun/memerun/internal/persistence/postgres"
	"github.com/memerun/memerun/internal/providers/chainrpc"
	"github.com/memerun/memerun/internal/providers/dexscreener"
	"github.com/memerun/memerun/internal/providers/directory"
	"github.com/memerun/memerun/internal/providers/holderscan"
	"github.com/memerun/memerun/internal/safety"
	"github.com/memerun/memerun/internal/scanner"
	"github.com/memerun/memerun/internal/scoring"
	"github.com/memerun/memerun/internal/screening"
	"github.com/memerun/memerun/internal/thresholds"
	"github.com/memerun/memerun/internal/tiers"
)

// app owns every long-lived component. Built once per process.
type app struct {
	cfg *config.Config

	chain      *chainrpc.Client
	aggregator *dexscreener.Client
	holders    *holderscan.Client
	directory  *directory.Client

	store      persistence.SignalStore
	storeClose func() error
	thresholds *thresholds.Store
	discovery  *discovery.Tracker
	scheduler  *scanner.Scheduler
	metrics    *metrics.Metrics
	server     *metrics.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, discovery: discovery.NewTracker(), metrics: metrics.New()}

	chainKey := cfg.APIKeys.ChainRPC
	if cfg.ChainRPCDisabled {
		chainKey = ""
	}
	a.chain = chainrpc.NewClient(chainrpc.Config{
		BaseURL: cfg.Providers.ChainRPCURL,
		WSURL:   cfg.Providers.ChainRPCWSURL,
		APIKey:  chainKey,
		RPS:     cfg.Providers.ChainRPCRPS,
	})
	a.aggregator = dexscreener.NewClient(dexscreener.Config{
		BaseURL:     cfg.Providers.AggregatorURL,
		ChainID:     cfg.Providers.ChainID,
		MinInterval: time.Duration(cfg.Providers.AggregatorIntervalMS) * time.Millisecond,
		SharedCache: cache.NewBytesAuto(cfg.RedisAddr),
	})
	a.holders = holderscan.NewClient(holderscan.Config{
		BaseURL: cfg.Providers.HolderScanURL,
		APIKey:  cfg.APIKeys.HolderScan,
	})
	a.directory = directory.NewClient(directory.Config{
		BaseURL: cfg.Providers.DirectoryURL,
		APIKey:  cfg.APIKeys.Directory,
	})

	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.store = pg
		a.storeClose = pg.Close
	} else {
		log.Warn().Msg("no postgres DSN configured, signals held in memory only")
		a.store = persistence.NewMemoryStore()
	}

	defaults := cfg.Thresholds
	defaults.LearningMode = cfg.LearningMode
	a.thresholds = thresholds.NewStore(ctx, a.store, defaults)

	facade := datafacade.New(a.aggregator, a.chain, a.holders)
	scorer := scoring.NewScorer()
	snap := a.thresholds.Current()
	scorer.SetDynamicThresholds(snap.MinSafetyScore, snap.MaxBundleRiskScore)

	classifier := tiers.NewClassifier(cfg.Tiers)

	var notifier scanner.Notifier = alerts.LogNotifier{}
	if cfg.Notifier.WebhookURL != "" {
		webhookPool := httpclient.New(httpclient.Config{Name: "notifier", RequestTimeout: 10 * time.Second})
		notifier = alerts.Fanout{
			alerts.NewWebhookNotifier(webhookPool, cfg.Notifier.WebhookURL),
			alerts.LogNotifier{},
		}
	}

	pipeline := scanner.NewPipeline(scanner.PipelineDeps{
		Store:      a.store,
		Notifier:   notifier,
		Facade:     facade,
		Safety:     safety.NewChecker(facade, a.aggregator),
		Bundles:    bundles.NewDetector(a.chain),
		Momentum:   momentum.NewAnalyzer(a.aggregator),
		Info:       a.aggregator,
		Scorer:     scorer,
		Filter:     screening.NewFilter(cfg.Screening),
		Classifier: classifier,
		Sizer:      tiers.NewSizer(cfg.Sizing.BasePositionSize, classifier),
		Thresholds: a.thresholds,
		Discovery:  a.discovery,
		Metrics:    a.metrics,
	})

	feed := scanner.NewFeed(a.aggregator, a.directory)

	var listings <-chan chainrpc.ListingEvent
	if a.chain.Enabled() {
		listings = a.chain.SubscribeNewListings(ctx)
	}
	probes := []scanner.ProviderProbe{
		{Name: "chainrpc", Errors: func() int64 { return a.chain.PoolStats().Failed }, Entries: func() int { return a.chain.CacheStats().Entries }},
		{Name: "aggregator", Errors: func() int64 { return a.aggregator.PoolStats().Failed }, Entries: func() int { return a.aggregator.CacheStats().Entries }},
		{Name: "holderscan", Errors: func() int64 { return a.holders.PoolStats().Failed }, Entries: func() int { return a.holders.CacheStats().Entries }},
		{Name: "directory", Errors: func() int64 { return a.directory.PoolStats().Failed }, Entries: func() int { return a.directory.CacheStats().Entries }},
	}
	a.scheduler = scanner.NewScheduler(cfg.ScanInterval(), feed, pipeline, a.discovery, a.metrics, listings, probes...)

	a.server = metrics.NewServer(cfg.MetricsListen, a.metrics, providerHealth{a})
	return a, nil
}

func (a *app) close() {
	if a.storeClose != nil {
		if err := a.storeClose(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}
}

// providerHealth reports per-provider breaker state and cache counters on
// the /health endpoint.
type providerHealth struct{ a *app }

func (providerHealth) Name() string { return "providers" }

func (h providerHealth) Health() any {
	type entry struct {
		Breaker string      `json:"breaker"`
		Cache   cache.Stats `json:"cache"`
		Enabled bool        `json:"enabled"`
	}
	return map[string]entry{
		"chain_rpc": {
			Breaker: h.a.chain.BreakerState(),
			Cache:   h.a.chain.CacheStats(),
			Enabled: h.a.chain.Enabled(),
		},
		"aggregator": {
			Breaker: h.a.aggregator.BreakerState(),
			Cache:   h.a.aggregator.CacheStats(),
			Enabled: true,
		},
		"holderscan": {
			Breaker: h.a.holders.BreakerState(),
			Cache:   h.a.holders.CacheStats(),
			Enabled: h.a.holders.Enabled(),
		},
		"directory": {
			Breaker: h.a.directory.BreakerState(),
			Cache:   h.a.directory.CacheStats(),
			Enabled: true,
		},
	}
}
