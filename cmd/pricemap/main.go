package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"SteamPM/internal/auth"
	"SteamPM/internal/cache"
	"SteamPM/internal/catalog"
	"SteamPM/internal/currency"
	"SteamPM/internal/httpapi"
	"SteamPM/internal/pricemap"
	"SteamPM/internal/snapshot"
	"SteamPM/internal/steam"
	"SteamPM/internal/wishlist"
	"SteamPM/pkg/kit"
)

const service = "pricemap"

func main() {
	cfg, err := kit.LoadConfig()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	hour, minute, err := catalog.ParseClock(cfg.RefreshAt)
	if err != nil {
		log.Fatal("invalid REFRESH_AT", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := kit.NewEngineMetrics(reg)
	lookupHook := cache.WithLookupHook(func(c cache.Category, hit bool) {
		engineMetrics.CacheLookup(string(c), hit)
	})

	snaps, err := snapshot.Open(ctx, cfg.SnapshotDriver, cfg.SnapshotDSN)
	if err != nil {
		log.Fatal("snapshot store", zap.String("driver", cfg.SnapshotDriver), zap.Error(err))
	}
	if snaps != nil {
		defer func() { _ = snaps.Close() }()
	}

	steamClient := steam.NewClient(steam.Config{
		APIKey:        cfg.SteamAPIKey,
		AppListURL:    cfg.SteamAppListURL,
		AppDetailsURL: cfg.SteamAppDetailsURL,
		WishlistURL:   cfg.SteamWishlistURL,
		Timeout:       cfg.SteamTimeout,

		RequestsPerSecond: cfg.SteamRequestsPerSec,
		Burst:             cfg.SteamBurst,
	}, log.Named("steam"))

	state := catalog.NewStateStore(log.Named("catalog"))
	state.Initialize()

	refresher := catalog.NewRefresher(steamClient, state, log.Named("refresh"))
	refresher.Observer = engineMetrics
	if snaps != nil {
		refresher.Snapshots = snaps
	}

	gameCache := cache.New[pricemap.GameInfo](lookupHook)
	rateCache := cache.New[currency.RateTable](lookupHook)
	wishlistCache := cache.New[wishlist.Item](lookupHook)

	rateClient := currency.NewClient(cfg.CurrencyAPIURL, cfg.CurrencyAPIKey, log.Named("currency.api"))
	rates := currency.NewService(rateClient, rateCache, log.Named("currency"))

	prices := pricemap.NewService(steamClient, rates, gameCache, log.Named("pricemap"))
	prices.ReferenceRegion = cfg.SteamReferenceRegion
	if len(cfg.SteamCountryCodes) > 0 {
		prices.Regions = cfg.SteamCountryCodes
	}

	wl := wishlist.NewService(steamClient, wishlistCache, cfg.WishlistPageSize, log.Named("wishlist"))
	wl.ReferenceRegion = cfg.SteamReferenceRegion

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var store catalog.SnapshotStore
		if snaps != nil {
			store = snaps
		}
		catalog.Bootstrap(ctx, state, refresher, store, engineMetrics, log.Named("bootstrap"))
	}()
	go func() {
		defer wg.Done()
		catalog.NewScheduler(refresher, state, hour, minute, log.Named("scheduler")).Run(ctx)
	}()

	s := &httpapi.Server{
		State:     state,
		Refresher: refresher,
		Prices:    prices,
		Wishlist:  wl,
		Caches:    []httpapi.Clearer{gameCache, rateCache, wishlistCache},
		Log:       log,
	}

	var admin *auth.TokenMaker
	if cfg.AdminJWTSecret != "" {
		admin = auth.NewTokenMaker(cfg.AdminJWTSecret)
	} else {
		log.Warn("ADMIN_JWT_SECRET not set, admin endpoints disabled")
	}

	h := httpapi.NewHandler(s, httpapi.HTTPDeps{
		Log:             log,
		Service:         service,
		Registry:        reg,
		MetricsEnabled:  cfg.MetricsEnabled,
		MetricsToken:    cfg.MetricsToken,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Admin:           admin,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
	stop()
	wg.Wait()
}
