// Command forwarder runs the DNS forwarder: it loads configuration,
// wires together the cache pool, domain filter, upstream dispatcher,
// optional ICMP prober, query pipeline, UDP listener, and optional
// admin API, then serves until a shutdown signal arrives (§4.H, §4.I,
// §6, §10 AMBIENT STACK "CLI / process lifecycle").
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jroosing/dnsforward/internal/adminapi"
	"github.com/jroosing/dnsforward/internal/cache"
	"github.com/jroosing/dnsforward/internal/config"
	"github.com/jroosing/dnsforward/internal/filtering"
	"github.com/jroosing/dnsforward/internal/logging"
	"github.com/jroosing/dnsforward/internal/pipeline"
	"github.com/jroosing/dnsforward/internal/probe"
	"github.com/jroosing/dnsforward/internal/server"
	"github.com/jroosing/dnsforward/internal/upstream"
)

// shutdownGrace bounds how long the main goroutine waits for the admin
// API to shut down cleanly before persisting the cache
// and exiting regardless (teacher's cmd/hydradns uses 5s for the same
// purpose).
const shutdownGrace = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "forwarder: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("forwarder exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dispatcher, err := upstream.NewDispatcher(cfg.Upstream.Servers, upstream.Strategy(cfg.Upstream.ChooseStrategy), logger)
	if err != nil {
		return fmt.Errorf("forwarder: build dispatcher: %w", err)
	}
	defer dispatcher.Close()
	go dispatcher.Run(ctx)

	if upstream.Strategy(cfg.Upstream.ChooseStrategy) == upstream.StrategyFastestSticky {
		dispatcher.BenchmarkOnce(ctx)
		interval, err := time.ParseDuration(cfg.Upstream.ChooseDuration)
		if err != nil {
			interval = 12 * time.Hour
		}
		go dispatcher.RunBenchmark(ctx, interval)
	}

	refreshInterval, err := time.ParseDuration(cfg.Filtering.RefreshInterval)
	if err != nil {
		refreshInterval = 24 * time.Hour
	}
	blocklist := filtering.NewBlocklist(filtering.BlocklistOptions{
		Sources:         cfg.Filtering.Sources,
		RefreshInterval: refreshInterval,
		Logger:          logger,
	})
	defer blocklist.Close()

	var pool *cache.Pool
	if cfg.Cache.Enabled {
		pool = cache.NewPool(cache.Options{
			Capacity:    cfg.Cache.Num,
			Path:        cfg.Cache.File,
			GetStrategy: cache.CacheGetStrategy(cfg.Cache.GetStrategy),
			TTLTimeout:  time.Duration(cfg.Cache.TTLTimeoutMs) * time.Millisecond,
			Logger:      logger,
			BaseCtx:     ctx,
		})
		defer persistCache(pool, logger)
	}

	var metrics *adminapi.Metrics
	if cfg.API.Enabled {
		metrics = adminapi.NewMetrics(prometheus.NewRegistry())
	}

	var chain server.Pipeline = buildChain(cfg, dispatcher, blocklist, pool, metrics, logger)
	if metrics != nil {
		chain = metrics.InstrumentPipeline(chain)
		if pool != nil {
			go metrics.WatchCache(ctx, time.Second, pool.HitStats)
		}
	}

	srv, err := server.New(server.Options{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Reuseport: cfg.Server.Reuseport,
		Pipeline:  chain,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("forwarder: build server: %w", err)
	}
	defer srv.Close()

	go srv.Run(ctx)
	logger.Info("forwarder listening", "addr", srv.Addr())

	var adminSrv *adminapi.Server
	if cfg.API.Enabled {
		adminSrv = adminapi.New(adminapi.Options{
			Host:   cfg.API.Host,
			Port:   cfg.API.Port,
			Logger: logger,
			CacheStats: func() (size, capacity int, hits, misses int64) {
				if pool == nil {
					return 0, 0, 0, 0
				}
				h, m := pool.HitStats()
				return pool.Len(), pool.Capacity(), h, m
			},
			UpstreamStats: func() (strategy, fastest string, servers []string) {
				return strategyName(cfg.Upstream.ChooseStrategy), dispatcher.Servers.Fastest(), dispatcher.Servers.All()
			},
			Metrics: metrics,
		})
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil {
				logger.Debug("admin api stopped", "err", err)
			}
		}()
		logger.Info("admin api listening", "addr", adminSrv.Addr())
	}

	<-ctx.Done()
	logger.Info("forwarder shutting down")

	if adminSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		adminSrv.Shutdown(shutdownCtx)
		cancel()
	}

	return nil
}

func persistCache(pool *cache.Pool, logger *slog.Logger) {
	if err := pool.Save(); err != nil {
		logger.Error("failed to persist cache on shutdown", "err", err)
	}
}

func strategyName(strategy int) string {
	switch upstream.Strategy(strategy) {
	case upstream.StrategyRace:
		return "race"
	case upstream.StrategyCombine:
		return "combine"
	default:
		return "fastest-sticky"
	}
}

// buildChain assembles the per-request pipeline per §4.G: DomainFilter,
// LegalityCheck, an optional CacheLookup, IPSelect or IPFirst depending
// on whether an ICMP prober is configured, terminated by UpstreamSend.
func buildChain(cfg *config.Config, dispatcher *upstream.Dispatcher, blocklist *filtering.Blocklist, pool *cache.Pool, metrics *adminapi.Metrics, logger *slog.Logger) *pipeline.Chain {
	var sender pipeline.Sender = pipeline.SenderFunc(dispatcher.Send)
	if metrics != nil {
		sender = metrics.InstrumentSender(sender)
	}

	stages := []pipeline.Stage{
		pipeline.DomainFilter{Blocklist: blocklist},
		pipeline.LegalityCheck{Dispatcher: sender},
	}

	if pool != nil {
		stages = append(stages, pipeline.CacheLookup{Pool: pool})
	}

	if config.IPChooseStrategy(cfg.IPChoose.Strategy) == config.IPChooseProbe {
		stages = append(stages, pipeline.IPSelect{Prober: probe.NewICMPProber(logger)})
	} else {
		stages = append(stages, pipeline.IPFirst{})
	}

	stages = append(stages, pipeline.UpstreamSend{Dispatcher: sender})
	return pipeline.New(stages...)
}
