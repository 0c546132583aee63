package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/sos-gateway/internal/cache"
	"github.com/mohammed-shakir/sos-gateway/internal/cache/admission"
	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/observability"
	"github.com/mohammed-shakir/sos-gateway/internal/core/server"
	"github.com/mohammed-shakir/sos-gateway/internal/events"
	"github.com/mohammed-shakir/sos-gateway/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/sos-gateway/internal/logger"
	"github.com/mohammed-shakir/sos-gateway/internal/metrics"
	"github.com/mohammed-shakir/sos-gateway/internal/sos"
	"github.com/mohammed-shakir/sos-gateway/internal/sos/capabilities"
	"github.com/mohammed-shakir/sos-gateway/internal/sos/observation"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", os.Getenv("SOS_CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "sos-gateway",
		Component: "sos-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer(), cfg.MetricsEnabled)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting sos gateway",
		"addr", cfg.Addr,
		"version", Version,
		"resource", cfg.Resource,
		"default_sos_version", cfg.Version,
		"accept_versions", strings.Join(cfg.AcceptVersions, ","),
		"cache", cfg.Cache.Driver,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPG(ctx, cfg.Storage)
	if err != nil {
		appLog.Error("storage setup failed", "err", err)
		return 1
	}
	defer store.Close()

	obsCache, closeCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		appLog.Error("cache setup failed", "driver", cfg.Cache.Driver, "err", err)
		return 1
	}
	defer func() {
		if err := closeCache(); err != nil {
			appLog.Warn("cache close failed", "err", err)
		}
	}()

	if cfg.Invalidation.Enabled {
		if inv, ok := obsCache.(cache.Invalidator); ok {
			c := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg), appLog, inv)
			go func() {
				if err := c.Start(ctx); err != nil {
					appLog.Error("invalidation consumer stopped", "err", err)
				}
			}()
		} else {
			appLog.Warn("invalidation enabled but cache driver cannot invalidate", "driver", cfg.Cache.Driver)
		}
	}

	var sink events.Sink = events.Discard{}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(splitBrokers(cfg.Events.Brokers), cfg.Events.Topic, cfg.Events.Queue, appLog)
		if err != nil {
			appLog.Error("events setup failed", "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Warn("events close failed", "err", err)
			}
		}()
		sink = pub
	}

	caps := capabilities.New(
		capabilities.ConfigDescriber{Info: cfg.Service},
		cfg.PublicURL,
		cfg.AcceptVersions,
		appLog,
	)
	obs := observation.NewService(observation.Options{
		Table:       cfg.Storage.ObservationsTable,
		Cache:       obsCache,
		CacheDriver: cfg.Cache.Driver,
		CacheTTL:    cfg.Cache.TTL,
		Admission:   admission.New(cfg.Cache.AdmitThreshold, cfg.Cache.AdmitHalfLife, cfg.Cache.AdmitTrack),
		Events:      sink,
		Logger:      appLog,
	})
	dispatcher := sos.NewDispatcher(caps, obs, appLog)

	h := server.NewHandler(cfg, appLog, store, dispatcher, p.Handler())
	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func splitBrokers(s string) []string {
	var out []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
