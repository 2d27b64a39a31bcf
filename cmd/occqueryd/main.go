package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/livingatlas/occquery/internal/config"
	"github.com/livingatlas/occquery/internal/health"
	"github.com/livingatlas/occquery/internal/logger"
	"github.com/livingatlas/occquery/internal/metrics"
	"github.com/livingatlas/occquery/internal/observability"
	"github.com/livingatlas/occquery/internal/purge"
	"github.com/livingatlas/occquery/internal/qid"
	"github.com/livingatlas/occquery/internal/qid/redisstore"
	"github.com/livingatlas/occquery/internal/qid/sqlitestore"
	"github.com/livingatlas/occquery/internal/query"
	"github.com/livingatlas/occquery/internal/server"
)

var Version = "dev"

type durableStore interface {
	qid.Durable[*qid.Qid]
	Del(ctx context.Context, keys ...string) error
	Close() error
}

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address override")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "occqueryd",
	}, os.Stdout)
	slogLog := logger.NewSlog(&zl)

	provider := metrics.Init(metrics.Config{
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(provider.Registerer())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var durable durableStore
	var err error
	switch cfg.StoreDriver {
	case "sqlite":
		durable, err = sqlitestore.New(cfg.SQLitePath)
	default:
		durable, err = redisstore.New(ctx, cfg.RedisAddr)
	}
	if err != nil {
		zl.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("durable store init failed")
		return 1
	}
	defer func() {
		if err := durable.Close(); err != nil {
			zl.Error().Err(err).Msg("durable store close")
		}
	}()

	store := qid.NewStore(qid.Options{
		MaxCacheSize: cfg.MaxCacheSize,
		MinCacheSize: cfg.MinCacheSize,
		MaxEntrySize: cfg.MaxEntrySize,
		MaxAge:       cfg.MaxAge,
	}, durable, cfg.StoreOpTimeout, slogLog)
	defer store.Close()

	rewriter := query.NewRewriter(query.Config{
		Qids:              store,
		SpatialField:      cfg.SpatialField,
		MaxBooleanClauses: cfg.MaxBooleanClauses,
		CircleSegments:    cfg.CircleSegments,
		MemoSize:          cfg.MemoSize,
		Log:               zl,
	})

	var ready health.ReadinessReporter
	if cfg.Purge.Enabled {
		runner := purge.New(
			purge.NewConfig(true, cfg.Purge.Brokers, cfg.Purge.Topic, cfg.Purge.GroupID),
			store,
			purge.Options{
				Logger:   slogLog,
				Register: provider.Registerer(),
				Durable:  durable,
			},
		)
		if err := runner.Start(ctx); err != nil {
			zl.Error().Err(err).Msg("purge runner start failed")
			return 1
		}
		defer runner.Stop()
		ready = runner
	}

	zl.Info().
		Str("addr", cfg.Addr).
		Str("version", Version).
		Str("store", cfg.StoreDriver).
		Bool("purge", cfg.Purge.Enabled).
		Msg("starting occqueryd")

	if err := server.Run(ctx, cfg.Addr, server.Deps{
		Log:      zl,
		Store:    store,
		Rewriter: rewriter,
		Metrics:  provider.Handler(),
		Ready:    ready,
	}); err != nil {
		zl.Error().Err(err).Msg("http server failed")
		return 1
	}
	return 0
}
