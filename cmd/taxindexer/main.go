package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/errcount"
	"github.com/emperorhan/taxindexer/internal/progress"
	"github.com/emperorhan/taxindexer/internal/ratelimit"
	"github.com/emperorhan/taxindexer/internal/report"
	"github.com/emperorhan/taxindexer/internal/report/aggregate"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/dispatch/handlers"
	"github.com/emperorhan/taxindexer/internal/report/export"
	"github.com/emperorhan/taxindexer/internal/report/normalize"
	"github.com/emperorhan/taxindexer/internal/source"
	"github.com/emperorhan/taxindexer/internal/store/postgres"
	redisstore "github.com/emperorhan/taxindexer/internal/store/redis"
	"github.com/emperorhan/taxindexer/internal/tracing"
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting taxindexer",
		"chain", cfg.Chain,
		"wallet", cfg.Wallet,
		"input_file", cfg.Source.InputFile,
		"csv_path", cfg.Export.CSVPath,
		"postgres_export", cfg.Export.PostgresOn,
	)

	shutdownTracing, err := tracing.Init(context.Background(), "taxindexer", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	runner, cleanup, err := buildRunner(cfg, logger)
	if err != nil {
		logger.Error("failed to build report runner", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	g.Go(func() error {
		defer cancel()
		summary, err := runner.Run(gCtx)
		if err != nil {
			return fmt.Errorf("report run: %w", err)
		}
		logger.Info("run finished",
			"transactions", summary.Transactions,
			"messages", summary.Messages,
			"rows", summary.Rows,
		)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("taxindexer exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("taxindexer shut down gracefully")
}

// buildRunner assembles the full report pipeline from config. The
// returned cleanup closes whatever external connections got opened.
func buildRunner(cfg *config.Config, logger *slog.Logger) (*report.Runner, func(), error) {
	cleanup := func() {}
	chain := model.Chain(cfg.Chain)

	spec, err := config.LoadChainSpec(chain, cfg.ChainsFile)
	if err != nil {
		return nil, cleanup, err
	}

	resolver, redisClient, err := buildResolver(cfg, spec, logger)
	if err != nil {
		return nil, cleanup, err
	}

	normalizer, err := normalize.New(spec, cfg.Wallet, resolver, logger)
	if err != nil {
		return nil, cleanup, err
	}

	errs := errcount.New()
	dispatcher := dispatch.New(chain, handlers.Default(), errs, aggregate.Options{
		NativeCurrency: spec.NativeCurrency,
		FeeEpsilon:     spec.FeeEpsilon,
	}, logger, dispatch.WithDebug(cfg.Report.Debug))

	scanners, err := buildScanners(cfg, spec, logger)
	if err != nil {
		return nil, cleanup, err
	}

	exporter, storeCloser, err := buildExporter(cfg, chain, logger)
	if err != nil {
		return nil, cleanup, err
	}

	cleanup = func() {
		if storeCloser != nil {
			if err := storeCloser(); err != nil {
				logger.Warn("row store close error", "error", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "error", err)
			}
		}
	}

	sink := progress.NewLogSink(logger, cfg.Report.ProgressInterval)
	runner := report.NewRunner(chain, cfg.Wallet, scanners, normalizer, dispatcher, exporter, errs, sink, logger)
	return runner, cleanup, nil
}

func buildResolver(cfg *config.Config, spec config.ChainSpec, logger *slog.Logger) (currency.Resolver, *redis.Client, error) {
	base := currency.NewChainResolver(spec.NativeDenom, spec.NativeCurrency, spec.NativeDecimals, spec.DenomAliases)

	var opts []currency.CachedOption
	var client *redis.Client
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(redisOpts)
		opts = append(opts, currency.WithStore(redisstore.NewSymbolStore(client, spec.Chain.String(), 0)))
		logger.Info("redis symbol cache enabled")
	}

	resolver := currency.NewCachedResolver(base, spec.Chain.String(),
		cfg.Report.CacheCapacity, cfg.Report.CacheTTL, logger, opts...)
	return resolver, client, nil
}

func buildScanners(cfg *config.Config, spec config.ChainSpec, logger *slog.Logger) ([]*source.Scanner, error) {
	limiter := ratelimit.NewLimiter(cfg.Source.RateRPS, cfg.Source.RateBurst, spec.Chain.String())
	sink := progress.NewLogSink(logger, cfg.Report.ProgressInterval)

	newScanner := func(src source.RawSource) *source.Scanner {
		return source.NewScanner(spec.Chain.String(), src, limiter, sink)
	}

	if cfg.Source.InputFile != "" {
		fs, err := source.NewFileSource(cfg.Source.InputFile, cfg.Source.PageSize)
		if err != nil {
			return nil, err
		}
		return []*source.Scanner{newScanner(fs)}, nil
	}

	switch spec.Chain.Family() {
	case model.FamilyCosmos:
		// Sent and received histories are separate queries; the runner
		// dedupes by tx hash.
		return []*source.Scanner{
			newScanner(source.NewLCDSource(spec.APIBaseURL, source.SenderQuery(cfg.Wallet), cfg.Source.PageSize)),
			newScanner(source.NewLCDSource(spec.APIBaseURL, source.RecipientQuery(cfg.Wallet), cfg.Source.PageSize)),
		}, nil
	case model.FamilyAlgorand:
		return []*source.Scanner{
			newScanner(source.NewIndexerSource(spec.APIBaseURL, cfg.Wallet, cfg.Source.PageSize)),
		}, nil
	default:
		return nil, fmt.Errorf("chain %s has no network source, set INPUT_FILE", spec.Chain)
	}
}

func buildExporter(cfg *config.Config, chain model.Chain, logger *slog.Logger) (export.Exporter, func() error, error) {
	var exporters export.Multi

	csvPath := cfg.Export.CSVPath
	if csvPath == "" {
		csvPath = fmt.Sprintf("report_%s_%s.csv", chain, cfg.Wallet)
	}
	exporters = append(exporters, export.NewCSVExporter(csvPath))

	var closer func() error
	if cfg.Export.PostgresOn {
		store, err := postgres.Open(cfg.DB.URL, postgres.Options{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(context.Background()); err != nil {
			store.Close()
			return nil, nil, err
		}
		exporters = append(exporters, export.NewPostgresExporter(store, chain.String()))
		closer = store.Close
	}
	return exporters, closer, nil
}

func runHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
