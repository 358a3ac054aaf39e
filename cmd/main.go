package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/bingo/internal/adapters/http/api"
	"github.com/okian/bingo/internal/adapters/http/site"
	"github.com/okian/bingo/internal/adapters/http/swagger"
	"github.com/okian/bingo/internal/adapters/llm/gemini"
	"github.com/okian/bingo/internal/adapters/llm/openrouter"
	"github.com/okian/bingo/internal/adapters/repository"
	service "github.com/okian/bingo/internal/app"
	"github.com/okian/bingo/internal/config"
	"github.com/okian/bingo/internal/domain/classify"
	"github.com/okian/bingo/internal/domain/ratelimit"
	"github.com/okian/bingo/pkg/logger"
	"github.com/okian/bingo/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Server and background loop timings. The write timeout leaves room for
// the outbound classification call.
const (
	readTimeout       = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 45 * time.Second
	idleTimeout       = 90 * time.Second
	drainTimeout      = 20 * time.Second
	runtimeStatsEvery = 15 * time.Second
	nsPerMs           = 1e6
)

// appTitle is sent to the classifier provider for attribution.
const appTitle = "Mobility Bingo"

func main() {
	// Only the bingo registry is exposed; drop the default runtime collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// .env is optional outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "bingo: reading .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bingo: config:", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.WithJSON(cfg.LogFormat == "json"), logger.WithLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "bingo: logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "bingo exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run wires the service from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	metrics.Configure(
		metrics.WithEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithConstLabels(map[string]string{
			"provider": cfg.LLMProvider,
			"store":    cfg.StoreBackend,
		}),
	)

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return fmt.Errorf("classifier transport %q: %w", cfg.LLMProvider, err)
	}
	if transport == nil {
		log.Warn(ctx, "no classifier credentials configured; analysis is disabled", logger.String("provider", cfg.LLMProvider))
	}

	versions, closeStore, err := newVersionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("version store %q: %w", cfg.StoreBackend, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error(ctx, "closing version store", logger.Error(err))
		}
	}()

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithLimiter(ratelimit.New(
			ratelimit.WithMaxRequests(cfg.RateLimitMaxRequests),
			ratelimit.WithWindow(cfg.RateLimitWindow()),
		)),
		service.WithVersionStore(versions),
	}
	if transport != nil {
		opts = append(opts, service.WithTransport(transport,
			classify.WithModel(cfg.Model()),
			classify.WithTemperature(float32(cfg.LLMTemperature)),
			classify.WithMaxTokens(cfg.LLMMaxTokens),
			classify.WithTimeout(cfg.LLMTimeout()),
		))
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", cfg.Addr), logger.Bool("classifier", transport != nil))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "draining connections", logger.Duration("timeout", drainTimeout))
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers every route. Specific API paths win over the UI's
// catch-all root.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// newTransport builds the configured classifier transport. It returns nil
// without error when the provider has no credentials.
func newTransport(ctx context.Context, cfg *config.Config) (classify.Transport, error) {
	if !cfg.ClassifierConfigured() {
		return nil, nil
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:    cfg.LLMAPIKey,
			ProjectID: cfg.GCPProjectID,
			Region:    cfg.GCPRegion,
		})
	default:
		return openrouter.New(cfg.LLMAPIKey,
			openrouter.WithBaseURL(cfg.LLMBaseURL),
			openrouter.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout()}),
			openrouter.WithReferer("", appTitle),
		)
	}
}

// newVersionStore opens the configured backend. The returned func releases
// backend connections.
func newVersionStore(ctx context.Context, cfg *config.Config) (*repository.VersionStore, func() error, error) {
	noop := func() error { return nil }
	opts := []repository.Option{repository.WithMaxVersions(cfg.MaxVersions)}

	switch cfg.StoreBackend {
	case config.BackendFile:
		kv, err := repository.NewFileKV(cfg.StoreDir)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewVersionStore(kv, opts...), noop, nil
	case config.BackendRedis:
		client, err := repository.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewVersionStore(repository.NewRedisKV(client, cfg.RedisPrefix), opts...), client.Close, nil
	default:
		return repository.NewVersionStore(repository.NewMemoryKV(), opts...), noop, nil
	}
}

// every calls fn on each tick of interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// startSystemMetricsUpdater samples runtime memory, goroutines and GC pauses.
func startSystemMetricsUpdater(ctx context.Context) {
	every(ctx, runtimeStatsEvery, updateSystemMetrics)
}

// startServiceMetricsUpdater keeps gauges that change without requests
// current, such as the limiter budget recovering as the window slides.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	every(ctx, metrics.RefreshInterval(), func() { updateServiceMetrics(ctx, svc) })
}

func updateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(ms.PauseTotalNs) / float64(ms.NumGC) / nsPerMs)
	}
}

// updateServiceMetrics refreshes the limiter and version count gauges.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	metrics.UpdateRateLimitRemaining(svc.Limits(ctx).Remaining)
	if list, err := svc.ListVersions(ctx); err == nil {
		metrics.UpdateVersionsTotal(len(list))
	}
}
