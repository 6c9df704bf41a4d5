// Package bootstrap assembles a running MultiNLU server from a Config. Both
// cmd/apiserver and "multinlu serve" go through New and Run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	nluapp "github.com/turtacn/MultiNLU/internal/application/nlu"
	"github.com/turtacn/MultiNLU/internal/config"
	redisinfra "github.com/turtacn/MultiNLU/internal/infrastructure/database/redis"
	"github.com/turtacn/MultiNLU/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
	minioinfra "github.com/turtacn/MultiNLU/internal/infrastructure/storage/minio"
	"github.com/turtacn/MultiNLU/internal/intelligence/common"
	"github.com/turtacn/MultiNLU/internal/intelligence/interpreter"
	"github.com/turtacn/MultiNLU/internal/intelligence/registry"
	"github.com/turtacn/MultiNLU/internal/intelligence/taxonomy"
	grpcapi "github.com/turtacn/MultiNLU/internal/interfaces/grpc"
	httpapi "github.com/turtacn/MultiNLU/internal/interfaces/http"
	"github.com/turtacn/MultiNLU/internal/interfaces/http/handlers"
	"github.com/turtacn/MultiNLU/internal/interfaces/http/middleware"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// App is a wired server. The locale registry starts loading in New; Run
// serves until its context ends.
type App struct {
	cfg    *config.Config
	logger logging.Logger

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.NLUMetrics
	Models    *registry.Registry[common.Interpreter]
	Service   nluapp.Service

	httpServer   *httpapi.Server
	httpListener net.Listener
	grpcServer   *grpcapi.Server
	limiter      *middleware.TokenBucketLimiter

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New builds every component described by cfg and binds the listeners.
// Optional backends (Redis, Kafka, MinIO) that cannot be reached make New
// fail; a locale whose model cannot be loaded does not.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, version string) (app *App, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if a.httpListener != nil {
				_ = a.httpListener.Close()
			}
			a.closeAll()
		}
	}()

	if cfg.Metrics.Enabled {
		a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.Metrics = prometheus.NewNLUMetrics(a.Collector)
	}

	model := taxonomy.LoadFileOrEmpty(cfg.NLU.TaxonomyPath, logger.Named("taxonomy"))
	stats := model.Stats()
	a.Metrics.SetTaxonomySize(stats.Groups, stats.Entities, stats.Values)
	matcher := taxonomy.NewMatcher(model)

	// Artifacts
	resolverOpts := []interpreter.ResolverOption{interpreter.WithResolverLogger(logger)}
	var minioClient *minioinfra.MinIOClient
	if cfg.Artifacts.Source == config.ArtifactSourceMinIO {
		minioClient, err = minioinfra.NewMinIOClient(ctx, cfg.Artifacts.MinIO, false, logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		store := minioinfra.NewArtifactStore(minioClient, a.Metrics.RecordArtifactDownload, logger.Named("artifacts"))
		resolverOpts = append(resolverOpts, interpreter.WithFetcher(store))
	}
	resolver := interpreter.NewResolver(cfg.NLU.ModelRoot, cfg.NLU.ModelDirPrefix, resolverOpts...)
	loader := interpreter.NewLoader(interpreter.LoaderConfig{
		Activate:       cfg.NLU.ActivateModel,
		ReadyTimeout:   cfg.NLU.LoadTimeout,
		RequestTimeout: cfg.NLU.RequestTimeout,
	}, cfg.NLU, resolver, logger)

	// Backends are connected before the registry starts loading.
	svcOpts := []nluapp.Option{nluapp.WithLogger(logger), nluapp.WithMetrics(a.Metrics)}
	var checkers []handlers.HealthChecker
	var parseCache *redisinfra.ParseCache

	if cfg.Cache.Enabled {
		rc, err := redisinfra.NewClient(ctx, cfg.Cache, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, namedCloser{"redis", rc.Close})
		parseCache = redisinfra.NewParseCache(rc, logger,
			redisinfra.WithPrefix(cfg.Cache.KeyPrefix),
			redisinfra.WithTTL(cfg.Cache.TTL),
			redisinfra.WithLoadTimeout(cfg.NLU.RequestTimeout))
		svcOpts = append(svcOpts, nluapp.WithCache(parseCache))
		checkers = append(checkers, handlers.CheckFunc{ComponentName: "redis", Fn: rc.Ping})
	}

	if cfg.Events.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Events), logger.Named("kafka"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, namedCloser{"kafka", producer.Close})
		svcOpts = append(svcOpts, nluapp.WithPublisher(kafka.NewParsePublisher(producer, cfg.Events.Topic, logger)))
	}

	if minioClient != nil {
		checkers = append(checkers, handlers.CheckFunc{ComponentName: "minio", Fn: minioClient.HealthCheck})
	}

	httpAddr := net.JoinHostPort(cfg.Server.HTTP.Host, strconv.Itoa(cfg.Server.HTTP.Port))
	if a.httpListener, err = net.Listen("tcp", httpAddr); err != nil {
		return nil, fmt.Errorf("http: listen on %s: %w", httpAddr, err)
	}

	// The gRPC health service must exist before Build so that it sees the
	// loading transitions.
	if cfg.Server.GRPC.Enabled {
		addr := net.JoinHostPort(cfg.Server.HTTP.Host, strconv.Itoa(cfg.Server.GRPC.Port))
		a.grpcServer, err = grpcapi.NewServer(addr,
			grpcapi.WithLogger(logger),
			grpcapi.WithGracefulTimeout(cfg.Server.ShutdownTimeout))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, namedCloser{"grpc", func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return a.grpcServer.Stop(stopCtx)
		}})
	}

	registryOpts := []registry.Option{
		registry.WithLogger(logger.Named("registry")),
		registry.WithLoadContext(ctx),
		registry.WithObserver(a.observeLocale),
	}
	if a.grpcServer != nil {
		registryOpts = append(registryOpts, registry.WithObserver(a.grpcServer.ObserveLocale))
	}
	load := loader.Load
	if parseCache != nil && cfg.NLU.ActivateModel {
		load = invalidatingLoad(load, parseCache, logger)
	}
	a.Models = registry.Build[common.Interpreter](cfg.NLU.Languages, load, registryOpts...)

	checkers = append(checkers, modelServerCheck(a.Models))

	a.Service = nluapp.NewService(a.Models, matcher, svcOpts...)

	// HTTP
	routerCfg := httpapi.RouterConfig{
		NLUHandler:    handlers.NewNLUHandler(a.Service),
		HealthHandler: handlers.NewHealthHandler(version, a.Service, checkers...),
		CORSOrigins:   cfg.Server.HTTP.CORSOrigins,
		MaxBodySize:   cfg.Server.HTTP.MaxBodySize,
		Logger:        logger,
		Metrics:       a.Metrics,
		Collector:     a.Collector,
		MetricsPath:   cfg.Metrics.Path,
	}
	if cfg.Server.HTTP.RateLimit > 0 {
		a.limiter = middleware.NewTokenBucketLimiter(cfg.Server.HTTP.RateLimit, cfg.Server.HTTP.RateBurst, time.Minute)
		routerCfg.RateLimiter = a.limiter
		a.closers = append(a.closers, namedCloser{"ratelimit", func() error { a.limiter.Stop(); return nil }})
	}

	a.httpServer = httpapi.NewServer(cfg.Server.HTTP, httpapi.NewRouter(routerCfg), logger)

	logger.Info("MultiNLU initialised",
		logging.String("version", version),
		logging.Strings("languages", a.Models.Locales()),
		logging.String("http_addr", a.HTTPAddr()),
		logging.Bool("grpc", a.grpcServer != nil),
		logging.Bool("cache", cfg.Cache.Enabled),
		logging.Bool("events", cfg.Events.Enabled))
	return a, nil
}

func (a *App) observeLocale(t registry.Transition) {
	a.Metrics.SetLocaleState(t.Locale, string(t.State))
	if t.State != nlu.LocaleLoading {
		status := "success"
		if t.State == nlu.LocaleFailed {
			status = "failure"
		}
		a.Metrics.RecordModelLoad(t.Locale, status, t.Duration)
	}
}

// invalidatingLoad drops the cached results of a locale once its model
// server has been given a new artifact, before the locale becomes ready.
// A cache failure is logged and does not fail the load.
func invalidatingLoad(load registry.Loader[common.Interpreter], cache *redisinfra.ParseCache,
	logger logging.Logger) registry.Loader[common.Interpreter] {
	return func(ctx context.Context, lang string) (common.Interpreter, error) {
		m, err := load(ctx, lang)
		if err != nil {
			return m, err
		}
		n, err := cache.InvalidateLocale(ctx, lang)
		if err != nil {
			logger.Warn("could not drop cached results of reactivated model",
				logging.String("locale", lang), logging.Err(err))
			return m, nil
		}
		logger.Info("dropped cached results of reactivated model",
			logging.String("locale", lang), logging.Int64("keys", n))
		return m, nil
	}
}

// modelServerCheck pings the model server of every ready locale whose
// interpreter supports it. Loading and failed locales are reported by the
// locale list instead.
func modelServerCheck(models *registry.Registry[common.Interpreter]) handlers.CheckFunc {
	return handlers.CheckFunc{ComponentName: "model_servers", Fn: func(ctx context.Context) error {
		var errs []error
		for _, st := range models.Statuses() {
			if st.State != nlu.LocaleReady {
				continue
			}
			m, err := models.Get(ctx, st.Locale)
			if err != nil {
				continue
			}
			if p, ok := m.(common.Pinger); ok {
				if err := p.Ping(ctx); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", st.Locale, err))
				}
			}
		}
		return errors.Join(errs...)
	}}
}

// HTTPAddr is the bound HTTP address.
func (a *App) HTTPAddr() string {
	if a.httpListener == nil {
		return ""
	}
	return a.httpListener.Addr().String()
}

// GRPCAddr is the bound gRPC address, or "" when gRPC is disabled.
func (a *App) GRPCAddr() string {
	if a.grpcServer == nil {
		return ""
	}
	return a.grpcServer.Addr()
}

// Run serves until ctx ends or a listener fails, then shuts down within
// the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.httpServer.Serve(a.httpListener) })
	if a.grpcServer != nil {
		g.Go(a.grpcServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown drains HTTP, then stops gRPC and the backends in reverse order
// of creation.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		firstErr = err
	}
	a.closeAll()
	return firstErr
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", logging.String("component", c.name), logging.Err(err))
		}
	}
	a.closers = nil
}

//Personal.AI order the ending
