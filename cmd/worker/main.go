// Command worker consumes the parse events published by MultiNLU servers and
// serves usage reports built from them.
//
//	GET    /healthz  liveness
//	GET    /metrics  Prometheus series for the consumed events
//	GET    /report   per-locale usage since the last reset
//	DELETE /report   start a new reporting window
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MultiNLU/internal/application/reporting"
	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
)

const (
	defaultHealthPort = 8081
	defaultGroup      = "multinlu-reporting"
	maxRetries        = 3
)

func main() {
	configPath := flag.String("config", os.Getenv("MULTINLU_CONFIG"), "path to configuration file (default: MULTINLU_* variables only)")
	group := flag.String("group", defaultGroup, "Kafka consumer group")
	fromBeginning := flag.Bool("from-beginning", false, "start a new group at the oldest retained event")
	port := flag.Int("http-port", defaultHealthPort, "port for /healthz, /metrics and /report")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("multinlu-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *group, *fromBeginning, *port, logger); err != nil {
		logger.Error("worker stopped with error", logging.Err(err))
		stop()
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, group string, fromBeginning bool, port int, logger logging.Logger) error {
	if len(cfg.Events.Brokers) == 0 {
		return errors.New("events.brokers is not configured")
	}

	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "multinlu"
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	aggregator := reporting.NewAggregator(collector, logger)

	offset := "latest"
	if fromBeginning {
		offset = "earliest"
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Events.Brokers,
		GroupID:         group,
		Topics:          []string{cfg.Events.Topic},
		AutoOffsetReset: offset,
		RetryConfig:     kafka.RetryConfig{MaxRetries: maxRetries, RetryBackoff: time.Second},
	}, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	consumer.Subscribe(cfg.Events.Topic, aggregator.Handle)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newRouter(aggregator, collector),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker listening", logging.Int("port", port),
			logging.String("topic", cfg.Events.Topic), logging.String("group", group))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(aggregator *reporting.Aggregator, collector prometheus.MetricsCollector) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(collector.Handler()))
	r.GET("/report", func(c *gin.Context) {
		c.JSON(http.StatusOK, aggregator.Report())
	})
	r.DELETE("/report", func(c *gin.Context) {
		aggregator.Reset()
		c.Status(http.StatusNoContent)
	})
	return r
}

//Personal.AI order the ending
