// Package http exposes the MultiNLU REST API on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MultiNLU/internal/interfaces/http/handlers"
	"github.com/turtacn/MultiNLU/internal/interfaces/http/middleware"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	NLUHandler    *handlers.NLUHandler
	HealthHandler *handlers.HealthHandler

	// RateLimiter applies to the /nlu routes only.
	RateLimiter middleware.RateLimiter
	CORSOrigins []string
	MaxBodySize int64

	Logger      logging.Logger
	Metrics     *prometheus.NLUMetrics
	Collector   prometheus.MetricsCollector
	MetricsPath string
}

// NewRouter builds the route tree:
//
//	GET  /nlu/          greeting (text/plain)
//	POST /nlu/          parse
//	GET  /nlu/locales   locale states
//	GET  /healthz       liveness
//	GET  /readyz        readiness
//	GET  /metrics       Prometheus scrape
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Recovery(logger))
	if len(cfg.CORSOrigins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = cfg.CORSOrigins
		r.Use(middleware.CORS(corsCfg))
	}
	r.Use(middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, nlu.ErrorResponse{
			Code:    errors.ErrCodeNotFound.String(),
			Message: "no route for " + c.Request.URL.Path,
		})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, nlu.ErrorResponse{
			Code:    errors.ErrCodeBadRequest.String(),
			Message: c.Request.Method + " not allowed on " + c.Request.URL.Path,
		})
	})

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.Collector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Collector.Handler()))
	}

	registerNLURoutes(r, cfg)
	return r
}

// registerNLURoutes mounts the parse API under /nlu. Both "/nlu" and
// "/nlu/" are served so clients need not follow a redirect on POST.
func registerNLURoutes(r *gin.Engine, cfg RouterConfig) {
	h := cfg.NLUHandler
	if h == nil {
		return
	}

	group := r.Group("/nlu")
	group.Use(middleware.BodyLimit(cfg.MaxBodySize))
	if cfg.RateLimiter != nil {
		group.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	for _, p := range []string{"", "/"} {
		group.GET(p, h.Hello)
		group.POST(p, h.Parse)
	}
	group.GET("/locales", h.Locales)
}

//Personal.AI order the ending
