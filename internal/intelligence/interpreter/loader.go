package interpreter

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/intelligence/common"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// Endpoints maps a language to its model server. config.NLUConfig
// implements it.
type Endpoints interface {
	EndpointFor(lang string) string
	TokenFor(lang string) string
}

// LoaderConfig tunes the Loader.
type LoaderConfig struct {
	// Activate pushes the newest local artifact to the model server. When
	// false the loader only waits for the server to answer.
	Activate bool

	// ReadyTimeout bounds how long the loader polls an unavailable server.
	ReadyTimeout time.Duration

	// PollInterval is the delay between readiness probes.
	PollInterval time.Duration

	// RequestTimeout applies to every parse request.
	RequestTimeout time.Duration
}

// Loader builds one HTTPInterpreter per language. Load is safe to call
// concurrently for different languages.
type Loader struct {
	cfg       LoaderConfig
	endpoints Endpoints
	resolver  *Resolver
	logger    logging.Logger
}

// NewLoader returns a Loader. resolver may be nil when Activate is false.
func NewLoader(cfg LoaderConfig, endpoints Endpoints, resolver *Resolver, logger logging.Logger) *Loader {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{cfg: cfg, endpoints: endpoints, resolver: resolver, logger: logger.Named("interpreter")}
}

// Load resolves and activates the model of lang and returns an Interpreter
// once the model server answers.
func (l *Loader) Load(ctx context.Context, lang string) (common.Interpreter, error) {
	endpoint := l.endpoints.EndpointFor(lang)
	if endpoint == "" {
		return nil, errors.New(errors.ErrCodeModelNotFound, "no model endpoint configured").WithDetail(lang)
	}
	interp := NewHTTPInterpreter(lang, endpoint, l.endpoints.TokenFor(lang), &http.Client{Timeout: l.cfg.RequestTimeout})

	if l.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.ReadyTimeout)
		defer cancel()
	}

	if err := l.waitReady(ctx, interp); err != nil {
		return nil, err
	}

	if l.cfg.Activate {
		if l.resolver == nil {
			return nil, errors.New(errors.ErrCodeModelNotFound, "model activation requires an artifact resolver")
		}
		path, err := l.resolver.Latest(ctx, lang)
		if err != nil {
			return nil, err
		}
		l.logger.Info("activating model artifact",
			logging.String("locale", lang), logging.String("artifact", path), logging.String("endpoint", endpoint))
		if err := interp.Activate(ctx, path); err != nil {
			return nil, err
		}
	}
	return interp, nil
}

func (l *Loader) waitReady(ctx context.Context, interp *HTTPInterpreter) error {
	for attempt := 1; ; attempt++ {
		err := interp.Ping(ctx)
		if err == nil {
			return nil
		}
		l.logger.Debug("model server not ready",
			logging.String("locale", interp.Locale()), logging.Int("attempt", attempt), logging.Err(err))

		timer := time.NewTimer(l.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(err, errors.ErrCodeModelLoadFailed, "model server never became ready").
				WithDetail(interp.Locale())
		case <-timer.C:
		}
	}
}

//Personal.AI order the ending
