// Package entitlement decides whether a credential may use premium palettes.
//
// The gate fails closed: any check that cannot complete reports non-premium.
package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/palette/internal/remote"
)

// Source answers a single premium check.
type Source interface {
	Premium(ctx context.Context, credential string) (bool, error)
}

// Config controls retry behavior.
type Config struct {
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DefaultConfig returns two retries, 500ms apart.
func DefaultConfig() Config {
	return Config{Retries: 2, RetryInterval: 500 * time.Millisecond}
}

var checksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "palette_entitlement_checks_total",
		Help: "Total number of entitlement checks by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(checksTotal)
}

// Gate wraps a Source with retries and the fail-closed policy.
type Gate struct {
	source  Source
	retries int
	// pace spaces the attempts of one check; each check starts with a
	// full bucket so its first attempt never waits.
	pace    rate.Limit
	logger  *zap.Logger
}

// NewGate creates a Gate over source.
func NewGate(source Source, cfg Config, logger *zap.Logger) *Gate {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RetryInterval > 0 {
		limit = rate.Every(cfg.RetryInterval)
	}
	return &Gate{
		source:  source,
		retries: cfg.Retries,
		pace:    limit,
		logger:  logger,
	}
}

// CheckPremium reports whether credential holds a premium entitlement.
// Transport failures and 5xx answers are retried; client errors are not.
// An empty credential is never premium.
func (g *Gate) CheckPremium(ctx context.Context, credential string) bool {
	if credential == "" || g.source == nil {
		checksTotal.WithLabelValues("anonymous").Inc()
		return false
	}

	limiter := rate.NewLimiter(g.pace, 1)
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}
		premium, err := g.source.Premium(ctx, credential)
		if err == nil {
			if premium {
				checksTotal.WithLabelValues("premium").Inc()
			} else {
				checksTotal.WithLabelValues("free").Inc()
			}
			return premium
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		g.logger.Debug("entitlement check failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	checksTotal.WithLabelValues("error").Inc()
	g.logger.Warn("entitlement check failed, treating as non-premium", zap.Error(lastErr))
	return false
}

func retryable(err error) bool {
	var se *remote.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Static is a Source with a fixed answer, for offline use and tests.
type Static bool

// Premium returns the fixed answer.
func (s Static) Premium(context.Context, string) (bool, error) { return bool(s), nil }

var _ Source = Static(false)
var _ Source = (*remote.Client)(nil)
