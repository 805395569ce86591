package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
)

// ErrNoSources is returned by an empty pool.
var ErrNoSources = errors.New("no fact sources configured")

// Source is a single remote fact endpoint.
type Source interface {
	Name() string
	FetchFact(ctx context.Context) (domain.Fact, error)
	IsAvailable() bool
	Health() HealthStatus
}

// RetryConfig defines retry behavior for a single source.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultRetryConfig tries each source once. Ticks already retry periodically.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        2 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how the pool handles an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}

	// Caller gave up
	if errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	// Retrying the same host will not help
	if domain.IsConnectivity(err) || errors.Is(err, ErrThrottled) || errors.Is(err, ErrEmptyFact) {
		return ActionFailover
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code >= http.StatusInternalServerError {
			return ActionRetry
		}
		return ActionFailover
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "403") || strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "rate limit") || strings.Contains(lower, "throttle") ||
		strings.Contains(lower, "parse response") {
		return ActionFailover
	}

	// Network, timeouts, 5xx
	return ActionRetry
}

// Pool tries its sources in order, retrying transient errors and failing
// over on provider specific ones.
type Pool struct {
	sources []Source
	retry   RetryConfig
	log     *slog.Logger
}

// NewPool creates a pool over sources.
func NewPool(retry RetryConfig, sources ...Source) *Pool {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.BackoffMultiple <= 0 {
		retry.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return &Pool{
		sources: sources,
		retry:   retry,
		log:     slog.Default().With("component", "remote"),
	}
}

// Sources returns the pool's sources in order.
func (p *Pool) Sources() []Source {
	return p.sources
}

// Name describes the pool for metrics labels.
func (p *Pool) Name() string {
	if len(p.sources) == 1 {
		return p.sources[0].Name()
	}
	return "pool"
}

// FetchFact returns the first fact any source produces. When every source
// fails the last error is returned wrapped, so callers can still classify it.
func (p *Pool) FetchFact(ctx context.Context) (domain.Fact, error) {
	if len(p.sources) == 0 {
		return domain.Fact{}, ErrNoSources
	}

	var lastErr error
	tried := 0
	for i, s := range p.sources {
		// Keep the last source as a last resort even when it looks unhealthy
		if !s.IsAvailable() && i < len(p.sources)-1 {
			p.log.Debug("Skipping unavailable source", "source", s.Name())
			continue
		}
		tried++

		fact, err := p.fetchWithRetry(ctx, s)
		if err == nil {
			return fact, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return domain.Fact{}, fmt.Errorf("fatal error from source %s: %w", s.Name(), err)
		}
		p.log.Debug("Source failed, trying next", "source", s.Name(), "error", err)
	}

	if tried == 1 {
		return domain.Fact{}, lastErr
	}
	return domain.Fact{}, fmt.Errorf("all sources failed: %w", lastErr)
}

func (p *Pool) fetchWithRetry(ctx context.Context, s Source) (domain.Fact, error) {
	var lastErr error

	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		fact, err := s.FetchFact(ctx)
		if err == nil {
			return fact, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return domain.Fact{}, err
		}
		if attempt == p.retry.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return domain.Fact{}, ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	if p.retry.MaxAttempts == 1 {
		return domain.Fact{}, lastErr
	}
	return domain.Fact{}, fmt.Errorf("failed after %d attempts: %w", p.retry.MaxAttempts, lastErr)
}

func (p *Pool) backoff(attempt int) time.Duration {
	delay := float64(p.retry.InitialDelay) * math.Pow(p.retry.BackoffMultiple, float64(attempt))
	if p.retry.MaxDelay > 0 && delay > float64(p.retry.MaxDelay) {
		delay = float64(p.retry.MaxDelay)
	}
	return time.Duration(delay)
}

// Close releases resources held by the pool's sources.
func (p *Pool) Close() error {
	var errs []error
	for _, s := range p.sources {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
