// Package remote fetches cat facts from HTTP fact services.
//
// This package contains:
//   - HTTPSource: a single catfact.ninja style endpoint
//   - Monitor: latency and rate-limit tracking per source
//   - Pool: ordered sources with retry and failover
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
)

var (
	// ErrThrottled is returned while a source is rate limiting this client.
	ErrThrottled = errors.New("source throttled")

	// ErrEmptyFact is returned when the response carries no fact text.
	ErrEmptyFact = errors.New("empty fact")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// HealthStatus summarizes the recent behaviour of a source.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  MonitorStats  `json:"monitor_stats"`
}

type factResponse struct {
	Fact   string `json:"fact"`
	Length int    `json:"length"`
}

// HTTPSource fetches facts from GET {base}/fact.
type HTTPSource struct {
	name       string
	endpoint   string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *Monitor
}

// NewHTTPSource creates a source for the fact service at baseURL. A positive
// maxLength is passed as the max_length query parameter.
func NewHTTPSource(name, baseURL string, timeout time.Duration, maxLength int) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/fact")
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", baseURL, err)
	}
	if maxLength > 0 {
		q := u.Query()
		q.Set("max_length", strconv.Itoa(maxLength))
		u.RawQuery = q.Encode()
	}

	return &HTTPSource{
		name:     name,
		endpoint: u.String(),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewMonitor(),
	}, nil
}

// Name returns the source identifier.
func (s *HTTPSource) Name() string {
	return s.name
}

// FetchFact performs one GET request and decodes the fact.
func (s *HTTPSource) FetchFact(ctx context.Context) (domain.Fact, error) {
	start := time.Now()

	if status := s.Monitor.CheckStatus(); status == StatusThrottled || status == StatusBlocked {
		return domain.Fact{}, fmt.Errorf("%w (%s), retry after: %v", ErrThrottled, status, s.Monitor.RetryAfter())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("fetch fact: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		s.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("rate limited (429), retry after: %s", retryAfter)
	}

	if resp.StatusCode == http.StatusForbidden {
		s.Monitor.RecordThrottle(http.StatusForbidden, "")
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("ip blocked (403)")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.recordFailure()
		if s.Monitor.DetectThrottlePattern(string(body)) {
			s.Monitor.RecordThrottle(http.StatusTooManyRequests, "")
			return domain.Fact{}, fmt.Errorf("throttle detected in response: %s", string(body))
		}
		return domain.Fact{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var fr factResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		s.recordFailure()
		return domain.Fact{}, fmt.Errorf("parse response: %w", err)
	}
	if strings.TrimSpace(fr.Fact) == "" {
		s.recordFailure()
		return domain.Fact{}, ErrEmptyFact
	}

	s.Monitor.RecordRequest(latency)
	s.recordSuccess(latency)

	return domain.NewFact(fr.Fact), nil
}

// Health returns the source's health status.
func (s *HTTPSource) Health() HealthStatus {
	s.mu.RLock()
	h := s.health
	s.mu.RUnlock()

	h.MonitorStats = s.Monitor.Stats()
	return h
}

// IsAvailable reports whether the source is worth calling.
func (s *HTTPSource) IsAvailable() bool {
	status := s.Monitor.CheckStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Close releases idle connections.
func (s *HTTPSource) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *HTTPSource) recordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.successCount++
	s.requestCount++
	s.totalLatency += latency
	s.health.LastSuccessAt = time.Now()
	s.health.Available = true
	s.health.ErrorRate = float64(s.failureCount) / float64(s.requestCount)
	s.health.Latency = s.totalLatency / time.Duration(s.successCount)
}

func (s *HTTPSource) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount++
	s.requestCount++
	s.health.LastFailureAt = time.Now()
	s.health.ErrorRate = float64(s.failureCount) / float64(s.requestCount)

	if s.health.ErrorRate > 0.5 {
		s.health.Available = false
	}
}
