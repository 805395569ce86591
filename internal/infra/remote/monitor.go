package remote

import (
	"strings"
	"sync"
	"time"
)

// Status represents the rate-limit state of a source.
type Status int

const (
	StatusHealthy   Status = iota // Source is working normally
	StatusDegraded                // Source is slow but working
	StatusThrottled               // Source is rate limiting
	StatusBlocked                 // Source has blocked this client
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics for a source.
type MonitorStats struct {
	Status           Status        `json:"status"`
	AverageLatency   time.Duration `json:"average_latency"`
	ThrottleCount429 int           `json:"throttle_count_429"`
	ThrottleCount403 int           `json:"throttle_count_403"`
	RequestsLastHour int           `json:"requests_last_hour"`
	RetryAfter       time.Duration `json:"retry_after"`
}

// Monitor tracks latency and rate limiting of a source.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
}

// NewMonitor creates a monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 50),
		maxLatencyWindow: 50,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"too many attempts",
		},
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
	}
}

// RecordRequest records a successful request with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)

	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordThrottle records a 429 or 403 response. retryAfter is the raw
// Retry-After header value in seconds, if any.
func (m *Monitor) RecordThrottle(statusCode int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = time.Now()

	switch statusCode {
	case 429:
		m.status429Count++
		m.retryAfterDuration = parseRetryAfter(retryAfter, time.Minute)
	case 403:
		m.status403Count++
		m.retryAfterDuration = 10 * time.Minute
	}
}

// DetectThrottlePattern checks if a response body looks like a rate limit.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lower := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// CheckStatus returns the current status of the source.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	inWindow := time.Since(m.lastThrottleTime) < m.retryAfterDuration

	if m.status403Count > 0 && inWindow {
		return StatusBlocked
	}
	if m.status429Count > 0 && inWindow {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 && m.averageLatencyLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

// RetryAfter returns the remaining time before requests are allowed again.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryAfterLocked()
}

func (m *Monitor) retryAfterLocked() time.Duration {
	if m.retryAfterDuration > 0 {
		if remaining := m.retryAfterDuration - time.Since(m.lastThrottleTime); remaining > 0 {
			return remaining
		}
	}
	return 0
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns current monitoring statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-time.Hour)
	count := 0
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			count++
		}
	}

	return MonitorStats{
		Status:           m.statusLocked(),
		AverageLatency:   m.averageLatencyLocked(),
		ThrottleCount429: m.status429Count,
		ThrottleCount403: m.status403Count,
		RequestsLastHour: count,
		RetryAfter:       m.retryAfterLocked(),
	}
}

func parseRetryAfter(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strings.TrimSpace(v) + "s"); err == nil && d > 0 {
		return d
	}
	return fallback
}
