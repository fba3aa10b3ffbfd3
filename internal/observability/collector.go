// Package observability provides metrics collection and tracing for CLI operations.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	Error      error
}

// CacheMetrics holds the lookup counters of one named cache.
type CacheMetrics struct {
	Name   string `json:"name"`
	Hits   int    `json:"hits"`
	Misses int    `json:"misses"`
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	TotalRequests  int            `json:"total_requests"`
	FailedRequests int            `json:"failed_requests"`
	CacheHits      int            `json:"cache_hits"`
	CacheMisses    int            `json:"cache_misses"`
	TotalLatency   time.Duration  `json:"total_latency"`
	Caches         []CacheMetrics `json:"caches,omitempty"`
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime      time.Time
	totalRequests  int
	failedRequests int
	totalLatency   time.Duration
	caches         map[string]*CacheMetrics
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
		caches:    make(map[string]*CacheMetrics),
	}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Error != nil {
		c.failedRequests++
	}
}

// RecordRequestFromClient records metrics from API client types.
func (c *SessionCollector) RecordRequestFromClient(info dracoon.RequestInfo, result dracoon.RequestResult) {
	c.RecordRequest(RequestMetrics{
		Method:     info.Method,
		Path:       info.Path,
		StatusCode: result.StatusCode,
		Duration:   result.Duration,
		Error:      result.Err,
	})
}

// RecordCacheHit counts a fresh lookup in the named cache.
func (c *SessionCollector) RecordCacheHit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheFor(name).Hits++
}

// RecordCacheMiss counts an absent or expired lookup in the named cache.
func (c *SessionCollector) RecordCacheMiss(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheFor(name).Misses++
}

func (c *SessionCollector) cacheFor(name string) *CacheMetrics {
	m, ok := c.caches[name]
	if !ok {
		m = &CacheMetrics{Name: name}
		c.caches[name] = m
	}
	return m
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := SessionMetrics{
		StartTime:      c.startTime,
		EndTime:        time.Now(),
		TotalRequests:  c.totalRequests,
		FailedRequests: c.failedRequests,
		TotalLatency:   c.totalLatency,
	}
	for _, m := range c.caches {
		s.CacheHits += m.Hits
		s.CacheMisses += m.Misses
		s.Caches = append(s.Caches, *m)
	}
	sort.Slice(s.Caches, func(i, j int) bool { return s.Caches[i].Name < s.Caches[j].Name })
	return s
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.totalLatency = 0
	c.caches = make(map[string]*CacheMetrics)
}
