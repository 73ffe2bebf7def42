package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the service's in-process counters. Estimator counters track
// how often each of the three analytical endpoints runs.
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	CacheHits    int64
	CacheMisses  int64

	PriceSuggestions int64
	LOCAnalyses      int64
	QuestionRounds   int64
	GridReloads      int64
	HistoryWrites    int64
	HistoryFailures  int64

	RateLimitBlocks int64

	StartTime time.Time

	responseTimes []time.Duration
	responseMutex sync.RWMutex

	requestsByStatus map[int]int64
	statusMutex      sync.RWMutex
}

// NewMetrics creates a metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:        time.Now(),
		responseTimes:    make([]time.Duration, 0, 1000),
		requestsByStatus: make(map[int]int64),
	}
}

func (m *Metrics) IncrementRequest() { atomic.AddInt64(&m.RequestCount, 1) }
func (m *Metrics) IncrementError()   { atomic.AddInt64(&m.ErrorCount, 1) }

func (m *Metrics) IncrementCacheHit()  { atomic.AddInt64(&m.CacheHits, 1) }
func (m *Metrics) IncrementCacheMiss() { atomic.AddInt64(&m.CacheMisses, 1) }

func (m *Metrics) IncrementPriceSuggestion() { atomic.AddInt64(&m.PriceSuggestions, 1) }
func (m *Metrics) IncrementLOCAnalysis()     { atomic.AddInt64(&m.LOCAnalyses, 1) }
func (m *Metrics) IncrementQuestionRound()   { atomic.AddInt64(&m.QuestionRounds, 1) }
func (m *Metrics) IncrementGridReload()      { atomic.AddInt64(&m.GridReloads, 1) }
func (m *Metrics) IncrementHistoryWrite()    { atomic.AddInt64(&m.HistoryWrites, 1) }
func (m *Metrics) IncrementHistoryFailure()  { atomic.AddInt64(&m.HistoryFailures, 1) }
func (m *Metrics) IncrementRateLimitBlock()  { atomic.AddInt64(&m.RateLimitBlocks, 1) }

// RecordResponseTime keeps the last 1000 samples for percentile reporting.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseMutex.Lock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseMutex.Unlock()
}

// RecordRequestByStatus tracks the status code distribution.
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.requestsByStatus[statusCode]++
}

// PercentileResponseTime computes a percentile over the retained samples.
func (m *Metrics) PercentileResponseTime(percentile float64) time.Duration {
	m.responseMutex.RLock()
	defer m.responseMutex.RUnlock()

	if len(m.responseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.responseTimes))
	copy(times, m.responseTimes)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

// StatusCodeDistribution returns a copy of the per-status counters.
func (m *Metrics) StatusCodeDistribution() map[int]int64 {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.requestsByStatus))
	for code, count := range m.requestsByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetStats returns the full metrics snapshot for the stats endpoint.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"start_time":             m.StartTime.Format(time.RFC3339),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,

		"price_suggestions": atomic.LoadInt64(&m.PriceSuggestions),
		"loc_analyses":      atomic.LoadInt64(&m.LOCAnalyses),
		"question_rounds":   atomic.LoadInt64(&m.QuestionRounds),
		"grid_reloads":      atomic.LoadInt64(&m.GridReloads),
		"history_writes":    atomic.LoadInt64(&m.HistoryWrites),
		"history_failures":  atomic.LoadInt64(&m.HistoryFailures),
		"rate_limit_blocks": atomic.LoadInt64(&m.RateLimitBlocks),

		"p50_response_time_ms":     float64(m.PercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.PercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.PercentileResponseTime(99)) / 1e6,
		"status_code_distribution": m.StatusCodeDistribution(),
	}
}

// Reset zeroes all counters, mainly for tests.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.PriceSuggestions, 0)
	atomic.StoreInt64(&m.LOCAnalyses, 0)
	atomic.StoreInt64(&m.QuestionRounds, 0)
	atomic.StoreInt64(&m.GridReloads, 0)
	atomic.StoreInt64(&m.HistoryWrites, 0)
	atomic.StoreInt64(&m.HistoryFailures, 0)
	atomic.StoreInt64(&m.RateLimitBlocks, 0)

	m.responseMutex.Lock()
	m.responseTimes = m.responseTimes[:0]
	m.responseMutex.Unlock()

	m.statusMutex.Lock()
	m.requestsByStatus = make(map[int]int64)
	m.statusMutex.Unlock()

	m.StartTime = time.Now()
}
