// Package metrics provides in-memory timing statistics for client operations.
package metrics

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpRequest      = "api_request"
	OpStreamEvent  = "progress_event"
	OpPreviewFetch = "preview_fetch"
	OpChatSend     = "chat_send"
	OpDownload     = "download"
	OpExport       = "export"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}

	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Snapshot returns a point-in-time snapshot of all recorded operations.
func (c *Collector) Snapshot() map[string]OperationSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[string]OperationSnapshot, len(c.ops))
	for op, m := range c.ops {
		if m.Count == 0 {
			continue
		}
		snap[op] = OperationSnapshot{
			Count:       m.Count,
			TotalTimeMs: m.TotalTime.Milliseconds(),
			AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
			MinTimeMs:   m.MinTime.Milliseconds(),
			MaxTimeMs:   m.MaxTime.Milliseconds(),
		}
	}
	return snap
}

// Uptime returns the collector lifetime.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// LogSnapshot writes the snapshot to the logger at debug level, one entry
// per operation. No-op when nothing was recorded.
func (c *Collector) LogSnapshot(logger *slog.Logger) {
	for op, s := range c.Snapshot() {
		logger.Debug("operation stats",
			"op", op,
			"count", s.Count,
			"total_ms", s.TotalTimeMs,
			"avg_ms", s.AvgTimeMs,
			"min_ms", s.MinTimeMs,
			"max_ms", s.MaxTimeMs,
		)
	}
}
