package observability

import (
	"context"
	"sync"

	"github.com/unbekanntes-pferd/dcadmin/internal/cache"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// Verify CLIHooks implements the client and cache observer interfaces at compile time.
var (
	_ dracoon.Hooks = (*CLIHooks)(nil)
	_ cache.Stats   = (*CLIHooks)(nil)
)

// CLIHooks forwards API requests and cache lookups to a collector and a trace writer.
// Verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: Requests
//   - 2: Requests + cache lookups
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnRequestEnd is called after an API request completes.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info dracoon.RequestInfo, result dracoon.RequestResult) {
	level, collector, writer := h.snapshot()

	if collector != nil {
		collector.RecordRequestFromClient(info, result)
	}
	if level >= 1 && writer != nil {
		writer.WriteRequest(info, result)
	}
}

// RecordCacheHit is called for a fresh cache lookup.
func (h *CLIHooks) RecordCacheHit(name string) {
	level, collector, writer := h.snapshot()

	if collector != nil {
		collector.RecordCacheHit(name)
	}
	if level >= 2 && writer != nil {
		writer.WriteCacheLookup(name, true)
	}
}

// RecordCacheMiss is called for an absent or stale cache lookup.
func (h *CLIHooks) RecordCacheMiss(name string) {
	level, collector, writer := h.snapshot()

	if collector != nil {
		collector.RecordCacheMiss(name)
	}
	if level >= 2 && writer != nil {
		writer.WriteCacheLookup(name, false)
	}
}
