package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// sensitiveParams are query parameter names that should be scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"code":          true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"client_secret": true,
}

// TraceWriter outputs human-readable trace information to stderr.
// It formats output with timestamps relative to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a new TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo creates a new TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

// WriteRequest writes one completed request.
// Format: [0.234s] GET /api/v4/users?limit=500 -> 200 (45ms)
func (t *TraceWriter) WriteRequest(info dracoon.RequestInfo, result dracoon.RequestResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime).Seconds()
	target := info.Path
	if info.Query != "" {
		target += "?" + scrubQuery(info.Query)
	}

	if result.Err != nil {
		fmt.Fprintf(t.writer, "[%.3fs] %s %s -> ERROR: %v\n", elapsed, info.Method, target, result.Err)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs] %s %s -> %d (%dms)\n", elapsed, info.Method, target, result.StatusCode, result.Duration.Milliseconds())
}

// WriteCacheLookup writes one cache lookup.
// Format: [0.234s]   cache events: hit
func (t *TraceWriter) WriteCacheLookup(name string, hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs]   cache %s: %s\n", elapsed, name, outcome)
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubQuery redacts sensitive parameters from an encoded query string.
func scrubQuery(raw string) string {
	query, err := url.ParseQuery(raw)
	if err != nil {
		// Don't leak potentially sensitive malformed queries
		return "[unparseable query]"
	}

	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}
	if !modified {
		return raw
	}
	return query.Encode()
}
