package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

func TestTraceWriter_WriteRequest(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequest(
		dracoon.RequestInfo{Method: "GET", Path: "/api/v4/groups"},
		dracoon.RequestResult{StatusCode: 200, Duration: 12 * time.Millisecond},
	)

	output := buf.String()
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got: %s", output)
	}
	if !strings.Contains(output, "GET /api/v4/groups -> 200 (12ms)") {
		t.Errorf("unexpected request line: %s", output)
	}
}

func TestTraceWriter_WriteRequest_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequest(
		dracoon.RequestInfo{Method: "GET", Path: "/api/v4/users"},
		dracoon.RequestResult{Err: errors.New("timeout")},
	)

	if !strings.Contains(buf.String(), "ERROR: timeout") {
		t.Errorf("expected error line, got: %s", buf.String())
	}
}

func TestTraceWriter_ScrubsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequest(
		dracoon.RequestInfo{Method: "GET", Path: "/oauth/token", Query: "code=abc123&limit=5"},
		dracoon.RequestResult{StatusCode: 200},
	)

	output := buf.String()
	if strings.Contains(output, "abc123") {
		t.Errorf("code leaked into trace: %s", output)
	}
	if !strings.Contains(output, "limit=5") {
		t.Errorf("expected non-sensitive params kept, got: %s", output)
	}
}

func TestScrubQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no sensitive params", "offset=0&limit=500", "offset=0&limit=500"},
		{"refresh token", "refresh_token=rt-1", "refresh_token=%5BREDACTED%5D"},
		{"case insensitive", "Client_Secret=s", "Client_Secret=%5BREDACTED%5D"},
		{"unparseable", "a=%zz", "[unparseable query]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrubQuery(tt.input); got != tt.want {
				t.Errorf("scrubQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTraceWriter_Reset(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)
	time.Sleep(20 * time.Millisecond)
	w.Reset()

	w.WriteCacheLookup("events", true)

	if !strings.HasPrefix(buf.String(), "[0.0") {
		t.Errorf("expected timestamp near zero after reset, got: %s", buf.String())
	}
}
