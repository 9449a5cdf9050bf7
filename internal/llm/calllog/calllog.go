// Package calllog maintains the append-only audit log of raw API
// calls. Every attempt writes two entries: one before dispatch (so
// in-flight, never-returned calls remain auditable) and one after the
// attempt settles (status, duration, truncated body or error).
//
// The log is write-only during a run (nothing reads it back) and is
// shared by all concurrent callers; appends are atomic per entry but
// not guaranteed strictly chronological.
package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// maxBodyLen truncates logged response bodies to keep entries bounded.
const maxBodyLen = 4000

// Entry phases.
const (
	// PhaseRequest is written before dispatch.
	PhaseRequest = "request"

	// PhaseResponse is written after the attempt settles.
	PhaseResponse = "response"
)

// Entry is one structured call-log record, serialized as a JSON line.
type Entry struct {
	Time      time.Time `json:"time"`
	Phase     string    `json:"phase"`
	CallID    int64     `json:"call_id"`
	TraceID   string    `json:"trace_id"`
	CellKey   string    `json:"cell,omitempty"`
	Operation string    `json:"operation"`
	Model     string    `json:"model"`

	// Request-phase fields.
	Temperature float64             `json:"temperature,omitempty"`
	Messages    []transport.Message `json:"messages,omitempty"`

	// Response-phase fields.
	Status     string `json:"status,omitempty"` // "success" or "error"
	DurationMs int64  `json:"duration_ms,omitempty"`
	Body       string `json:"body,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Log appends entries to an underlying writer. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	seq    atomic.Int64
}

// Open creates or appends to the call log file at path, creating parent
// directories as needed.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create call log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open call log %s: %w", path, err)
	}
	return &Log{w: f, closer: f}, nil
}

// NewWithWriter creates a log over an arbitrary writer (for tests).
func NewWithWriter(w io.Writer) *Log {
	return &Log{w: w}
}

// NextCallID allocates a monotonically increasing call identifier.
func (l *Log) NextCallID() int64 { return l.seq.Add(1) }

// Append writes one entry as a JSON line. Marshal failures are
// swallowed after best effort; the audit log must never fail a call.
func (l *Log) Append(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"phase":%q,"error":"call log marshal failed: %s"}`, e.Phase, err))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(data, '\n'))
}

// Close releases the underlying file, if any.
func (l *Log) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// NewMiddleware wraps a handler so every attempt is recorded in the
// call log. Placed innermost (just outside the HTTP core) so each retry
// attempt produces its own request/response entry pair.
func NewMiddleware(log *Log) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			callID := log.NextCallID()
			log.Append(Entry{
				Time:        time.Now(),
				Phase:       PhaseRequest,
				CallID:      callID,
				TraceID:     req.TraceID,
				CellKey:     req.CellKey,
				Operation:   string(req.Operation),
				Model:       req.Model,
				Temperature: req.Temperature,
				Messages:    req.Messages,
			})

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			duration := time.Since(start)

			entry := Entry{
				Time:       time.Now(),
				Phase:      PhaseResponse,
				CallID:     callID,
				TraceID:    req.TraceID,
				CellKey:    req.CellKey,
				Operation:  string(req.Operation),
				Model:      req.Model,
				DurationMs: duration.Milliseconds(),
			}
			if err != nil {
				entry.Status = "error"
				entry.Error = err.Error()
			} else {
				entry.Status = "success"
				entry.Body, entry.Truncated = truncate(resp.Content)
			}
			log.Append(entry)

			return resp, err
		})
	}
}

// truncate bounds a logged body to maxBodyLen.
func truncate(s string) (string, bool) {
	if len(s) <= maxBodyLen {
		return s, false
	}
	return s[:maxBodyLen], true
}
