package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventRunStart      AuditEventType = "run.start"
	AuditEventRunComplete   AuditEventType = "run.complete"
	AuditEventRunError      AuditEventType = "run.error"
	AuditEventIndexUpsert   AuditEventType = "index.upsert"
	AuditEventFlagsUpdate   AuditEventType = "flags.update"
	AuditEventGraphExport   AuditEventType = "graph.export"
	AuditEventWorkflowStart AuditEventType = "workflow.start"
	AuditEventWorkflowEnd   AuditEventType = "workflow.end"
)

// AuditEvent is a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger appends audit events as JSONL.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	closer    io.Closer
	sessionID string
	enabled   bool
}

// NewAuditLogger creates a logger writing to w. A nil writer disables
// logging, all calls become no-ops.
func NewAuditLogger(w io.Writer, sessionID string) *AuditLogger {
	return &AuditLogger{
		writer:    w,
		sessionID: sessionID,
		enabled:   w != nil,
	}
}

// NewAuditFileLogger creates a logger appending to the given file.
func NewAuditFileLogger(path, sessionID string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := NewAuditLogger(f, sessionID)
	l.closer = f
	return l, nil
}

// Log writes one event. Serialization errors are swallowed; audit logging
// must never fail the run it observes.
func (l *AuditLogger) Log(eventType AuditEventType, success bool, message string, details map[string]any) {
	if l == nil || !l.enabled {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: l.sessionID,
		Success:   success,
		Message:   message,
		Details:   details,
	}
	l.write(event)
}

// LogError writes a failed event carrying the error detail.
func (l *AuditLogger) LogError(eventType AuditEventType, err error, details map[string]any) {
	if l == nil || !l.enabled {
		return
	}
	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		SessionID:   l.sessionID,
		Success:     false,
		Details:     details,
		ErrorDetail: err.Error(),
	}
	l.write(event)
}

func (l *AuditLogger) write(event AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// Close releases the underlying file, if any.
func (l *AuditLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
