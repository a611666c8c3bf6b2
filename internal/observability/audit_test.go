package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

var errTest = errors.New("boom")

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLogger(&buf, "session-1")

	l.Log(AuditEventRunStart, true, "starting", map[string]any{"points": 10})
	l.LogError(AuditEventRunError, errTest, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 not valid JSON: %v", err)
	}
	if first.EventType != AuditEventRunStart || !first.Success {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.SessionID != "session-1" {
		t.Errorf("session = %q, want session-1", first.SessionID)
	}

	var second AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 not valid JSON: %v", err)
	}
	if second.Success || second.ErrorDetail != "boom" {
		t.Errorf("unexpected second event: %+v", second)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	l := NewAuditLogger(nil, "s")
	l.Log(AuditEventRunStart, true, "", nil) // must not panic

	var nilLogger *AuditLogger
	nilLogger.Log(AuditEventRunStart, true, "", nil)
	if err := nilLogger.Close(); err != nil {
		t.Errorf("nil logger Close: %v", err)
	}
}
