package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
)

func TestJSONLinesAuditSinkWritesOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLinesAuditSink(&buf, nil)

	userID := uuid.New()
	convID := uuid.New()
	sink.Write(domain.AuditEntry{
		UserID:         userID,
		ConversationID: convID,
		Label:          domain.LabelSafe,
		Confidence:     0.9,
		Indicators:     []string{"default:safe"},
		Route:          domain.RouteNormal,
		Action:         domain.AuditActionGenerate,
		MessageDigest:  MessageDigest("hola"),
	})
	sink.Write(domain.AuditEntry{
		UserID:         userID,
		ConversationID: convID,
		Label:          domain.LabelMinorRisk,
		Confidence:     1.0,
		Indicators:     []string{"hard_rule:minor_age"},
		Route:          domain.RouteHardRefused,
		Action:         domain.AuditActionRefuse,
		MessageDigest:  MessageDigest("otro"),
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first domain.AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if first.UserID != userID || first.Action != domain.AuditActionGenerate {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected timestamp defaulted")
	}

	var second domain.AuditEntry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if second.Label != domain.LabelMinorRisk || second.Confidence != 1.0 {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}

func TestMessageDigestStableAndContentFree(t *testing.T) {
	a := MessageDigest("the same message")
	b := MessageDigest("the same message")
	c := MessageDigest("a different message")

	if a != b {
		t.Fatal("expected digest to be deterministic")
	}
	if a == c {
		t.Fatal("expected different messages to differ")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
	if strings.Contains(a, "same") {
		t.Fatal("digest must not leak content")
	}
}
