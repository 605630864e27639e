package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestStreamWriterEventShapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	sw := NewStreamWriter(c.Writer)
	if sw.Started() {
		t.Fatal("writer must not start before the first event")
	}

	conversationID := uuid.New()
	messageID := uuid.New()

	if err := sw.Thinking("content_routed", map[string]any{"route": "NORMAL"}); err != nil {
		t.Fatalf("thinking: %v", err)
	}
	if err := sw.Thinking("model_fallback", nil); err != nil {
		t.Fatalf("thinking without data: %v", err)
	}
	if err := sw.Token("Hola"); err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := sw.Done(conversationID, messageID); err != nil {
		t.Fatalf("done: %v", err)
	}
	if err := sw.Error("model_unavailable", "boom"); err != nil {
		t.Fatalf("error: %v", err)
	}

	if !sw.Started() {
		t.Fatal("writer must report started after emitting")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), rec.Body.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0: %v", err)
	}
	data, _ := first["data"].(map[string]any)
	if first["type"] != "thinking" || first["step"] != "content_routed" || data["route"] != "NORMAL" {
		t.Fatalf("unexpected thinking shape: %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 1: %v", err)
	}
	if _, hasData := second["data"]; hasData {
		t.Fatalf("thinking without data must omit the data key: %v", second)
	}

	var tok map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &tok); err != nil {
		t.Fatalf("line 2: %v", err)
	}
	if tok["type"] != "token" || tok["content"] != "Hola" {
		t.Fatalf("unexpected token shape: %v", tok)
	}

	var done map[string]any
	if err := json.Unmarshal([]byte(lines[3]), &done); err != nil {
		t.Fatalf("line 3: %v", err)
	}
	if done["conversation_id"] != conversationID.String() || done["message_id"] != messageID.String() {
		t.Fatalf("unexpected done shape: %v", done)
	}

	var errEv map[string]any
	if err := json.Unmarshal([]byte(lines[4]), &errEv); err != nil {
		t.Fatalf("line 4: %v", err)
	}
	if errEv["type"] != "error" || errEv["kind"] != "model_unavailable" || errEv["message"] != "boom" {
		t.Fatalf("unexpected error shape: %v", errEv)
	}
}
