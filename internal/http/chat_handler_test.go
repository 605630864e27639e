package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/service"
)

func streamTokens(events []map[string]any) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev["type"] == "token" {
			sb.WriteString(ev["content"].(string))
		}
	}
	return sb.String()
}

func findEvent(events []map[string]any, typ string) map[string]any {
	for _, ev := range events {
		if ev["type"] == typ {
			return ev
		}
	}
	return nil
}

func TestChatEndpointStreamsNDJSON(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message": "Hola, como estas?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}

	events := decodeStream(t, rec)
	if len(events) == 0 {
		t.Fatal("expected events in stream")
	}

	thinking := findEvent(events, "thinking")
	if thinking == nil || thinking["step"] != "content_routed" {
		t.Fatalf("expected content_routed thinking event, got %v", thinking)
	}
	data, ok := thinking["data"].(map[string]any)
	if !ok || data["route"] != string(domain.RouteNormal) {
		t.Fatalf("expected route NORMAL in thinking data, got %v", thinking["data"])
	}

	if got := streamTokens(events); got != "Hola desde el gateway." {
		t.Fatalf("unexpected streamed text %q", got)
	}

	last := events[len(events)-1]
	if last["type"] != "done" {
		t.Fatalf("expected done as last event, got %v", last)
	}
	conversationID, err := uuid.Parse(last["conversation_id"].(string))
	if err != nil {
		t.Fatalf("done carries invalid conversation_id: %v", err)
	}

	// La conversacion quedo creada a nombre del caller y el turno persistido.
	conv, ok := h.convs.items[conversationID]
	if !ok || conv.UserID != h.userID {
		t.Fatalf("expected conversation owned by caller, got %+v", conv)
	}
	assistant := h.messages.byRole(conversationID, domain.RoleAssistant)
	if len(assistant) != 1 || assistant[0].Content != "Hola desde el gateway." {
		t.Fatalf("expected persisted assistant turn, got %+v", assistant)
	}
	if h.secondary.CallCount != 0 {
		t.Fatalf("safe route must not touch the secondary provider")
	}
}

func TestChatEndpointRequiresAuth(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := performRequest(h.router, http.MethodPost, "/chat", map[string]string{"message": "hola"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChatEndpointRejectsBlankMessage(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["kind"] != "invalid_request" {
		t.Fatalf("expected kind invalid_request, got %v", body["kind"])
	}
}

func TestChatEndpointRejectsBadConversationID(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message":         "hola",
		"conversation_id": "not-a-uuid",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatEndpointForeignConversationForbidden(t *testing.T) {
	h := newRouterHarness(t, false)

	foreign := domain.Conversation{ID: uuid.New(), UserID: uuid.New()}
	h.convs.items[foreign.ID] = foreign

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message":         "hola",
		"conversation_id": foreign.ID.String(),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["kind"] != "forbidden" {
		t.Fatalf("expected kind forbidden, got %v", body["kind"])
	}
}

func TestChatEndpointUnknownPersonality(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]any{
		"message":          "hola",
		"personality_name": "no-existe",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatEndpointAgeGateTurn(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message": "let's have sex",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	events := decodeStream(t, rec)
	thinking := findEvent(events, "thinking")
	if thinking == nil || thinking["step"] != "age_verification_required" {
		t.Fatalf("expected age gate thinking event, got %v", thinking)
	}
	if got := streamTokens(events); got != service.AgeGateQuestion {
		t.Fatalf("expected gate question, got %q", got)
	}
	if findEvent(events, "done") == nil {
		t.Fatal("gate turn must still close with done")
	}
	if h.primary.CallCount != 0 || h.secondary.CallCount != 0 {
		t.Fatal("gated turn must not invoke any provider")
	}
}

func TestChatEndpointVerifiedExplicitUsesSecondary(t *testing.T) {
	h := newRouterHarness(t, false)

	// Primer intento explicito: queda pendiente de verificacion.
	rec := h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message": "let's have sex",
	})
	events := decodeStream(t, rec)
	done := findEvent(events, "done")
	if done == nil {
		t.Fatal("expected done on gate turn")
	}
	conversationID := done["conversation_id"].(string)

	verify := h.authedRequest(http.MethodPost, "/content/age-verify", map[string]any{
		"conversation_id": conversationID,
		"confirmed":       true,
	})
	if verify.Code != http.StatusOK {
		t.Fatalf("age verify: expected 200, got %d: %s", verify.Code, verify.Body.String())
	}
	if body := decodeBody(t, verify); body["age_verified"] != true {
		t.Fatalf("expected age_verified true, got %v", body)
	}

	rec = h.authedRequest(http.MethodPost, "/chat", map[string]string{
		"message":         "let's have sex",
		"conversation_id": conversationID,
	})
	events = decodeStream(t, rec)
	thinking := findEvent(events, "thinking")
	data, _ := thinking["data"].(map[string]any)
	if thinking["step"] != "content_routed" || data["route"] != string(domain.RouteExplicit) {
		t.Fatalf("expected EXPLICIT route, got %v", thinking)
	}
	if h.secondary.CallCount != 1 {
		t.Fatalf("expected secondary provider once, got %d", h.secondary.CallCount)
	}
	if got := streamTokens(events); got != "Claro, sigamos." {
		t.Fatalf("unexpected explicit stream %q", got)
	}
}
