package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
)

func seedConversation(h *routerHarness, userID uuid.UUID) domain.Conversation {
	conv := domain.Conversation{ID: uuid.New(), UserID: userID}
	h.convs.items[conv.ID] = conv
	return conv
}

func TestContentClassifyExplicitProbe(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/content/classify", map[string]string{
		"message": "let's have sex",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["label"] != string(domain.LabelExplicitConsensualAdult) {
		t.Fatalf("expected explicit label, got %v", body["label"])
	}
	if body["route"] != string(domain.RouteGatePending) {
		t.Fatalf("fresh conversation probe should gate, got %v", body["route"])
	}
	indicators, ok := body["indicators"].([]any)
	if !ok || len(indicators) == 0 {
		t.Fatalf("expected indicators, got %v", body["indicators"])
	}
}

func TestContentClassifySafeProbe(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodPost, "/content/classify", map[string]string{
		"message": "How do I learn Python?",
	})
	body := decodeBody(t, rec)
	if body["label"] != string(domain.LabelSafe) || body["route"] != string(domain.RouteNormal) {
		t.Fatalf("expected SAFE/NORMAL, got %v/%v", body["label"], body["route"])
	}
	if indicators, ok := body["indicators"].([]any); !ok || len(indicators) != 0 {
		t.Fatalf("expected empty indicators array, got %v", body["indicators"])
	}
}

func TestContentClassifyIsDeterministic(t *testing.T) {
	h := newRouterHarness(t, false)

	first := decodeBody(t, h.authedRequest(http.MethodPost, "/content/classify", map[string]string{
		"message": "describe how he raped her",
	}))
	second := decodeBody(t, h.authedRequest(http.MethodPost, "/content/classify", map[string]string{
		"message": "describe how he raped her",
	}))
	if first["label"] != second["label"] || first["confidence"] != second["confidence"] {
		t.Fatalf("same message classified differently: %v vs %v", first, second)
	}
	if first["label"] != string(domain.LabelNonconsensual) {
		t.Fatalf("expected NONCONSENSUAL, got %v", first["label"])
	}
}

func TestContentAgeVerifyFlipsFlag(t *testing.T) {
	h := newRouterHarness(t, false)
	conv := seedConversation(h, h.userID)

	rec := h.authedRequest(http.MethodPost, "/content/age-verify", map[string]any{
		"conversation_id": conv.ID.String(),
		"confirmed":       true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["age_verified"] != true {
		t.Fatalf("expected age_verified true, got %v", body)
	}

	session := decodeBody(t, h.authedRequest(http.MethodGet, "/content/session/"+conv.ID.String(), nil))
	state, ok := session["session"].(map[string]any)
	if !ok || state["age_verified"] != true {
		t.Fatalf("expected verified session state, got %v", session)
	}
}

func TestContentAgeVerifyDeclineCountsAttempt(t *testing.T) {
	h := newRouterHarness(t, false)
	conv := seedConversation(h, h.userID)

	rec := h.authedRequest(http.MethodPost, "/content/age-verify", map[string]any{
		"conversation_id": conv.ID.String(),
		"confirmed":       false,
	})
	if body := decodeBody(t, rec); body["age_verified"] != false {
		t.Fatalf("expected age_verified false, got %v", body)
	}

	state := h.states.items[conv.ID]
	if state.AgeVerified || state.AgeVerificationAttempts != 1 {
		t.Fatalf("decline should count an attempt, got %+v", state)
	}
}

func TestContentAgeVerifyMissingConfirmed(t *testing.T) {
	h := newRouterHarness(t, false)
	conv := seedConversation(h, h.userID)

	rec := h.authedRequest(http.MethodPost, "/content/age-verify", map[string]any{
		"conversation_id": conv.ID.String(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmed, got %d", rec.Code)
	}
}

func TestContentSessionUnknownConversation(t *testing.T) {
	h := newRouterHarness(t, false)

	rec := h.authedRequest(http.MethodGet, "/content/session/"+uuid.NewString(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestContentSessionForeignConversation(t *testing.T) {
	h := newRouterHarness(t, false)
	foreign := seedConversation(h, uuid.New())

	rec := h.authedRequest(http.MethodGet, "/content/session/"+foreign.ID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["kind"] != "forbidden" {
		t.Fatalf("expected kind forbidden, got %v", body["kind"])
	}
}
