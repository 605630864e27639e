package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
)

type mockMessageServiceRepo struct {
	lastCreated domain.Message
	createErr   error
	listData    []domain.Message
	listErr     error
	lastConvID  uuid.UUID
	lastLimit   int
	userCount   int
}

func (m *mockMessageServiceRepo) Create(_ context.Context, message domain.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastCreated = message
	return nil
}

func (m *mockMessageServiceRepo) ListRecent(_ context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	m.lastConvID = conversationID
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listData, nil
}

func (m *mockMessageServiceRepo) CountUserMessages(_ context.Context, conversationID uuid.UUID) (int, error) {
	m.lastConvID = conversationID
	return m.userCount, nil
}

func TestMessageServiceSave_NormalizesAndDefaults(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo)

	saved, err := svc.Save(context.Background(), domain.Message{
		ConversationID: uuid.New(),
		Role:           " assistant ",
		Content:        " hola ",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("expected created_at default")
	}
	if repo.lastCreated.Role != "assistant" || repo.lastCreated.Content != "hola" {
		t.Fatalf("expected trimmed role/content, got role=%q content=%q", repo.lastCreated.Role, repo.lastCreated.Content)
	}
}

func TestMessageServiceSave_Validation(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo)

	cases := []domain.Message{
		{Role: domain.RoleUser, Content: "hola"},
		{ConversationID: uuid.New(), Role: "clone", Content: "hola"},
		{ConversationID: uuid.New(), Role: domain.RoleUser, Content: "   "},
	}
	for i, c := range cases {
		if _, err := svc.Save(context.Background(), c); !errors.Is(err, ErrMessageInvalidInput) {
			t.Fatalf("case %d expected ErrMessageInvalidInput, got %v", i, err)
		}
	}
}

func TestMessageServiceSave_PreservesExplicitFields(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo)
	now := time.Now().UTC().Add(-time.Minute)
	id := uuid.New()

	msg := domain.Message{
		ID:             id,
		ConversationID: uuid.New(),
		Role:           domain.RoleUser,
		Content:        "hola",
		CreatedAt:      now,
	}
	saved, err := svc.Save(context.Background(), msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if saved.ID != id || !saved.CreatedAt.Equal(now) {
		t.Fatalf("expected explicit id/created_at preserved")
	}
}

func TestMessageServiceListRecent(t *testing.T) {
	convID := uuid.New()
	repo := &mockMessageServiceRepo{
		listData: []domain.Message{{ID: uuid.New()}, {ID: uuid.New()}},
	}
	svc := NewMessageService(repo)

	out, err := svc.ListRecent(context.Background(), convID, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastConvID != convID || repo.lastLimit != 10 {
		t.Fatalf("expected conv %s limit 10, got %s %d", convID, repo.lastConvID, repo.lastLimit)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
}

func TestMessageServiceListRecent_NilConversation(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo)
	out, err := svc.ListRecent(context.Background(), uuid.Nil, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty list, got %+v", out)
	}
}

func TestMessageServiceCountUserTurns(t *testing.T) {
	repo := &mockMessageServiceRepo{userCount: 7}
	svc := NewMessageService(repo)

	n, err := svc.CountUserTurns(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 user turns, got %d", n)
	}
}

func TestMessageService_NotConfigured(t *testing.T) {
	var svc *MessageService
	if _, err := svc.Save(context.Background(), domain.Message{}); !errors.Is(err, ErrMessageServiceNotConfigured) {
		t.Fatalf("expected ErrMessageServiceNotConfigured, got %v", err)
	}

	svc = NewMessageService(nil)
	if _, err := svc.ListRecent(context.Background(), uuid.New(), 5); !errors.Is(err, ErrMessageServiceNotConfigured) {
		t.Fatalf("expected ErrMessageServiceNotConfigured, got %v", err)
	}
}
