package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

// MessageService encapsula la lógica para manejar el log de mensajes.
type MessageService struct {
	repo repository.MessageRepository
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
)

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// Save valida y persiste un turno. Devuelve el mensaje con id y timestamp
// ya asignados.
func (s *MessageService) Save(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	msg.Role = strings.TrimSpace(msg.Role)
	msg.Content = strings.TrimSpace(msg.Content)

	if msg.ConversationID == uuid.Nil || msg.Content == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *MessageService) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrMessageServiceNotConfigured
	}
	if conversationID == uuid.Nil {
		return []domain.Message{}, nil
	}
	return s.repo.ListRecent(ctx, conversationID, limit)
}

// CountUserTurns cuenta los turnos del usuario; el router lo usa como
// índice de mensaje para el lock-in.
func (s *MessageService) CountUserTurns(ctx context.Context, conversationID uuid.UUID) (int, error) {
	if s == nil || s.repo == nil {
		return 0, ErrMessageServiceNotConfigured
	}
	return s.repo.CountUserMessages(ctx, conversationID)
}
