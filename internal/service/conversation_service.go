package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrForbidden            = errors.New("forbidden")
)

const maxConversationTitle = 60

// ConversationService maneja el ciclo de vida de conversaciones y las
// operaciones de limpieza que expone la API.
type ConversationService struct {
	conversations repository.ConversationRepository
	buffer        *BufferService
	memory        *MemoryService
}

func NewConversationService(conversations repository.ConversationRepository, buffer *BufferService, memory *MemoryService) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		buffer:        buffer,
		memory:        memory,
	}
}

// Resolve devuelve la conversación indicada (verificando dueño) o crea una
// nueva cuando conversationID es uuid.Nil. El bool indica si se creó.
func (s *ConversationService) Resolve(ctx context.Context, userID, conversationID uuid.UUID, titleHint string) (domain.Conversation, bool, error) {
	if s.conversations == nil {
		return domain.Conversation{}, false, errors.New("conversation service not configured")
	}

	if conversationID == uuid.Nil {
		now := time.Now().UTC()
		conversation := domain.Conversation{
			ID:        uuid.New(),
			UserID:    userID,
			Title:     deriveTitle(titleHint),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.conversations.Create(ctx, conversation); err != nil {
			return domain.Conversation{}, false, err
		}
		return conversation, true, nil
	}

	conversation, err := s.get(ctx, userID, conversationID)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conversation, false, nil
}

// StampPersona fija la persona de la conversación en el primer intercambio.
// Si ya hay una fijada, gana la existente.
func (s *ConversationService) StampPersona(ctx context.Context, conversation domain.Conversation, personaID uuid.UUID) (domain.Conversation, error) {
	if conversation.PersonaID != nil {
		return conversation, nil
	}
	if err := s.conversations.SetPersona(ctx, conversation.ID, personaID, time.Now().UTC()); err != nil {
		return domain.Conversation{}, err
	}
	// Releer por si otra petición ganó la carrera del primer turno.
	stored, err := s.conversations.GetByID(ctx, conversation.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return stored, nil
}

func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	if s.conversations == nil {
		return nil, errors.New("conversation service not configured")
	}
	return s.conversations.ListByUserID(ctx, userID)
}

// Authorize verifica que la conversación exista y pertenezca al usuario.
func (s *ConversationService) Authorize(ctx context.Context, userID, conversationID uuid.UUID) (domain.Conversation, error) {
	return s.get(ctx, userID, conversationID)
}

// Reset vacía la ventana de contexto reciente. Mensajes y memorias quedan
// intactos.
func (s *ConversationService) Reset(ctx context.Context, userID, conversationID uuid.UUID) error {
	if _, err := s.get(ctx, userID, conversationID); err != nil {
		return err
	}
	if s.buffer != nil {
		s.buffer.Reset(conversationID)
	}
	return nil
}

// ClearMemories borra las memorias del usuario en esa conversación.
func (s *ConversationService) ClearMemories(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	if _, err := s.get(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	if s.memory == nil {
		return 0, errors.New("conversation service not configured")
	}
	return s.memory.Forget(ctx, conversationID, userID)
}

func (s *ConversationService) Touch(ctx context.Context, conversationID uuid.UUID) error {
	if s.conversations == nil {
		return errors.New("conversation service not configured")
	}
	return s.conversations.Touch(ctx, conversationID, time.Now().UTC())
}

func (s *ConversationService) get(ctx context.Context, userID, conversationID uuid.UUID) (domain.Conversation, error) {
	if s.conversations == nil {
		return domain.Conversation{}, errors.New("conversation service not configured")
	}
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return domain.Conversation{}, err
	}
	if conversation.UserID != userID {
		return domain.Conversation{}, ErrForbidden
	}
	return conversation, nil
}

func deriveTitle(hint string) string {
	hint = strings.Join(strings.Fields(hint), " ")
	if hint == "" {
		return ""
	}
	runes := []rune(hint)
	if len(runes) <= maxConversationTitle {
		return hint
	}
	return strings.TrimSpace(string(runes[:maxConversationTitle])) + "…"
}
