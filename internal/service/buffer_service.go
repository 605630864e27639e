package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

// BufferService mantiene la ventana de contexto reciente por conversación,
// acotada a capacity mensajes. La ventana vive en memoria y se hidrata del
// log de mensajes la primera vez que se toca; después el proceso es la
// fuente de verdad hasta un reinicio.
type BufferService struct {
	messages repository.MessageRepository
	capacity int

	mu      sync.Mutex
	windows map[uuid.UUID]*window
}

type window struct {
	mu       sync.Mutex
	entries  []domain.Message
	hydrated bool
}

func NewBufferService(messages repository.MessageRepository, capacity int) *BufferService {
	if capacity <= 0 {
		capacity = 20
	}
	return &BufferService{
		messages: messages,
		capacity: capacity,
		windows:  make(map[uuid.UUID]*window),
	}
}

func (s *BufferService) window(conversationID uuid.UUID) *window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[conversationID]
	if !ok {
		w = &window{}
		s.windows[conversationID] = w
	}
	return w
}

func (w *window) hydrate(ctx context.Context, messages repository.MessageRepository, conversationID uuid.UUID, capacity int) error {
	if w.hydrated {
		return nil
	}
	recent, err := messages.ListRecent(ctx, conversationID, capacity)
	if err != nil {
		return fmt.Errorf("hydrate buffer: %w", err)
	}
	w.entries = recent
	w.hydrated = true
	return nil
}

// Append agrega un mensaje a la ventana. Devuelve los mensajes desalojados
// por el tope y si corresponde disparar resumen; el resumen lo ejecuta el
// orquestador, no el buffer.
func (s *BufferService) Append(ctx context.Context, conversationID uuid.UUID, msg domain.Message) ([]domain.Message, bool, error) {
	w := s.window(conversationID)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.hydrate(ctx, s.messages, conversationID, s.capacity); err != nil {
		return nil, false, err
	}

	// La hidratación pudo traer este mismo mensaje desde el log.
	if n := len(w.entries); n > 0 && w.entries[n-1].ID == msg.ID {
		return nil, false, nil
	}

	w.entries = append(w.entries, msg)
	if len(w.entries) <= s.capacity {
		return nil, false, nil
	}

	over := len(w.entries) - s.capacity
	evicted := make([]domain.Message, over)
	copy(evicted, w.entries[:over])
	w.entries = append(w.entries[:0:0], w.entries[over:]...)
	return evicted, true, nil
}

// Window devuelve una copia de la ventana en orden cronológico.
func (s *BufferService) Window(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	w := s.window(conversationID)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.hydrate(ctx, s.messages, conversationID, s.capacity); err != nil {
		return nil, err
	}

	out := make([]domain.Message, len(w.entries))
	copy(out, w.entries)
	return out, nil
}

// Reset vacía la ventana sin tocar mensajes ni memorias. La entrada queda
// hidratada para que el log viejo no la repueble.
func (s *BufferService) Reset(conversationID uuid.UUID) {
	w := s.window(conversationID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = nil
	w.hydrated = true
}
