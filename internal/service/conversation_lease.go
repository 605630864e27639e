package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ConversationLease serializa los turnos de una misma conversacion. No es
// un lock global: conversaciones distintas avanzan en paralelo.
type ConversationLease struct {
	mu     sync.Mutex
	leases map[uuid.UUID]*leaseEntry
}

type leaseEntry struct {
	sem  chan struct{}
	refs int
}

func NewConversationLease() *ConversationLease {
	return &ConversationLease{leases: make(map[uuid.UUID]*leaseEntry)}
}

// Acquire toma el lease de la conversacion, esperando si otro turno lo
// tiene. Devuelve la funcion de release, que es segura de llamar mas de
// una vez. La espera respeta la cancelacion del contexto.
func (l *ConversationLease) Acquire(ctx context.Context, conversationID uuid.UUID) (func(), error) {
	l.mu.Lock()
	entry, ok := l.leases[conversationID]
	if !ok {
		entry = &leaseEntry{sem: make(chan struct{}, 1)}
		l.leases[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(conversationID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.sem
			l.unref(conversationID, entry)
		})
	}
	return release, nil
}

func (l *ConversationLease) unref(conversationID uuid.UUID, entry *leaseEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.leases, conversationID)
	}
	l.mu.Unlock()
}
