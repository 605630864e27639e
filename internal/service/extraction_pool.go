package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
)

const extractionTaskTimeout = 90 * time.Second

// ExtractionTask es el trabajo diferido que queda despues de un turno
// completo: plegar el resumen si el buffer desalojo turnos y extraer
// memorias del par (mensaje, respuesta).
type ExtractionTask struct {
	ConversationID   uuid.UUID
	UserID           uuid.UUID
	PersonaID        uuid.UUID
	UserMessage      string
	AssistantMessage string
	PreviousSummary  string
	Evicted          []domain.Message
	Importance       float64 // pista para el descarte por backpressure
	EnqueuedAt       time.Time
}

type extractionRunner interface {
	ExtractAndStore(ctx context.Context, conversationID, userID, personaID uuid.UUID, userMessage, assistantMessage string) (int, error)
	FoldSummary(ctx context.Context, conversationID uuid.UUID, previousSummary string, evicted []domain.Message) (string, error)
}

// ExtractionPool ejecuta tareas en un grupo acotado de workers. Dentro de
// una conversacion las tareas corren en orden FIFO estricto; entre
// conversaciones distintas corren en paralelo. Si la cola supera el
// watermark se descarta la tarea pendiente de menor importancia.
type ExtractionPool struct {
	runner    extractionRunner
	logger    *zap.Logger
	watermark int

	mu     sync.Mutex
	cond   *sync.Cond
	lanes  map[uuid.UUID][]ExtractionTask
	order  []uuid.UUID
	active map[uuid.UUID]bool
	queued int
	closed bool
	wg     sync.WaitGroup
}

func NewExtractionPool(workers, watermark int, runner extractionRunner, logger *zap.Logger) *ExtractionPool {
	if workers <= 0 {
		workers = 8
	}
	if watermark <= 0 {
		watermark = 64
	}
	p := &ExtractionPool{
		runner:    runner,
		logger:    logger,
		watermark: watermark,
		lanes:     make(map[uuid.UUID][]ExtractionTask),
		active:    make(map[uuid.UUID]bool),
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue agrega una tarea sin bloquear. Devuelve false si el pool esta
// cerrado o si la tarea fue descartada por backpressure.
func (p *ExtractionPool) Enqueue(task ExtractionTask) bool {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if p.queued >= p.watermark {
		dropped := p.dropLowestImportance()
		if !dropped {
			return false
		}
		if p.logger != nil {
			p.logger.Warn("extraction queue over watermark, dropped pending task",
				zap.Int("watermark", p.watermark))
		}
	}

	if _, ok := p.lanes[task.ConversationID]; !ok {
		p.order = append(p.order, task.ConversationID)
	}
	p.lanes[task.ConversationID] = append(p.lanes[task.ConversationID], task)
	p.queued++
	p.cond.Signal()
	return true
}

// Pending devuelve cuantas tareas esperan en cola, sin contar las activas.
func (p *ExtractionPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

// Close deja de aceptar tareas y espera a que los workers drenen la cola.
func (p *ExtractionPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *ExtractionPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		convID, task, ok := p.nextRunnable()
		for !ok && !p.closed {
			p.cond.Wait()
			convID, task, ok = p.nextRunnable()
		}
		if !ok {
			// cerrado: si quedan tareas pertenecen a conversaciones activas
			// y las drena el worker que las este corriendo
			p.mu.Unlock()
			return
		}
		p.active[convID] = true
		p.queued--
		p.mu.Unlock()

		p.run(task)

		p.mu.Lock()
		delete(p.active, convID)
		if len(p.lanes[convID]) == 0 {
			delete(p.lanes, convID)
			p.removeFromOrder(convID)
		}
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *ExtractionPool) run(task ExtractionTask) {
	ctx, cancel := context.WithTimeout(context.Background(), extractionTaskTimeout)
	defer cancel()

	if len(task.Evicted) > 0 {
		if _, err := p.runner.FoldSummary(ctx, task.ConversationID, task.PreviousSummary, task.Evicted); err != nil && p.logger != nil {
			p.logger.Warn("summary fold failed",
				zap.Error(err),
				zap.String("conversation_id", task.ConversationID.String()))
		}
	}

	if task.UserMessage == "" && task.AssistantMessage == "" {
		// Tarea solo de plegado (turno enlatado que desalojo buffer).
		return
	}

	stored, err := p.runner.ExtractAndStore(ctx, task.ConversationID, task.UserID, task.PersonaID, task.UserMessage, task.AssistantMessage)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("memory extraction failed",
				zap.Error(err),
				zap.String("conversation_id", task.ConversationID.String()))
		}
		return
	}
	if stored > 0 && p.logger != nil {
		p.logger.Debug("memories stored",
			zap.Int("count", stored),
			zap.String("conversation_id", task.ConversationID.String()))
	}
}

// nextRunnable busca la primera conversacion con trabajo pendiente que no
// este activa y saca la cabeza de su lane. Requiere p.mu tomado.
func (p *ExtractionPool) nextRunnable() (uuid.UUID, ExtractionTask, bool) {
	for _, convID := range p.order {
		if p.active[convID] {
			continue
		}
		lane := p.lanes[convID]
		if len(lane) == 0 {
			continue
		}
		task := lane[0]
		p.lanes[convID] = lane[1:]
		return convID, task, true
	}
	return uuid.UUID{}, ExtractionTask{}, false
}

// dropLowestImportance elimina la tarea pendiente de menor importancia
// (la mas vieja entre empatadas). Requiere p.mu tomado.
func (p *ExtractionPool) dropLowestImportance() bool {
	var victimConv uuid.UUID
	victimIdx := -1
	for _, convID := range p.order {
		for idx, task := range p.lanes[convID] {
			if victimIdx == -1 {
				victimConv, victimIdx = convID, idx
				continue
			}
			current := p.lanes[victimConv][victimIdx]
			if task.Importance < current.Importance ||
				(task.Importance == current.Importance && task.EnqueuedAt.Before(current.EnqueuedAt)) {
				victimConv, victimIdx = convID, idx
			}
		}
	}
	if victimIdx == -1 {
		return false
	}

	lane := p.lanes[victimConv]
	p.lanes[victimConv] = append(lane[:victimIdx:victimIdx], lane[victimIdx+1:]...)
	p.queued--
	if len(p.lanes[victimConv]) == 0 && !p.active[victimConv] {
		delete(p.lanes, victimConv)
		p.removeFromOrder(victimConv)
	}
	return true
}

func (p *ExtractionPool) removeFromOrder(convID uuid.UUID) {
	for i, id := range p.order {
		if id == convID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
