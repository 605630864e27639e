package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/llm"
	"persona-gateway/internal/moderation"
)

/* =======================
   Contratos del turno
   ======================= */

// ChatEmitter recibe los eventos del turno en orden: cero o mas thinking,
// despues tokens, y al final exactamente uno de Done o Error. Un error de
// emision significa que el cliente se fue.
type ChatEmitter interface {
	Thinking(step string, data map[string]any) error
	Token(content string) error
	Done(conversationID, messageID uuid.UUID) error
	Error(kind, message string) error
}

// Pasos de thinking que el cliente debe saber renderizar.
const (
	ThinkingStepRouted   = "content_routed"
	ThinkingStepAgeGate  = "age_verification_required"
	ThinkingStepFallback = "model_fallback"
)

// Kinds del evento error en el stream.
const (
	ErrorKindModelUnavailable = "model_unavailable"
	ErrorKindInternal         = "internal"
)

// ChatRequest es la entrada del turno. ConversationID en cero crea una
// conversacion nueva; SystemPrompt reemplaza solo la capa de identidad.
type ChatRequest struct {
	UserID         uuid.UUID
	ConversationID uuid.UUID
	Message        string
	PersonaName    string
	SystemPrompt   string
}

var (
	ErrChatNotConfigured = errors.New("chat service not configured")
	ErrEmptyMessage      = errors.New("message must not be empty")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

const (
	// chatPersistTimeout acota las escrituras posteriores al stream, que
	// corren con el contexto ya desacoplado del request.
	chatPersistTimeout = 10 * time.Second
	chatTemperature    = 0.8
)

// errEmitterGone marca que una emision fallo: el cliente cerro la conexion.
var errEmitterGone = errors.New("chat emitter gone")

/* =======================
   Orquestador
   ======================= */

// ChatDeps junta los colaboradores del orquestador. Logger, Limiter, Audit
// y Pool son opcionales; el resto es obligatorio.
type ChatDeps struct {
	Logger        *zap.Logger
	Users         *UserService
	Personas      *PersonaService
	Conversations *ConversationService
	Messages      *MessageService
	Buffer        *BufferService
	Memory        *MemoryService
	Preferences   *PreferenceService
	Routes        *RouteService
	Prompts       PromptBuilder
	Dispatcher    *llm.Dispatcher
	Lease         *ConversationLease
	Limiter       ChatRateLimiter
	Audit         AuditSink
	Pool          *ExtractionPool
}

// ChatService orquesta el turno completo: ruteo de contenido, recuperacion
// de memoria, armado del prompt, streaming del modelo y persistencia.
type ChatService struct {
	deps ChatDeps
}

func NewChatService(deps ChatDeps) *ChatService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ChatService{deps: deps}
}

func (s *ChatService) configured() bool {
	d := s.deps
	return d.Users != nil && d.Personas != nil && d.Conversations != nil &&
		d.Messages != nil && d.Buffer != nil && d.Routes != nil &&
		d.Dispatcher != nil && d.Lease != nil
}

// Stream ejecuta un turno de chat y emite los eventos sobre emit.
//
// Los errores previos al stream (validacion, rate limit, auth de recursos)
// se devuelven como error para que el handler responda con un status HTTP.
// Una vez que el turno empieza a emitir, los fallos viajan como evento
// error dentro del stream y Stream devuelve nil.
func (s *ChatService) Stream(ctx context.Context, req ChatRequest, emit ChatEmitter) error {
	if s == nil || !s.configured() {
		return ErrChatNotConfigured
	}
	if req.UserID == uuid.Nil {
		return ErrEmptyMessage
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ErrEmptyMessage
	}
	if s.deps.Limiter != nil && !s.deps.Limiter.Allow(req.UserID.String()) {
		return ErrRateLimited
	}

	user, err := s.deps.Users.Get(ctx, req.UserID)
	if err != nil {
		return err
	}
	persona, err := s.deps.Personas.Resolve(ctx, req.PersonaName)
	if err != nil {
		return err
	}
	conversation, _, err := s.deps.Conversations.Resolve(ctx, user.ID, req.ConversationID, message)
	if err != nil {
		return err
	}

	// Serializa buffer y estado de sesion dentro de la conversacion. El
	// lease se sostiene hasta terminar de persistir el turno.
	release, err := s.deps.Lease.Acquire(ctx, conversation.ID)
	if err != nil {
		return err
	}
	defer release()

	persona, conversation, err = s.resolveStampedPersona(ctx, conversation, persona)
	if err != nil {
		return err
	}

	userMsg, err := s.deps.Messages.Save(ctx, domain.Message{
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        message,
	})
	if err != nil {
		return err
	}
	evicted, fold, err := s.deps.Buffer.Append(ctx, conversation.ID, userMsg)
	if err != nil {
		s.deps.Logger.Warn("buffer append failed", zap.Error(err),
			zap.String("conversation_id", conversation.ID.String()))
		evicted, fold = nil, false
	}

	userTurns, err := s.deps.Messages.CountUserTurns(ctx, conversation.ID)
	if err != nil {
		return err
	}
	messageIndex := userTurns - 1

	prior, err := s.deps.Routes.State(ctx, conversation.ID)
	if err != nil {
		return err
	}
	cls := moderation.Classify(message, prior.CurrentRoute)
	state, action, err := s.deps.Routes.Decide(ctx, conversation.ID, cls, messageIndex)
	if err != nil {
		return err
	}
	s.writeAudit(user.ID, conversation.ID, cls, state, action, message)

	turn := &chatTurn{
		user:         user,
		persona:      persona,
		conversation: conversation,
		message:      message,
		userTurns:    userTurns,
		state:        state,
		evicted:      evicted,
		fold:         fold,
	}

	switch action {
	case domain.ActionRefuseHard:
		return s.finishCannedTurn(ctx, turn, RefusalHardText, emit)
	case domain.ActionRefuseSoft:
		return s.finishCannedTurn(ctx, turn, RefusalSoftText, emit)
	case domain.ActionRequestAgeGate:
		if err := emit.Thinking(ThinkingStepAgeGate, nil); err != nil {
			return nil
		}
		return s.finishCannedTurn(ctx, turn, AgeGateQuestion, emit)
	}

	return s.generateTurn(ctx, turn, req.SystemPrompt, emit)
}

// chatTurn acumula lo resuelto en la primera mitad del turno para no
// arrastrar media docena de parametros entre helpers.
type chatTurn struct {
	user         domain.User
	persona      domain.Persona
	conversation domain.Conversation
	message      string
	userTurns    int
	state        domain.SessionState
	emotion      domain.EmotionSignal
	evicted      []domain.Message
	fold         bool
	canned       bool
}

func (t *chatTurn) personaID() uuid.UUID {
	if t.conversation.PersonaID != nil {
		return *t.conversation.PersonaID
	}
	return t.persona.ID
}

// resolveStampedPersona fija la persona en el primer turno y en los
// siguientes hace valer la que quedo fijada, ignorando el override.
func (s *ChatService) resolveStampedPersona(ctx context.Context, conversation domain.Conversation, requested domain.Persona) (domain.Persona, domain.Conversation, error) {
	if conversation.PersonaID == nil {
		stamped, err := s.deps.Conversations.StampPersona(ctx, conversation, requested.ID)
		if err != nil {
			return domain.Persona{}, domain.Conversation{}, err
		}
		return requested, stamped, nil
	}

	if *conversation.PersonaID == requested.ID {
		return requested, conversation, nil
	}
	stamped, err := s.deps.Personas.GetByID(ctx, *conversation.PersonaID)
	if err != nil {
		// La fila fijada deberia existir; si no se puede leer seguimos
		// con la pedida antes que cortar el turno.
		s.deps.Logger.Warn("stamped persona load failed", zap.Error(err),
			zap.String("conversation_id", conversation.ID.String()))
		return requested, conversation, nil
	}
	return stamped, conversation, nil
}

func (s *ChatService) writeAudit(userID, conversationID uuid.UUID, cls domain.Classification, state domain.SessionState, action domain.RouteAction, message string) {
	if s.deps.Audit == nil {
		return
	}
	s.deps.Audit.Write(domain.AuditEntry{
		Timestamp:      time.Now().UTC(),
		UserID:         userID,
		ConversationID: conversationID,
		Label:          cls.Label,
		Confidence:     cls.Confidence,
		Indicators:     cls.Indicators,
		Route:          state.CurrentRoute,
		Action:         auditActionFor(action),
		MessageDigest:  MessageDigest(message),
	})
}

func auditActionFor(action domain.RouteAction) string {
	switch action {
	case domain.ActionRefuseSoft, domain.ActionRefuseHard:
		return domain.AuditActionRefuse
	case domain.ActionRequestAgeGate:
		return domain.AuditActionAgeVerify
	default:
		return domain.AuditActionGenerate
	}
}

// finishCannedTurn persiste un turno con texto fijo (rechazo o pregunta de
// edad) y lo emite como token unico. No llama a ningun modelo y no extrae
// memorias ni preferencias del mensaje rechazado.
func (s *ChatService) finishCannedTurn(ctx context.Context, turn *chatTurn, text string, emit ChatEmitter) error {
	turn.canned = true
	assistantMsg, ok := s.persistAssistantTurn(ctx, turn, text, emit)
	if !ok {
		return nil
	}
	if err := emit.Token(text); err != nil {
		return nil
	}
	_ = emit.Done(turn.conversation.ID, assistantMsg.ID)
	return nil
}

// generateTurn es el camino con modelo: junta contexto, compone el prompt,
// streamea y persiste la respuesta.
func (s *ChatService) generateTurn(ctx context.Context, turn *chatTurn, systemPromptOverride string, emit ChatEmitter) error {
	conversation := turn.conversation

	window, err := s.deps.Buffer.Window(ctx, conversation.ID)
	if err != nil {
		s.deps.Logger.Warn("buffer window failed", zap.Error(err),
			zap.String("conversation_id", conversation.ID.String()))
		window = []domain.Message{{Role: domain.RoleUser, Content: turn.message}}
	}

	var memories []domain.ScoredMemory
	if s.deps.Memory != nil {
		memories, err = s.deps.Memory.Retrieve(ctx, turn.user.ID, turn.personaID(), turn.message)
		if err != nil {
			// La memoria caida degrada el contexto, no corta el turno.
			s.deps.Logger.Warn("memory retrieval failed", zap.Error(err),
				zap.String("user_id", turn.user.ID.String()))
			memories = nil
		}
	}

	var prefs domain.Preferences
	if s.deps.Preferences != nil {
		prefs, err = s.deps.Preferences.Get(ctx, turn.user.ID)
		if err != nil {
			s.deps.Logger.Warn("preferences load failed", zap.Error(err),
				zap.String("user_id", turn.user.ID.String()))
			prefs = domain.Preferences{}
		}
	}

	turn.emotion = DetectEmotion(turn.message)
	goal := DetermineGoal(turn.emotion, turn.userTurns)

	if err := emit.Thinking(ThinkingStepRouted, map[string]any{"route": string(turn.state.CurrentRoute)}); err != nil {
		return nil
	}

	prompt := s.deps.Prompts.BuildSystemPrompt(PromptInput{
		Persona:      &turn.persona,
		BaseOverride: systemPromptOverride,
		Memories:     memories,
		Summary:      conversation.LastSummary,
		Preferences:  prefs,
		Emotion:      turn.emotion,
		Goal:         goal,
	})

	client := s.deps.Dispatcher.ForRoute(turn.state.CurrentRoute)
	text, sent, streamErr := s.streamTokens(ctx, client, buildModelMessages(prompt, window), emit)

	if streamErr != nil && s.shouldFallback(streamErr, turn.state.CurrentRoute, sent) {
		if err := emit.Thinking(ThinkingStepFallback, nil); err != nil {
			return nil
		}
		alternate := s.deps.Dispatcher.Alternate(client)
		annotated := s.deps.Prompts.AnnotateForFallback(prompt)
		text, sent, streamErr = s.streamTokens(ctx, alternate, buildModelMessages(annotated, window), emit)
	}

	if streamErr != nil {
		if isTurnCancelled(ctx, streamErr) {
			// Cliente desconectado: si no salio ningun token el turno del
			// asistente no existe; si salieron, se persiste lo enviado.
			if sent == 0 {
				return nil
			}
			if msg, ok := s.persistAssistantTurn(ctx, turn, text, nil); ok {
				_ = emit.Done(turn.conversation.ID, msg.ID)
			}
			return nil
		}

		s.deps.Logger.Error("model stream failed", zap.Error(streamErr),
			zap.String("conversation_id", conversation.ID.String()),
			zap.String("route", string(turn.state.CurrentRoute)),
			zap.Int("tokens_sent", sent))
		if sent > 0 {
			// El usuario ya vio estos tokens; la historia los conserva.
			s.persistAssistantTurn(ctx, turn, text, nil)
		}
		_ = emit.Error(ErrorKindModelUnavailable, "The model could not complete the response. Please try again.")
		return nil
	}

	assistantMsg, ok := s.persistAssistantTurn(ctx, turn, text, emit)
	if !ok {
		return nil
	}
	_ = emit.Done(conversation.ID, assistantMsg.ID)
	return nil
}

func (s *ChatService) shouldFallback(streamErr error, route domain.RouteState, sent int) bool {
	if sent > 0 || !route.IsExplicit() || isCancelErr(streamErr) {
		return false
	}
	return llm.IsFallbackTrigger(streamErr)
}

func isCancelErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, errEmitterGone)
}

func isTurnCancelled(ctx context.Context, streamErr error) bool {
	return ctx.Err() != nil || isCancelErr(streamErr)
}

// streamTokens corre StreamChat en una goroutine y reenvia cada token al
// emitter. Devuelve el texto acumulado, cuantos tokens salieron y el error
// del stream (nil si completo).
func (s *ChatService) streamTokens(ctx context.Context, client llm.LLMClient, messages []llm.Message, emit ChatEmitter) (string, int, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.StreamChat(streamCtx, messages, llm.Params{Temperature: chatTemperature}, out)
	}()

	var sb strings.Builder
	sent := 0
	forward := func(tok string) error {
		if err := emit.Token(tok); err != nil {
			return errEmitterGone
		}
		sb.WriteString(tok)
		sent++
		return nil
	}

	for {
		select {
		case tok := <-out:
			if err := forward(tok); err != nil {
				cancel()
				<-errCh
				return sb.String(), sent, err
			}
		case streamErr := <-errCh:
			// El productor termino; puede quedar cola en el canal.
			for {
				select {
				case tok := <-out:
					if err := forward(tok); err != nil {
						return sb.String(), sent, err
					}
				default:
					return sb.String(), sent, streamErr
				}
			}
		}
	}
}

// persistAssistantTurn guarda la respuesta, actualiza buffer y actividad y
// encola la extraccion de memoria. Corre con un contexto desacoplado del
// request para sobrevivir desconexiones. Si emit no es nil, un fallo de
// persistencia se reporta como evento error.
func (s *ChatService) persistAssistantTurn(ctx context.Context, turn *chatTurn, text string, emit ChatEmitter) (domain.Message, bool) {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), chatPersistTimeout)
	defer cancel()

	conversation := turn.conversation
	assistantMsg, err := s.deps.Messages.Save(persistCtx, domain.Message{
		ConversationID: conversation.ID,
		Role:           domain.RoleAssistant,
		Content:        text,
	})
	if err != nil {
		s.deps.Logger.Error("assistant turn persist failed", zap.Error(err),
			zap.String("conversation_id", conversation.ID.String()))
		if emit != nil {
			_ = emit.Error(ErrorKindInternal, "The response could not be saved. Please try again.")
		}
		return domain.Message{}, false
	}

	evicted, fold, err := s.deps.Buffer.Append(persistCtx, conversation.ID, assistantMsg)
	if err != nil {
		s.deps.Logger.Warn("buffer append failed", zap.Error(err),
			zap.String("conversation_id", conversation.ID.String()))
		evicted, fold = nil, false
	}
	turn.evicted = append(turn.evicted, evicted...)
	turn.fold = turn.fold || fold

	if err := s.deps.Users.TouchLastActive(persistCtx, turn.user.ID); err != nil {
		s.deps.Logger.Warn("touch last active failed", zap.Error(err))
	}
	if err := s.deps.Conversations.Touch(persistCtx, conversation.ID); err != nil {
		s.deps.Logger.Warn("touch conversation failed", zap.Error(err))
	}

	s.enqueueExtraction(turn, text)
	if !turn.canned {
		s.extractPreferences(persistCtx, turn.user.ID, turn.message)
	}
	return assistantMsg, true
}

func (s *ChatService) enqueueExtraction(turn *chatTurn, assistantText string) {
	if s.deps.Pool == nil {
		return
	}
	task := ExtractionTask{
		ConversationID:  turn.conversation.ID,
		UserID:          turn.user.ID,
		PersonaID:       turn.personaID(),
		PreviousSummary: turn.conversation.LastSummary,
		Importance:      extractionImportance(turn.emotion, turn.fold),
	}
	if turn.fold {
		task.Evicted = turn.evicted
	}
	if turn.canned {
		// De un turno rechazado solo interesa el plegado pendiente.
		if !turn.fold {
			return
		}
	} else {
		task.UserMessage = turn.message
		task.AssistantMessage = assistantText
	}
	if !s.deps.Pool.Enqueue(task) {
		s.deps.Logger.Warn("extraction task dropped",
			zap.String("conversation_id", turn.conversation.ID.String()))
	}
}

func (s *ChatService) extractPreferences(ctx context.Context, userID uuid.UUID, message string) {
	if s.deps.Preferences == nil {
		return
	}
	if _, changed, err := s.deps.Preferences.ExtractFromMessage(ctx, userID, message); err != nil {
		s.deps.Logger.Debug("preference extraction failed", zap.Error(err))
	} else if changed {
		s.deps.Logger.Debug("preferences updated from message",
			zap.String("user_id", userID.String()))
	}
}

// extractionImportance prioriza tareas que no conviene descartar: plegados
// de resumen y turnos con carga emocional alta.
func extractionImportance(emotion domain.EmotionSignal, fold bool) float64 {
	importance := 0.5
	if fold {
		importance = 0.8
	}
	if emotion.Intensity >= 80 {
		importance = 0.9
	}
	return importance
}

func buildModelMessages(systemPrompt string, window []domain.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, msg := range window {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}
