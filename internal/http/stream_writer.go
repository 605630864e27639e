package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StreamWriter serializa los eventos del turno como NDJSON, un objeto JSON
// por linea con flush inmediato para que el cliente vea cada token apenas
// existe. Implementa service.ChatEmitter.
type StreamWriter struct {
	w       gin.ResponseWriter
	started bool
}

func NewStreamWriter(w gin.ResponseWriter) *StreamWriter {
	return &StreamWriter{w: w}
}

// Started indica si ya salio algun evento. A partir de ahi el status y los
// headers quedaron en el aire y los fallos solo pueden viajar como evento.
func (sw *StreamWriter) Started() bool { return sw.started }

func (sw *StreamWriter) Thinking(step string, data map[string]any) error {
	event := map[string]any{"type": "thinking", "step": step}
	if data != nil {
		event["data"] = data
	}
	return sw.write(event)
}

func (sw *StreamWriter) Token(content string) error {
	return sw.write(map[string]any{"type": "token", "content": content})
}

func (sw *StreamWriter) Done(conversationID, messageID uuid.UUID) error {
	return sw.write(map[string]any{
		"type":            "done",
		"conversation_id": conversationID.String(),
		"message_id":      messageID.String(),
	})
}

func (sw *StreamWriter) Error(kind, message string) error {
	return sw.write(map[string]any{"type": "error", "kind": kind, "message": message})
}

func (sw *StreamWriter) write(event map[string]any) error {
	if !sw.started {
		// Los headers recien se mandan con el primer byte; aca pisamos el
		// Content-Type JSON que dejo el middleware.
		header := sw.w.Header()
		header.Set("Content-Type", "application/x-ndjson")
		header.Set("Cache-Control", "no-cache")
		header.Set("X-Accel-Buffering", "no")
		sw.w.WriteHeader(http.StatusOK)
		sw.started = true
	}

	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := sw.w.Write(append(line, '\n')); err != nil {
		return err
	}
	sw.w.Flush()
	return nil
}
