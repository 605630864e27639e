package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"persona-gateway/internal/domain"
)

// AuditSink recibe exactamente una entrada por mensaje de usuario. Las
// implementaciones no deben bloquear el turno: los fallos se loguean y se
// siguen de largo.
type AuditSink interface {
	Write(entry domain.AuditEntry)
}

// JSONLinesAuditSink serializa cada entrada como una linea JSON.
type JSONLinesAuditSink struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewJSONLinesAuditSink(out io.Writer, logger *zap.Logger) *JSONLinesAuditSink {
	return &JSONLinesAuditSink{out: out, logger: logger}
}

func (s *JSONLinesAuditSink) Write(entry domain.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("audit entry marshal failed", zap.Error(err))
		}
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(line); err != nil && s.logger != nil {
		s.logger.Warn("audit entry write failed", zap.Error(err))
	}
}

// MessageDigest identifica un mensaje en el log de auditoria sin guardar
// su contenido.
func MessageDigest(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:8])
}
