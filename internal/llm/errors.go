package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError indica un fallo de red contra el proveedor: conexión
// rechazada, timeout o reset.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "llm transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError indica que el proveedor respondió con un estado no-2xx.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm http error: status=%d", e.StatusCode)
}

// ProtocolError indica un stream malformado o truncado a mitad de respuesta.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "llm protocol: " + e.Reason }

// AuthError indica credenciales rechazadas por el proveedor (401/403).
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("llm auth rejected: status=%d", e.StatusCode)
}

// classifyStatus convierte un estado HTTP de error en su tipo correspondiente.
func classifyStatus(status int, body string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthError{StatusCode: status}
	}
	return &HTTPStatusError{StatusCode: status, Body: body}
}

// IsFallbackTrigger indica si un error del proveedor justifica redirigir la
// llamada al proveedor alterno. Fallos de transporte, estados 5xx y streams
// malformados disparan fallback; un AuthError no, porque es un problema de
// configuración que el otro proveedor no resuelve.
func IsFallbackTrigger(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return true
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return false
}
