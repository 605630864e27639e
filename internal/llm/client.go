package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// LLMClient define la interfaz contra un proveedor de chat OpenAI-compatible.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, params Params) (string, error)
	StreamChat(ctx context.Context, messages []Message, params Params, out chan<- string) error
}

// Message es un mensaje del formato de chat completions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params controla una llamada individual. Los campos en cero usan los
// valores por defecto del cliente o del proveedor.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
}

type logger interface {
	Printf(format string, v ...interface{})
}

// HTTPClient implementa LLMClient usando la API de OpenAI-compatible.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat
// completions. Sin api key se envía el placeholder "not-needed", que los
// servidores locales tipo Ollama aceptan.
func NewHTTPClient(baseURL, apiKey, model string, timeout, connectTimeout time.Duration, log any) *HTTPClient {
	l, _ := log.(logger)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		apiKey = "not-needed"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		logger: l,
	}
}

// Model devuelve el nombre del modelo por defecto del cliente.
func (c *HTTPClient) Model() string { return c.model }

// Chat envía una petición no-streaming y devuelve el texto completo.
func (c *HTTPClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	body, err := json.Marshal(c.buildRequest(messages, params, false))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Printf("llm error status %d: %s", resp.StatusCode, string(respBody))
		}
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", &ProtocolError{Reason: "unmarshal response: " + err.Error()}
	}

	if cr.Error != nil {
		return "", &ProtocolError{Reason: "api error: " + cr.Error.Message}
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", &ProtocolError{Reason: "empty response"}
	}

	return cr.Choices[0].Message.Content, nil
}

// Generate es el atajo de una sola vuelta: un prompt de usuario, texto completo.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, Params{})
}

// HealthCheck verifica que el proveedor responde consultando /models.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return classifyStatus(resp.StatusCode, "")
	}
	return nil
}

func (c *HTTPClient) buildRequest(messages []Message, params Params, stream bool) chatRequest {
	model := c.model
	if params.Model != "" {
		model = params.Model
	}
	return chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stop:        params.Stop,
		Stream:      stream,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
