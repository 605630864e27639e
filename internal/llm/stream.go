package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamChat envía una petición streaming y va mandando cada delta de texto
// al canal out. No cierra el canal; eso queda del lado del llamador. Devuelve
// nil cuando el proveedor cierra el stream con `[DONE]` o con finish_reason.
func (c *HTTPClient) StreamChat(ctx context.Context, messages []Message, params Params, out chan<- string) error {
	body, err := json.Marshal(c.buildRequest(messages, params, true))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		if c.logger != nil {
			c.logger.Printf("llm stream error status %d: %s", resp.StatusCode, string(respBody))
		}
		return classifyStatus(resp.StatusCode, string(respBody))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				// El proveedor cerró sin mandar [DONE] ni finish_reason.
				return &ProtocolError{Reason: "stream truncated"}
			}
			return &TransportError{Err: err}
		}

		data, ok := strings.CutPrefix(strings.TrimSpace(string(line)), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return &ProtocolError{Reason: "unmarshal chunk: " + err.Error()}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			select {
			case out <- choice.Delta.Content:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if choice.FinishReason != "" {
			return nil
		}
	}
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
