package llm

import "context"

// MockClient implementa LLMClient en memoria para pruebas. Si Tokens no está
// vacío, StreamChat los emite en orden y después devuelve Err; con Tokens
// vacío y Err seteado, la llamada falla sin emitir nada.
type MockClient struct {
	Response string
	Tokens   []string
	Err      error

	CallCount    int
	LastMessages []Message
	LastParams   Params
}

func (m *MockClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	m.CallCount++
	m.LastMessages = messages
	m.LastParams = params
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockClient) StreamChat(ctx context.Context, messages []Message, params Params, out chan<- string) error {
	m.CallCount++
	m.LastMessages = messages
	m.LastParams = params
	for _, tok := range m.Tokens {
		select {
		case out <- tok:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Chat(ctx, []Message{{Role: "user", Content: prompt}}, Params{})
}

// MockEmbedder devuelve siempre el mismo vector.
type MockEmbedder struct {
	Vector []float32
	Err    error
}

func (m *MockEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
