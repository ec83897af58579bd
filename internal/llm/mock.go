package llm

import (
	"context"
	"sync"
)

// MockResponse is one scripted answer for MockClient.
type MockResponse struct {
	Err      error
	Response GenerateResponse
}

// MockClient replays scripted responses in order and repeats the last one.
type MockClient struct {
	ProviderName string
	ModelName    string
	responses    []MockResponse
	requests     []GenerateRequest
	mu           sync.Mutex
}

// NewMockClient creates a mock that answers with the given script.
func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{
		ProviderName: ProviderGemini,
		ModelName:    "mock-model",
		responses:    responses,
	}
}

// TextResponse is a convenience for a successful answer with the given text.
func TextResponse(text string) MockResponse {
	return MockResponse{Response: GenerateResponse{Text: text, FinishReason: "STOP"}}
}

// ErrorResponse is a convenience for a failed call.
func ErrorResponse(err error) MockResponse {
	return MockResponse{Err: err}
}

// GenerateContent returns the next scripted response.
func (m *MockClient) GenerateContent(_ context.Context, req GenerateRequest) (GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.requests)
	m.requests = append(m.requests, req)

	if len(m.responses) == 0 {
		return GenerateResponse{Text: `{"transactions": []}`, FinishReason: "STOP"}, nil
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	r := m.responses[idx]
	return r.Response, r.Err
}

// Name returns the provider key.
func (m *MockClient) Name() string { return m.ProviderName }

// Model returns the configured model name.
func (m *MockClient) Model() string { return m.ModelName }

// Calls reports how many requests were made.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockClient) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
