package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantNil bool
		wantErr bool
	}{
		{name: "gemini", config: Config{Provider: "gemini", APIKey: "k"}},
		{name: "default provider is gemini", config: Config{APIKey: "k"}},
		{name: "missing key", config: Config{Provider: "gemini"}, wantErr: true},
		{name: "offline", config: Config{Provider: "offline"}, wantNil: true},
		{name: "unknown", config: Config{Provider: "openai", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, client)
				return
			}
			require.NotNil(t, client)
			assert.Equal(t, ProviderGemini, client.Name())
			assert.Equal(t, DefaultGeminiModel, client.Model())
		})
	}
}

func TestGeminiClient_GenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "{\"transactions\": "}, {"text": "[]}"}]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 5, "totalTokenCount": 17}
		}`))
	}))
	defer server.Close()

	temperature := 0.2
	client, err := NewClient(Config{
		BaseURL:     server.URL + "/v1beta/",
		APIKey:      "secret",
		Model:       "gemini-test",
		Temperature: &temperature,
		MaxTokens:   256,
	})
	require.NoError(t, err)

	resp, err := client.GenerateContent(context.Background(), GenerateRequest{
		Prompt: "hello",
		Image:  &InlineImage{MIMEType: "image/png", Data: "aGVsbG8="},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 2)
	assert.Equal(t, "hello", gotBody.Contents[0].Parts[0].Text)
	require.NotNil(t, gotBody.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", gotBody.Contents[0].Parts[1].InlineData.MIMEType)
	assert.InDelta(t, 0.2, gotBody.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 256, gotBody.GenerationConfig.MaxOutputTokens)

	assert.Equal(t, `{"transactions": []}`, resp.Text)
	assert.False(t, resp.Truncated())
	assert.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestGeminiClient_Temperature(t *testing.T) {
	zero, warm := 0.0, 0.7
	tests := []struct {
		name   string
		config *float64
		req    *float64
		want   float64
	}{
		{name: "unset uses default", want: DefaultTemperature},
		{name: "zero is honoured", config: &zero, want: 0},
		{name: "request overrides config", config: &zero, req: &warm, want: 0.7},
		{name: "request zero overrides config", config: &warm, req: &zero, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &gotBody)
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
			}))
			defer server.Close()

			client, err := NewClient(Config{BaseURL: server.URL, APIKey: "k", Temperature: tt.config})
			require.NoError(t, err)

			_, err = client.GenerateContent(context.Background(), GenerateRequest{Prompt: "x", Temperature: tt.req})
			require.NoError(t, err)

			generation, ok := gotBody["generationConfig"].(map[string]any)
			require.True(t, ok)
			temperature, ok := generation["temperature"].(float64)
			require.True(t, ok, "temperature is always sent")
			assert.InDelta(t, tt.want, temperature, 1e-9)
		})
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"code":429}}`, wantStatus: 429},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: "overloaded", wantStatus: 503},
		{name: "bad request", status: http.StatusBadRequest, body: "bad", wantStatus: 400},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates": []}`, wantErr: common.ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: common.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
			require.NoError(t, err)

			_, err = client.GenerateContent(context.Background(), GenerateRequest{Prompt: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.wantStatus, common.StatusOf(err))
		})
	}
}

func TestGeminiClient_MaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"transac"}]},"finishReason":"MAX_TOKENS"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	resp, err := client.GenerateContent(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Truncated())
}

func TestGeminiClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url, APIKey: "super-secret"})
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)

	var apiErr *common.RemoteAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.Status)
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient(
		ErrorResponse(&common.RemoteAPIError{Status: 503}),
		TextResponse(`{"transactions": []}`),
	)

	_, err := mock.GenerateContent(context.Background(), GenerateRequest{Prompt: "a"})
	assert.Equal(t, 503, common.StatusOf(err))

	resp, err := mock.GenerateContent(context.Background(), GenerateRequest{Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, `{"transactions": []}`, resp.Text)

	_, err = mock.GenerateContent(context.Background(), GenerateRequest{Prompt: "c"})
	require.NoError(t, err, "last response repeats")

	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, "b", mock.Requests()[1].Prompt)
}
