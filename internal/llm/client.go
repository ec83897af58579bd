package llm

import (
	"context"
	"time"
)

// FinishReasonMaxTokens is reported when the model stopped at its output limit.
const FinishReasonMaxTokens = "MAX_TOKENS"

// Client defines the interface for LLM providers.
type Client interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	// Name is the provider key used for rate limiting and the circuit breaker.
	Name() string
	Model() string
}

// InlineImage is a base64 encoded image sent alongside the prompt.
type InlineImage struct {
	MIMEType string
	Data     string
}

// GenerateRequest is a single prompt, optionally with an image.
// A nil Temperature and a zero MaxOutputTokens fall back to the client defaults.
type GenerateRequest struct {
	Image           *InlineImage
	Temperature     *float64
	Prompt          string
	MaxOutputTokens int
}

// Usage reports token accounting returned by the provider.
type Usage struct {
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

// GenerateResponse contains the first candidate's text.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Truncated reports whether the model ran out of output tokens.
func (r GenerateResponse) Truncated() bool {
	return r.FinishReason == FinishReasonMaxTokens
}

// Config holds provider settings. A nil Temperature uses DefaultTemperature;
// zero is a valid setting.
type Config struct {
	Temperature *float64
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
}
