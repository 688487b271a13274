package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"aletheia/internal/logging"
)

// GenAIClient implements Client on the Gemini API using the streaming call
// pattern. A mutex serializes calls: there is one physical inference
// resource per process.
type GenAIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	mu      sync.Mutex
}

// NewGenAIClient creates a Gemini-backed generative client.
func NewGenAIClient(apiKey, model string, timeout time.Duration) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate streams a completion for the prompt. In jsonMode the API is asked
// for application/json output and the result is reduced to its first valid
// JSON object. Block reasons and stalled streams are reported as typed
// errors; partial output survives in PartialError.
func (c *GenAIClient) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryAPI, "Generate")
	defer timer.StopWithThreshold(c.timeout / 2)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mimeType := "text/plain"
	if jsonMode {
		mimeType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeType,
	}

	var parts strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(callCtx, c.model, contents, cfg) {
		if err != nil {
			logging.Get(logging.CategoryAPI).Error("stream error: %v", err)
			return "", &PartialError{Partial: parts.String(), Err: err}
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			logging.Get(logging.CategoryAPI).Error("generation blocked: %s", resp.PromptFeedback.BlockReason)
			return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		parts.WriteString(resp.Text())
	}

	full := parts.String()
	logging.API("generated %d bytes (json=%v)", len(full), jsonMode)

	if jsonMode {
		extracted, err := ExtractJSON(full)
		if err != nil {
			logging.Get(logging.CategoryAPI).Error("invalid JSON in LLM response: %v", err)
			return ErrorPayload(err.Error()), nil
		}
		return extracted, nil
	}

	return full, nil
}
