package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// OLLAMA EMBEDDING ENGINE
// =============================================================================

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "embeddinggemma"
	ollamaRequestTimeout  = 30 * time.Second
)

// OllamaEngine embeds text through a local Ollama server's REST API.
type OllamaEngine struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaEngine creates an engine for the given server and model,
// falling back to the local default server and embeddinggemma.
func NewOllamaEngine(endpoint, model string) (*OllamaEngine, error) {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaEngine{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: ollamaRequestTimeout},
	}, nil
}

// Embed requests one embedding from the /api/embeddings endpoint.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{
		"model":  e.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama embed status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", e.model)
	}
	if err := ValidateVector(out.Embedding); err != nil {
		return nil, fmt.Errorf("ollama returned invalid embedding: %w", err)
	}
	return out.Embedding, nil
}

// EmbedBatch issues sequential Embed calls; the API has no batch form.
func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions reports the vector width produced by embeddinggemma.
func (e *OllamaEngine) Dimensions() int {
	return 768
}

// Name returns the engine name.
func (e *OllamaEngine) Name() string {
	return "ollama:" + e.model
}
