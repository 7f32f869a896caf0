// Package ollama adapts a local Ollama server's native generate endpoint to the Provider interface.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/catalog-rag/services/providers"
)

const (
	defaultBaseURL = "http://localhost:11434"
	providerName   = "ollama"
)

// Adapter calls /api/generate with the conversation flattened into one prompt
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewAdapter creates a new Ollama adapter
func NewAdapter(config providers.ProviderConfig) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providerName
}

// FlattenMessages renders a conversation as "role: content" lines
func FlattenMessages(messages []providers.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

// ChatCompletion performs a single non-streaming generate request
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	body := generateRequest{
		Model:  req.Model,
		Prompt: FlattenMessages(req.Messages),
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, providers.NewProviderError(providerName, "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(providerName, "REQUEST_ERROR", "Failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(providerName, "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providerName, "READ_ERROR", "Failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return nil, providers.NewProviderError(providerName, "HTTP_STATUS",
			fmt.Sprintf("ollama returned status %d", httpResp.StatusCode),
			httpResp.StatusCode, providers.IsRetryableStatus(httpResp.StatusCode), errors.New(msg))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, providers.NewProviderError(providerName, "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	return &providers.ChatResponse{
		Model:    genResp.Model,
		Provider: providerName,
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: providers.RoleAssistant, Content: genResp.Response},
			FinishReason: genResp.DoneReason,
		}},
		Usage: providers.Usage{
			PromptTokens:     genResp.PromptEvalCount,
			CompletionTokens: genResp.EvalCount,
			TotalTokens:      genResp.PromptEvalCount + genResp.EvalCount,
		},
		Latency: time.Since(startTime),
		Created: genResp.CreatedAt,
	}, nil
}

// IsAvailable checks that the server answers /api/tags
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	DoneReason      string    `json:"done_reason"`
	PromptEvalCount int       `json:"prompt_eval_count"`
	EvalCount       int       `json:"eval_count"`
}
