package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/upb/catalog-rag/services/providers"
)

func TestNewOpenAIAdapter(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key"})

	if adapter.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", adapter.Name())
	}
	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}

	groq := NewOpenAIAdapter(providers.ProviderConfig{Name: "groq", BaseURL: "https://api.groq.com/openai/v1/"})
	if groq.Name() != "groq" {
		t.Errorf("Name() = %s, want groq", groq.Name())
	}
	if groq.config.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("BaseURL = %s, trailing slash not trimmed", groq.config.BaseURL)
	}
}

func TestOpenAIAdapter_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header, got %s", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req OpenAIChatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Failed to unmarshal request: %v", err)
		}
		if req.Model != "llama-3.3-70b-versatile" {
			t.Errorf("Model = %s", req.Model)
		}
		if req.Temperature != 0.2 {
			t.Errorf("Temperature = %v, want 0.2", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		resp := OpenAIChatResponse{
			ID:      "chatcmpl-123",
			Created: 1677652288,
			Model:   "llama-3.3-70b-versatile",
			Choices: []OpenAIChoice{{
				Message:      OpenAIMessage{Role: "assistant", Content: "The chair is 45 cm wide [Catalog, Page 3]."},
				FinishReason: "stop",
			}},
			Usage: OpenAIUsage{PromptTokens: 10, CompletionTokens: 12, TotalTokens: 22},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{Name: "groq", APIKey: "test-key", BaseURL: server.URL})

	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model: "llama-3.3-70b-versatile",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "rules"},
			{Role: providers.RoleUser, Content: "How wide is the chair?"},
		},
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if resp.Provider != "groq" {
		t.Errorf("Provider = %s, want groq", resp.Provider)
	}
	if resp.Usage.TotalTokens != 22 {
		t.Errorf("TotalTokens = %d, want 22", resp.Usage.TotalTokens)
	}
	text, err := resp.Text()
	if err != nil || text != "The chair is 45 cm wide [Catalog, Page 3]." {
		t.Errorf("Text() = %q, %v", text, err)
	}
}

func TestOpenAIAdapter_ChatCompletion_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantCode      string
	}{
		{
			name:     "invalid request",
			status:   http.StatusBadRequest,
			body:     `{"error":{"message":"bad model","type":"invalid_request_error"}}`,
			wantCode: "invalid_request_error",
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"message":"slow down","type":"rate_limit_error"}}`,
			wantRetryable: true,
			wantCode:      "rate_limit_error",
		},
		{
			name:          "unparseable server error",
			status:        http.StatusBadGateway,
			body:          `upstream down`,
			wantRetryable: true,
			wantCode:      "UNKNOWN_ERROR",
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			body:     `{"id":"x","choices":[]}`,
			wantCode: "EMPTY_RESPONSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewOpenAIAdapter(providers.ProviderConfig{BaseURL: server.URL})
			_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{Model: "m"})
			if err == nil {
				t.Fatal("expected error")
			}

			var provErr *providers.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", provErr.Code, tt.wantCode)
			}
			if provErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", provErr.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestOpenAIAdapter_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if !NewOpenAIAdapter(providers.ProviderConfig{BaseURL: server.URL}).IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}

	server.Close()
	if NewOpenAIAdapter(providers.ProviderConfig{BaseURL: server.URL}).IsAvailable(context.Background()) {
		t.Error("expected closed server to be unavailable")
	}
}
