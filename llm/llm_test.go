package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dfarias/incident-insights/config"
	"github.com/dfarias/incident-insights/llm"
)

func TestNewClientProviders(t *testing.T) {
	cfg := config.Config{}
	cfg.LLM.Provider = config.ProviderOllama
	if _, err := llm.NewClient(cfg); err != nil {
		t.Fatalf("ollama provider: %v", err)
	}

	cfg.LLM.Provider = config.ProviderOpenAI
	if _, err := llm.NewClient(cfg); err == nil {
		t.Fatal("openai provider without an API key must fail")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if _, err := llm.NewClient(cfg); err != nil {
		t.Fatalf("openai provider with key: %v", err)
	}

	cfg.LLM.Provider = "unknown"
	if _, err := llm.NewClient(cfg); err == nil {
		t.Fatal("unknown provider must fail")
	}
}

func TestOllamaClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Options struct {
				Temperature float32 `json:"temperature"`
			} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if req.Options.Temperature != 0.3 {
			t.Errorf("unexpected temperature: %f", req.Options.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "resposta"},
			"done":    true,
		})
	}))
	defer server.Close()

	client := llm.NewOllamaClient(llm.Options{
		OllamaHost:  server.URL,
		Model:       "llama3",
		Temperature: 0.3,
	})

	answer, err := client.Generate(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "instruções"},
		{Role: llm.RoleUser, Content: "pergunta"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "resposta" {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestOllamaClientGenerateErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := llm.NewOllamaClient(llm.Options{OllamaHost: server.URL, Model: "llama3"})

	if _, err := client.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "oi"}}); err == nil {
		t.Fatal("expected error from failing server")
	}
}

func TestOllamaClientInBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "context canceled"})
	}))
	defer server.Close()

	client := llm.NewOllamaClient(llm.Options{OllamaHost: server.URL, Model: "llama3"})

	if _, err := client.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "oi"}}); err == nil {
		t.Fatal("expected in-band error to surface")
	}
}
