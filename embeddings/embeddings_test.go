package embeddings_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dfarias/incident-insights/config"
	"github.com/dfarias/incident-insights/embeddings"
)

func TestNewEmbedderProviders(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = config.ProviderOllama
	if _, err := embeddings.NewEmbedder(cfg); err != nil {
		t.Fatalf("ollama provider: %v", err)
	}

	cfg.Embeddings.Provider = config.ProviderLocal
	if _, err := embeddings.NewEmbedder(cfg); err != nil {
		t.Fatalf("local provider: %v", err)
	}

	cfg.Embeddings.Provider = config.ProviderOpenAI
	if _, err := embeddings.NewEmbedder(cfg); err == nil {
		t.Fatal("openai provider without an API key must fail")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if _, err := embeddings.NewEmbedder(cfg); err != nil {
		t.Fatalf("openai provider with key: %v", err)
	}

	cfg.Embeddings.Provider = "unknown"
	if _, err := embeddings.NewEmbedder(cfg); err == nil {
		t.Fatal("unknown provider must fail")
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	embedder := embeddings.NewLocalEmbedder(64)

	vectors, err := embedder.Embed(context.Background(), []string{
		"Total de registros: 1000",
		"Total de registros: 1000",
		"Horário com mais ocorrências",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}

	for i, vec := range vectors {
		if len(vec) != 64 {
			t.Fatalf("vector %d has dimension %d, want 64", i, len(vec))
		}
	}

	for i := range vectors[0] {
		if vectors[0][i] != vectors[1][i] {
			t.Fatal("identical texts must embed identically")
		}
	}

	same := true
	for i := range vectors[0] {
		if vectors[0][i] != vectors[2][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts should not share a vector")
	}
}

func TestLocalEmbedderNormalized(t *testing.T) {
	embedder := embeddings.NewLocalEmbedder(0)

	vectors, err := embedder.Embed(context.Background(), []string{"média diária de sinistros"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-4 {
		t.Fatalf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Dimensions != 3 {
			t.Errorf("configured dimension not requested, got %d", req.Dimensions)
		}

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{0.1, 0.2, 0.3},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	}))
	defer server.Close()

	embedder := embeddings.NewOpenAIEmbedder(embeddings.Options{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: server.URL,
		Model:         "text-embedding-3-small",
		Dimension:     3,
	})

	vectors, err := embedder.Embed(context.Background(), []string{"primeiro", "segundo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vector shape: %d x %d", len(vectors), len(vectors[0]))
	}
}

func TestOpenAIEmbedderVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{0.1}},
			},
		})
	}))
	defer server.Close()

	embedder := embeddings.NewOpenAIEmbedder(embeddings.Options{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: server.URL,
		Model:         "text-embedding-3-small",
	})

	if _, err := embedder.Embed(context.Background(), []string{"um", "dois"}); err == nil {
		t.Fatal("expected error when the API returns fewer vectors than inputs")
	}
}

func TestOpenAIEmbedderNoInput(t *testing.T) {
	embedder := embeddings.NewOpenAIEmbedder(embeddings.Options{OpenAIAPIKey: "sk-test"})

	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected no vectors without input, got %d", len(vectors))
	}
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	embedder := embeddings.NewOllamaEmbedder(embeddings.Options{
		OllamaHost: server.URL,
		Model:      "nomic-embed-text",
	})

	vectors, err := embedder.Embed(context.Background(), []string{"primeiro", "segundo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vector shape: %d x %d", len(vectors), len(vectors[0]))
	}
}

func TestOllamaEmbedderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := embeddings.NewOllamaEmbedder(embeddings.Options{OllamaHost: server.URL, Model: "missing"})

	_, err := embedder.Embed(context.Background(), []string{"texto"})
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "status") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestOllamaEmbedderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2}})
	}))
	defer server.Close()

	embedder := embeddings.NewOllamaEmbedder(embeddings.Options{
		OllamaHost: server.URL,
		Model:      "nomic-embed-text",
		Dimension:  768,
	})

	if _, err := embedder.Embed(context.Background(), []string{"texto"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
