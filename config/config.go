package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"
)

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider    string
	Model       string
	Temperature float32
}

type Config struct {
	DataPath  string
	YearStart int
	YearEnd   int

	Embeddings EmbeddingConfig
	LLM        LLMConfig

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaHost    string

	// Optional backends: empty values keep the in-memory vector store and
	// disable the street graph.
	PostgresDSN string
	Neo4jURI    string
	Neo4jUser   string
	Neo4jPass   string

	HTTPAddr       string
	RetrievalLimit int
	ChunkSize      int
	ChunkOverlap   int
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		DataPath:  getEnv("INCIDENT_DATA_PATH", "data/raposo_nao_fatal.csv"),
		YearStart: getEnvInt("INCIDENT_YEAR_START", 2021),
		YearEnd:   getEnvInt("INCIDENT_YEAR_END", 2023),
		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: 0.3,
		},
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		Neo4jURI:       os.Getenv("NEO4J_URI"),
		Neo4jUser:      getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:      os.Getenv("NEO4J_PASSWORD"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RetrievalLimit: getEnvInt("RETRIEVAL_LIMIT", 4),
		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
