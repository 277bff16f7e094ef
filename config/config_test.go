package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"INCIDENT_DATA_PATH", "INCIDENT_YEAR_START", "INCIDENT_YEAR_END",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSION",
		"LLM_PROVIDER", "LLM_MODEL", "HTTP_ADDR",
		"RETRIEVAL_LIMIT", "CHUNK_SIZE", "CHUNK_OVERLAP",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.DataPath != "data/raposo_nao_fatal.csv" {
		t.Errorf("unexpected data path: %s", cfg.DataPath)
	}
	if cfg.YearStart != 2021 || cfg.YearEnd != 2023 {
		t.Errorf("unexpected year window: %d-%d", cfg.YearStart, cfg.YearEnd)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("unexpected temperature: %f", cfg.LLM.Temperature)
	}
	if cfg.RetrievalLimit != 4 {
		t.Errorf("unexpected retrieval limit: %d", cfg.RetrievalLimit)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("unexpected chunking: size %d, overlap %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr: %s", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INCIDENT_YEAR_START", "2019")
	t.Setenv("EMBEDDING_PROVIDER", ProviderLocal)
	t.Setenv("RETRIEVAL_LIMIT", "8")
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Load()

	if cfg.YearStart != 2019 {
		t.Errorf("year override ignored: %d", cfg.YearStart)
	}
	if cfg.Embeddings.Provider != ProviderLocal {
		t.Errorf("provider override ignored: %s", cfg.Embeddings.Provider)
	}
	if cfg.RetrievalLimit != 8 {
		t.Errorf("limit override ignored: %d", cfg.RetrievalLimit)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("malformed int should fall back, got %d", cfg.ChunkSize)
	}
}
