package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/dfarias/incident-insights/config"
)

func TestBuildSessionEmptyWindow(t *testing.T) {
	header := "Data do Sinistro,Hora do Sinistro,Logradouro,KM,latitude,longitude," +
		"Automóvel envolvido,Motocicleta envolvida,Bicicleta envolvida,Caminhão envolvido," +
		"Ônibus envolvido,Outros veículos envolvidos,Veículo envolvido não disponível\n"

	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	cfg := config.Config{
		DataPath:  path,
		YearStart: 2021,
		YearEnd:   2023,
	}
	logger := log.New(io.Discard, "", 0)

	sess, err := buildSession(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("an empty window must not fail the session: %v", err)
	}
	defer sess.cleanup(context.Background())

	if len(sess.view) != 0 {
		t.Fatalf("expected an empty view, got %d records", len(sess.view))
	}
	if sess.engine != nil || sess.index != nil {
		t.Fatal("empty sessions carry no index or engine")
	}
}

func TestBuildSessionUnreadableData(t *testing.T) {
	cfg := config.Config{
		DataPath:  filepath.Join(t.TempDir(), "missing.csv"),
		YearStart: 2021,
		YearEnd:   2023,
	}
	logger := log.New(io.Discard, "", 0)

	if _, err := buildSession(context.Background(), cfg, logger); err == nil {
		t.Fatal("an unreadable data file is fatal and must error")
	}
}
