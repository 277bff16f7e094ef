package index_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/dfarias/incident-insights/dataset"
	"github.com/dfarias/incident-insights/embeddings"
	"github.com/dfarias/incident-insights/index"
	"github.com/dfarias/incident-insights/summary"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testView(total int) dataset.View {
	view := make(dataset.View, 0, total)
	for i := 0; i < total; i++ {
		view = append(view, dataset.IncidentRecord{
			Date:      time.Date(2022, time.January, 1+i%28, 0, 0, 0, 0, time.UTC),
			Hour:      i % 24,
			Street:    fmt.Sprintf("Rua %d", i%7),
			Latitude:  -23.5,
			Longitude: -46.6,
			HasCoords: true,
		})
	}
	return view
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestBuilderMemoizesByContent(t *testing.T) {
	builder := index.NewBuilder(index.NewMemoryStore(), embeddings.NewLocalEmbedder(0), testLogger(), 200, 40)

	first, err := builder.Build(context.Background(), testView(50))
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := builder.Build(context.Background(), testView(50))
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first != second {
		t.Fatal("identical views should share one index")
	}

	other, err := builder.Build(context.Background(), testView(51))
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	if other == first {
		t.Fatal("a different view must not reuse the cached index")
	}
	if other.ID() == first.ID() {
		t.Fatal("different synopses must have different fingerprints")
	}
}

func TestBuildAndSearch(t *testing.T) {
	builder := index.NewBuilder(index.NewMemoryStore(), embeddings.NewLocalEmbedder(0), testLogger(), 1000, 200)

	ix, err := builder.Build(context.Background(), testView(1000))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	chunks, err := ix.Search(context.Background(), "quantos registros no total", index.DefaultSearchLimit)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if len(chunks) > index.DefaultSearchLimit {
		t.Fatalf("expected at most %d chunks, got %d", index.DefaultSearchLimit, len(chunks))
	}

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, "Total de registros: 1000") {
			found = true
		}
	}
	if !found {
		t.Fatal("record-count fragment missing from retrieved context")
	}
}

func TestBuildRoundTripsSynopsis(t *testing.T) {
	view := testView(1000)
	builder := index.NewBuilder(index.NewMemoryStore(), embeddings.NewLocalEmbedder(0), testLogger(), 300, 60)

	ix, err := builder.Build(context.Background(), view)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	synopsis, err := summary.BuildSynopsis(view)
	if err != nil {
		t.Fatalf("synopsis: %v", err)
	}
	if ix.Synopsis() != synopsis {
		t.Fatal("index does not carry the exact synopsis text")
	}
	if ix.ID() != index.Fingerprint(synopsis) {
		t.Fatal("index id is not the synopsis fingerprint")
	}
}

func TestBuildEmptyView(t *testing.T) {
	builder := index.NewBuilder(index.NewMemoryStore(), embeddings.NewLocalEmbedder(0), testLogger(), 1000, 200)

	_, err := builder.Build(context.Background(), nil)
	if !errors.Is(err, summary.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestBuildEmbeddingFailure(t *testing.T) {
	builder := index.NewBuilder(index.NewMemoryStore(), failingEmbedder{}, testLogger(), 1000, 200)

	_, err := builder.Build(context.Background(), testView(10))
	var embErr *index.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected *index.EmbeddingError, got %v", err)
	}
}
