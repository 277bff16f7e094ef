package summary_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dfarias/incident-insights/dataset"
	"github.com/dfarias/incident-insights/summary"
)

func sampleView() dataset.View {
	day := func(d int) time.Time {
		return time.Date(2022, time.May, d, 0, 0, 0, 0, time.UTC)
	}
	return dataset.View{
		{Date: day(1), Hour: 18, Street: "Rua A", Latitude: -23.5, Longitude: -46.6, HasCoords: true},
		{Date: day(1), Hour: 18, Street: "Rua A", Latitude: -23.7, Longitude: -46.8, HasCoords: true},
		{Date: day(2), Hour: 9, Street: "Rua B"},
	}
}

func TestBuildSynopsisContents(t *testing.T) {
	text, err := summary.BuildSynopsis(sampleView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Total de registros: 3",
		"Média diária: 1.5 sinistros",
		"Horário com mais ocorrências: 18h",
		"Local com mais registros: Rua A",
		"Coordenadas médias: Latitude -23.6000, Longitude -46.7000",
		"Análises Disponíveis:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("synopsis missing %q", want)
		}
	}
}

func TestBuildSynopsisDeterministic(t *testing.T) {
	first, err := summary.BuildSynopsis(sampleView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := summary.BuildSynopsis(sampleView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("synopsis not deterministic across identical views")
	}
}

func TestBuildSynopsisAllHoursUnknown(t *testing.T) {
	day := time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)
	view := dataset.View{
		{Date: day, Hour: dataset.HourUnknown, Street: "Rua A"},
		{Date: day, Hour: dataset.HourUnknown, Street: "Rua A"},
	}

	text, err := summary.BuildSynopsis(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Horário com mais ocorrências: indisponível") {
		t.Fatal("synopsis should mark the modal hour unavailable")
	}
	if strings.Contains(text, "ocorrências: 0h") {
		t.Fatal("synopsis must not claim 0h when no hour is known")
	}
}

func TestBuildSynopsisEmptyView(t *testing.T) {
	_, err := summary.BuildSynopsis(nil)
	if !errors.Is(err, summary.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}
