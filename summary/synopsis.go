// Package summary renders the statistical synopsis of the filtered dataset.
// The synopsis is the retrieval corpus for the chat engine.
package summary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dfarias/incident-insights/dataset"
)

// ErrEmptyDataset is returned when the view has no rows; modal and mean
// statistics are undefined in that case.
var ErrEmptyDataset = errors.New("summary: dataset view is empty")

// BuildSynopsis produces the fixed-template synopsis text for the view.
// Deterministic given the same view.
func BuildSynopsis(view dataset.View) (string, error) {
	if len(view) == 0 {
		return "", ErrEmptyDataset
	}

	total := len(view)
	meanDaily := float64(total) / float64(distinctDates(view))
	modalHour := modalHour(view)
	modalStreet := modalStreet(view)
	meanLat, meanLon := meanCoordinates(view)

	var sb strings.Builder
	sb.WriteString("Análise do Dataset de Sinistros (2021-2023):\n")
	sb.WriteString("\n")
	sb.WriteString("Estatísticas Gerais:\n")
	sb.WriteString(fmt.Sprintf("- Total de registros: %d\n", total))
	sb.WriteString(fmt.Sprintf("- Média diária: %.1f sinistros\n", meanDaily))
	if modalHour == dataset.HourUnknown {
		sb.WriteString("- Horário com mais ocorrências: indisponível\n")
	} else {
		sb.WriteString(fmt.Sprintf("- Horário com mais ocorrências: %dh\n", modalHour))
	}
	sb.WriteString(fmt.Sprintf("- Local com mais registros: %s\n", modalStreet))
	sb.WriteString(fmt.Sprintf("- Coordenadas médias: Latitude %.4f, Longitude %.4f\n", meanLat, meanLon))
	sb.WriteString("\n")
	sb.WriteString("Análises Disponíveis:\n")
	sb.WriteString("1. Temporal:\n")
	sb.WriteString("- Evolução anual dos sinistros\n")
	sb.WriteString("- Distribuição mensal\n")
	sb.WriteString("- Padrões sazonais\n")
	sb.WriteString("\n")
	sb.WriteString("2. Horária:\n")
	sb.WriteString("- Horários mais críticos\n")
	sb.WriteString("- Comparação dia vs noite\n")
	sb.WriteString("- Padrão dias úteis vs fins de semana\n")
	sb.WriteString("\n")
	sb.WriteString("3. Local e Espacial:\n")
	sb.WriteString("- Ranking de locais mais críticos\n")
	sb.WriteString("- KMs com mais ocorrências\n")
	sb.WriteString("- Concentração geográfica\n")
	sb.WriteString("- Mapas de calor por região\n")
	sb.WriteString("- Distribuição espacial por tipo de veículo\n")
	sb.WriteString("\n")
	sb.WriteString("4. Veículos:\n")
	sb.WriteString("- Tipos mais envolvidos\n")
	sb.WriteString("- Comparativo entre categorias\n")
	sb.WriteString("- Proporções e distribuições\n")

	return sb.String(), nil
}

func distinctDates(view dataset.View) int {
	seen := make(map[string]struct{}, len(view))
	for _, record := range view {
		seen[record.Date.Format("2006-01-02")] = struct{}{}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

// modalHour returns the most frequent known hour, or HourUnknown when no
// record carries one; ties resolve to the earliest hour.
func modalHour(view dataset.View) int {
	counts := make(map[int]int)
	for _, record := range view {
		if record.Hour == dataset.HourUnknown {
			continue
		}
		counts[record.Hour]++
	}
	if len(counts) == 0 {
		return dataset.HourUnknown
	}

	best, bestCount := 0, -1
	for hour := 0; hour < 24; hour++ {
		if counts[hour] > bestCount {
			best, bestCount = hour, counts[hour]
		}
	}
	return best
}

// modalStreet returns the most frequent street name; ties resolve
// alphabetically so the synopsis stays deterministic.
func modalStreet(view dataset.View) string {
	counts := make(map[string]int)
	for _, record := range view {
		if record.Street == "" {
			continue
		}
		counts[record.Street]++
	}

	streets := make([]string, 0, len(counts))
	for street := range counts {
		streets = append(streets, street)
	}
	sort.Strings(streets)

	best, bestCount := "", -1
	for _, street := range streets {
		if counts[street] > bestCount {
			best, bestCount = street, counts[street]
		}
	}
	return best
}

func meanCoordinates(view dataset.View) (float64, float64) {
	var latSum, lonSum float64
	var n int
	for _, record := range view {
		if !record.HasCoords {
			continue
		}
		latSum += record.Latitude
		lonSum += record.Longitude
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return latSum / float64(n), lonSum / float64(n)
}
