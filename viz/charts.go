package viz

import (
	"fmt"
	"sort"

	"github.com/dfarias/incident-insights/dataset"
)

type ChartPoint struct {
	Label string
	Value int
}

// Chart is the data payload for one dashboard chart; rendering is the
// consumer's concern.
type Chart struct {
	Category Category
	Title    string
	XLabel   string
	YLabel   string
	Points   []ChartPoint
}

// BuildChart dispatches to the builder for the given chart category.
func BuildChart(view dataset.View, category Category) (Chart, error) {
	switch category {
	case CategoryTemporal:
		return TemporalChart(view), nil
	case CategoryHourly:
		return HourlyChart(view), nil
	case CategoryLocal:
		return LocalChart(view), nil
	case CategoryVehicles:
		return VehiclesChart(view, dataset.VehicleColumns), nil
	default:
		return Chart{}, fmt.Errorf("no chart builder for category %q", category)
	}
}

// TemporalChart counts incidents per year, years ascending.
func TemporalChart(view dataset.View) Chart {
	counts := make(map[int]int)
	for _, record := range view {
		counts[record.Date.Year()]++
	}

	years := make([]int, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Ints(years)

	points := make([]ChartPoint, 0, len(years))
	for _, year := range years {
		points = append(points, ChartPoint{Label: fmt.Sprintf("%d", year), Value: counts[year]})
	}

	return Chart{
		Category: CategoryTemporal,
		Title:    "Quantidade de Sinistros por Ano",
		XLabel:   "Ano",
		YLabel:   "Quantidade de Sinistros",
		Points:   points,
	}
}

// HourlyChart counts incidents per hour 0-23; records with an unknown hour
// are left out.
func HourlyChart(view dataset.View) Chart {
	counts := make(map[int]int)
	for _, record := range view {
		if record.Hour == dataset.HourUnknown {
			continue
		}
		counts[record.Hour]++
	}

	points := make([]ChartPoint, 0, 24)
	for hour := 0; hour < 24; hour++ {
		points = append(points, ChartPoint{Label: fmt.Sprintf("%02dh", hour), Value: counts[hour]})
	}

	return Chart{
		Category: CategoryHourly,
		Title:    "Distribuição de Sinistros por Hora do Dia",
		XLabel:   "Hora do Dia",
		YLabel:   "Quantidade",
		Points:   points,
	}
}

// LocalChart ranks the ten streets with the most incidents.
func LocalChart(view dataset.View) Chart {
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
	sort.Slice(streets, func(i, j int) bool {
		if counts[streets[i]] != counts[streets[j]] {
			return counts[streets[i]] > counts[streets[j]]
		}
		return streets[i] < streets[j]
	})

	if len(streets) > 10 {
		streets = streets[:10]
	}

	points := make([]ChartPoint, 0, len(streets))
	for _, street := range streets {
		points = append(points, ChartPoint{Label: street, Value: counts[street]})
	}

	return Chart{
		Category: CategoryLocal,
		Title:    "Locais com Mais Sinistros",
		XLabel:   "Quantidade",
		YLabel:   "Logradouro",
		Points:   points,
	}
}

// VehiclesChart totals the vehicle-involvement indicators, ascending so the
// most frequent type renders last the way the dashboard bars do.
func VehiclesChart(view dataset.View, vehicleTypes []string) Chart {
	totals := make(map[string]int, len(vehicleTypes))
	for _, record := range view {
		for _, name := range vehicleTypes {
			totals[name] += record.Vehicles[name]
		}
	}

	ordered := append([]string(nil), vehicleTypes...)
	sort.Slice(ordered, func(i, j int) bool {
		if totals[ordered[i]] != totals[ordered[j]] {
			return totals[ordered[i]] < totals[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	points := make([]ChartPoint, 0, len(ordered))
	for _, name := range ordered {
		points = append(points, ChartPoint{Label: name, Value: totals[name]})
	}

	return Chart{
		Category: CategoryVehicles,
		Title:    "Tipos de Veículos Envolvidos",
		XLabel:   "Quantidade",
		YLabel:   "Tipo de Veículo",
		Points:   points,
	}
}
