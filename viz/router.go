// Package viz routes chat questions to dashboard visualizations and builds
// the chart and heat-map payloads the UI renders.
package viz

import "strings"

type Category string

const (
	CategoryMap      Category = "map"
	CategoryHourly   Category = "hourly"
	CategoryLocal    Category = "local"
	CategoryTemporal Category = "temporal"
	CategoryVehicles Category = "vehicles"
)

// Request is the routing decision for one question. The zero value means no
// visualization. Motorcycle is meaningful only for the map category.
type Request struct {
	Category   Category
	Motorcycle bool
}

func (r Request) IsZero() bool { return r.Category == "" }

// routingRules is evaluated in order; the first category with a matching
// keyword wins. Geographic questions take priority over the narrower
// hour/street/year/vehicle ones, matching the dashboard's dispatch.
var routingRules = []struct {
	category Category
	keywords []string
}{
	{CategoryMap, []string{
		"mapa", "map", "heatmap", "região", "regiao", "área", "area",
		"localização", "localizacao", "geográfico", "geografico", "geographic",
		"concentração", "concentracao",
	}},
	{CategoryHourly, []string{
		"hora", "horário", "horario", "período", "periodo", "hour", "period",
	}},
	{CategoryLocal, []string{
		"local", "logradouro", "lugar", "street",
	}},
	{CategoryTemporal, []string{
		"ano", "anual", "evolução", "evolucao", "year", "evolution",
	}},
	{CategoryVehicles, []string{
		"veículo", "veiculo", "carro", "moto", "vehicle", "car",
	}},
}

var motorcycleKeywords = []string{"moto", "motorcycle"}

// Route decides which visualization, if any, accompanies the question.
// Pure function of the question text and the fixed keyword tables.
func Route(question string) Request {
	text := strings.ToLower(question)

	for _, rule := range routingRules {
		if !containsAny(text, rule.keywords) {
			continue
		}
		req := Request{Category: rule.category}
		if rule.category == CategoryMap {
			req.Motorcycle = containsAny(text, motorcycleKeywords)
		}
		return req
	}

	return Request{}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
