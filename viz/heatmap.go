package viz

import (
	"errors"

	"github.com/dfarias/incident-insights/dataset"
)

// ErrNoCoordinates is returned when no record in the view carries usable
// latitude/longitude values.
var ErrNoCoordinates = errors.New("viz: no records with coordinates")

type HeatPoint struct {
	Latitude  float64
	Longitude float64
	Weight    float64
}

// HeatMapLayer is the data payload for one heat-map view: a center, the
// layer tuning the dashboard used, and one weighted point per distinct
// coordinate.
type HeatMapLayer struct {
	Title           string
	CenterLatitude  float64
	CenterLongitude float64
	Zoom            int
	Radius          int
	Blur            int
	MinOpacity      float64
	Points          []HeatPoint
}

// BuildHeatMap builds the all-incidents layer, or the motorcycle-only layer
// when motorcycle is set.
func BuildHeatMap(view dataset.View, motorcycle bool) (HeatMapLayer, error) {
	if motorcycle {
		return MotorcycleHeatMap(view)
	}
	return IncidentHeatMap(view)
}

// IncidentHeatMap weights every geolocated incident.
func IncidentHeatMap(view dataset.View) (HeatMapLayer, error) {
	layer, err := buildLayer(view, func(record dataset.IncidentRecord) bool {
		return record.HasCoords
	})
	if err != nil {
		return HeatMapLayer{}, err
	}

	layer.Title = "Mapa de Calor - Todos os Sinistros"
	layer.Radius = 10
	layer.Blur = 15
	return layer, nil
}

// MotorcycleHeatMap keeps only incidents with a motorcycle involved.
func MotorcycleHeatMap(view dataset.View) (HeatMapLayer, error) {
	layer, err := buildLayer(view, func(record dataset.IncidentRecord) bool {
		return record.HasCoords && record.Vehicles[dataset.ColMotorcycle] > 0
	})
	if err != nil {
		return HeatMapLayer{}, err
	}

	layer.Title = "Mapa de Calor - Sinistros com Motocicletas"
	layer.Radius = 15
	layer.Blur = 20
	layer.MinOpacity = 0.5
	return layer, nil
}

func buildLayer(view dataset.View, keep func(dataset.IncidentRecord) bool) (HeatMapLayer, error) {
	type coordinate struct{ lat, lon float64 }

	counts := make(map[coordinate]int)
	order := make([]coordinate, 0)
	var latSum, lonSum float64
	var total int

	for _, record := range view {
		if !keep(record) {
			continue
		}
		key := coordinate{lat: record.Latitude, lon: record.Longitude}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
		latSum += record.Latitude
		lonSum += record.Longitude
		total++
	}

	if total == 0 {
		return HeatMapLayer{}, ErrNoCoordinates
	}

	points := make([]HeatPoint, 0, len(order))
	for _, key := range order {
		points = append(points, HeatPoint{
			Latitude:  key.lat,
			Longitude: key.lon,
			Weight:    float64(counts[key]),
		})
	}

	return HeatMapLayer{
		CenterLatitude:  latSum / float64(total),
		CenterLongitude: lonSum / float64(total),
		Zoom:            12,
		Points:          points,
	}, nil
}
