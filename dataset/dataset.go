// Package dataset loads the incident spreadsheet export and exposes the
// typed views the dashboard and the chat engine read from.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HourUnknown marks records whose time cell could not be parsed.
const HourUnknown = -1

const topStreetLimit = 10

// Column names as they appear in the source table.
const (
	ColDate      = "Data do Sinistro"
	ColHour      = "Hora do Sinistro"
	ColStreet    = "Logradouro"
	ColKilometer = "KM"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"

	ColMotorcycle = "Motocicleta envolvida"
)

// VehicleColumns lists the vehicle-involvement indicator columns.
var VehicleColumns = []string{
	"Automóvel envolvido",
	ColMotorcycle,
	"Bicicleta envolvida",
	"Caminhão envolvido",
	"Ônibus envolvido",
	"Outros veículos envolvidos",
	"Veículo envolvido não disponível",
}

type IncidentRecord struct {
	Date      time.Time
	Hour      int
	Street    string
	Kilometer string
	Latitude  float64
	Longitude float64
	HasCoords bool
	Vehicles  map[string]int
}

// Dataset holds every record of the source table. Immutable after Load.
type Dataset struct {
	Records []IncidentRecord
}

// View is a date-windowed subset of the dataset.
type View []IncidentRecord

type StreetVehicleTotals struct {
	Street    string
	ByVehicle map[string]int
	Total     int
}

// LoadError reports an unreadable source table or a missing required column.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load incident data %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

var spaceRun = regexp.MustCompile(`\s+`)

// Load reads the incident CSV at path. Malformed date, hour, or coordinate
// cells degrade to missing markers; a missing required column fails the load.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("empty table")}
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	records := make([]IncidentRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, parseRecord(row, columns))
	}

	return &Dataset{Records: records}, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}

	required := append([]string{ColDate, ColHour, ColStreet, ColKilometer, ColLatitude, ColLongitude}, VehicleColumns...)
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	return columns, nil
}

// normalizeHeader collapses whitespace runs; the source table carries a
// double space inside one of the vehicle column names.
func normalizeHeader(name string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
}

func parseRecord(row []string, columns map[string]int) IncidentRecord {
	record := IncidentRecord{
		Hour:      parseHour(cell(row, columns, ColHour)),
		Street:    strings.TrimSpace(cell(row, columns, ColStreet)),
		Kilometer: strings.TrimSpace(cell(row, columns, ColKilometer)),
		Vehicles:  make(map[string]int, len(VehicleColumns)),
	}

	if parsed, ok := parseDate(cell(row, columns, ColDate)); ok {
		record.Date = parsed
	}

	lat, latOK := parseCoordinate(cell(row, columns, ColLatitude))
	lon, lonOK := parseCoordinate(cell(row, columns, ColLongitude))
	if latOK && lonOK {
		record.Latitude = lat
		record.Longitude = lon
		record.HasCoords = true
	}

	for _, name := range VehicleColumns {
		record.Vehicles[name] = parseCount(cell(row, columns, name))
	}

	return record
}

func cell(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func parseHour(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return HourUnknown
	}
	parsed, err := time.Parse("15:04:05", value)
	if err != nil {
		return HourUnknown
	}
	return parsed.Hour()
}

// parseCoordinate accepts comma decimal separators, the way the source table
// encodes latitude and longitude.
func parseCoordinate(value string) (float64, bool) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func parseCount(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}

// FilterByYearRange returns the records whose incident year falls inside
// [yearStart, yearEnd]. Records without a parsed date are excluded.
func FilterByYearRange(ds *Dataset, yearStart, yearEnd int) View {
	view := make(View, 0, len(ds.Records))
	for _, record := range ds.Records {
		if record.Date.IsZero() {
			continue
		}
		year := record.Date.Year()
		if year >= yearStart && year <= yearEnd {
			view = append(view, record)
		}
	}
	return view
}

// AggregateByStreet sums the given vehicle indicators per street, ranks the
// streets by total descending, and keeps the top ten.
func AggregateByStreet(view View, vehicleTypes []string) []StreetVehicleTotals {
	grouped := make(map[string]*StreetVehicleTotals)
	for _, record := range view {
		if record.Street == "" {
			continue
		}
		totals, ok := grouped[record.Street]
		if !ok {
			totals = &StreetVehicleTotals{
				Street:    record.Street,
				ByVehicle: make(map[string]int, len(vehicleTypes)),
			}
			grouped[record.Street] = totals
		}
		for _, name := range vehicleTypes {
			count := record.Vehicles[name]
			totals.ByVehicle[name] += count
			totals.Total += count
		}
	}

	ranked := make([]StreetVehicleTotals, 0, len(grouped))
	for _, totals := range grouped {
		ranked = append(ranked, *totals)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Street < ranked[j].Street
	})

	if len(ranked) > topStreetLimit {
		ranked = ranked[:topStreetLimit]
	}
	return ranked
}
