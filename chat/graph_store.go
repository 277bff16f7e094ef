package chat

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphStore interface {
	StreetInsights(ctx context.Context, streets []string) (map[string]StreetInsight, error)
}

type Neo4jGraphStore struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraphStore(driver neo4j.DriverWithContext) *Neo4jGraphStore {
	return &Neo4jGraphStore{driver: driver}
}

func (s *Neo4jGraphStore) StreetInsights(ctx context.Context, streets []string) (map[string]StreetInsight, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}
	if len(streets) == 0 {
		return map[string]StreetInsight{}, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (s:Street)
		WHERE s.name IN $names
		OPTIONAL MATCH (s)-[r:INVOLVES]->(v:VehicleType)
		WITH s, collect({vehicle: v.name, count: r.count}) AS rows
		RETURN s.name AS name, s.total AS total, rows
	`, map[string]any{"names": streets})
	if err != nil {
		return nil, fmt.Errorf("run neo4j insights query: %w", err)
	}

	insights := make(map[string]StreetInsight, len(streets))
	for result.Next(ctx) {
		record := result.Record()
		nameVal, _ := record.Get("name")
		totalVal, _ := record.Get("total")
		rowsVal, _ := record.Get("rows")

		name, ok := nameVal.(string)
		if !ok {
			continue
		}

		total, _ := toInt(totalVal)
		insights[name] = StreetInsight{
			Total:     total,
			ByVehicle: convertVehicleRows(rowsVal),
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("neo4j insights result error: %w", err)
	}

	return insights, nil
}

var _ GraphStore = (*Neo4jGraphStore)(nil)

func convertVehicleRows(value any) map[string]int {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}

	byVehicle := make(map[string]int, len(raw))
	for _, item := range raw {
		data, ok := item.(map[string]any)
		if !ok {
			continue
		}
		vehicle, _ := data["vehicle"].(string)
		count, _ := toInt(data["count"])
		if vehicle == "" || count == 0 {
			continue
		}
		byVehicle[vehicle] = count
	}

	if len(byVehicle) == 0 {
		return nil
	}
	return byVehicle
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
