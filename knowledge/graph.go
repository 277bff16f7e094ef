// Package knowledge maintains the street graph: per-street vehicle
// involvement totals mirrored into Neo4j for answer enrichment.
package knowledge

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type StreetSnapshot struct {
	Corridor string
	Streets  []StreetTotals
}

type StreetTotals struct {
	Name      string
	Total     int
	ByVehicle map[string]int
}

// SyncStreets rebuilds the street graph from the current aggregate. Streets
// dropped from the aggregate are removed along with their relations.
func SyncStreets(ctx context.Context, driver neo4j.DriverWithContext, snapshot StreetSnapshot) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	names := make([]string, 0, len(snapshot.Streets))
	for _, street := range snapshot.Streets {
		names = append(names, street.Name)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (c:Corridor {name: $corridor})
			SET c.updated_at = datetime()
		`, map[string]any{"corridor": snapshot.Corridor}); err != nil {
			return nil, fmt.Errorf("upsert corridor node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (s:Street)-[:ON]->(c:Corridor {name: $corridor})
			WHERE NOT s.name IN $names
			DETACH DELETE s
		`, map[string]any{"corridor": snapshot.Corridor, "names": names}); err != nil {
			return nil, fmt.Errorf("remove stale street nodes: %w", err)
		}

		for _, street := range snapshot.Streets {
			if street.Name == "" {
				continue
			}
			if _, err := tx.Run(ctx, `
				MATCH (c:Corridor {name: $corridor})
				MERGE (s:Street {name: $name})
				SET s.total = $total,
				    s.updated_at = datetime()
				MERGE (s)-[:ON]->(c)
			`, map[string]any{
				"corridor": snapshot.Corridor,
				"name":     street.Name,
				"total":    street.Total,
			}); err != nil {
				return nil, fmt.Errorf("upsert street node: %w", err)
			}

			if _, err := tx.Run(ctx, `
				MATCH (s:Street {name: $name})-[r:INVOLVES]->(:VehicleType)
				DELETE r
			`, map[string]any{"name": street.Name}); err != nil {
				return nil, fmt.Errorf("clear vehicle relations: %w", err)
			}

			for vehicle, count := range street.ByVehicle {
				if count == 0 {
					continue
				}
				if _, err := tx.Run(ctx, `
					MATCH (s:Street {name: $name})
					MERGE (v:VehicleType {name: $vehicle})
					MERGE (s)-[r:INVOLVES]->(v)
					SET r.count = $count
				`, map[string]any{
					"name":    street.Name,
					"vehicle": vehicle,
					"count":   count,
				}); err != nil {
					return nil, fmt.Errorf("upsert vehicle relation: %w", err)
				}
			}
		}

		return nil, nil
	})

	if err == nil {
		if _, cleanupErr := session.Run(ctx, `
			MATCH (v:VehicleType)
			WHERE NOT (v)<-[:INVOLVES]-(:Street)
			DELETE v
		`, nil); cleanupErr != nil {
			err = cleanupErr
		}
	}

	return err
}
