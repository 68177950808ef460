package records

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/repo"
)

// VehicleOwnerQuery reads every vehicle with its owner. Ordering by node id
// keeps the source order stable between loads.
const VehicleOwnerQuery = `MATCH (v:Vehicle)-[:OWNED_BY]->(o:Owner)
RETURN v.plate AS plate, v.make AS make, v.model AS model, v.color AS color,
       o.name AS owner_name, o.phone AS owner_phone
ORDER BY id(v)`

// Neo4jSource reads records from a graph of (:Vehicle)-[:OWNED_BY]->(:Owner).
type Neo4jSource struct {
	reader repo.Lister[domain.VehicleRecord]
}

// NewNeo4jSource creates a source backed by driver.
func NewNeo4jSource(driver neo4j.DriverWithContext, opts ...repo.Neo4jOption[domain.VehicleRecord]) *Neo4jSource {
	return &Neo4jSource{reader: repo.NewNeo4jReader(driver, VehicleOwnerQuery, vehicleFromRecord, opts...)}
}

// Records returns every vehicle/owner pair.
func (s *Neo4jSource) Records(ctx context.Context) ([]domain.VehicleRecord, error) {
	recs, err := s.reader.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("records: neo4j: %w", err)
	}
	return recs, nil
}

func vehicleFromRecord(rec *neo4j.Record) (domain.VehicleRecord, error) {
	plate, err := stringField(rec, "plate")
	if err != nil {
		return domain.VehicleRecord{}, err
	}
	phone, err := stringField(rec, "owner_phone")
	if err != nil {
		return domain.VehicleRecord{}, err
	}
	v := domain.VehicleRecord{
		Plate: plate,
		Owner: domain.OwnerContact{Phone: phone},
	}
	v.Make, _ = stringField(rec, "make")
	v.Model, _ = stringField(rec, "model")
	v.Color, _ = stringField(rec, "color")
	v.Owner.Name, _ = stringField(rec, "owner_name")
	return v, nil
}

func stringField(rec *neo4j.Record, key string) (string, error) {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, raw)
	}
	return s, nil
}
