package records

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/repo"
)

type fakeResult struct {
	rows []*neo4j.Record
	pos  int
}

func (f *fakeResult) Next(context.Context) bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return f.rows[f.pos-1] }
func (f *fakeResult) Err() error            { return nil }

type fakeRunner struct{ result *fakeResult }

func (f *fakeRunner) Run(context.Context, string, map[string]any) (repo.Result, error) {
	return f.result, nil
}
func (f *fakeRunner) Close(context.Context) error { return nil }

var vehicleKeys = []string{"plate", "make", "model", "color", "owner_name", "owner_phone"}

func vehicleRow(values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: vehicleKeys, Values: values}
}

func neo4jSource(rows ...*neo4j.Record) *Neo4jSource {
	r := &fakeRunner{result: &fakeResult{rows: rows}}
	return NewNeo4jSource(nil, repo.WithSessionFactory[domain.VehicleRecord](func(context.Context) repo.Runner { return r }))
}

func TestNeo4jSourceRecords(t *testing.T) {
	src := neo4jSource(
		vehicleRow("6TRJ244", "Ford", "Focus", "Red", "John Smith", "fxkikomina@gmail.com"),
		vehicleRow("7TRR812", "Jeep", nil, "Yellow", nil, "+14253652945"),
	)
	s, err := Open(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.FindByPlate(context.Background(), "7TRR812")
	if err != nil {
		t.Fatal(err)
	}
	if v.Make != "Jeep" || v.Model != "" || v.Owner.Name != "" || v.Owner.Phone != "+14253652945" {
		t.Fatalf("unexpected record: %+v", v)
	}
}

func TestNeo4jSourceMissingPhone(t *testing.T) {
	src := neo4jSource(vehicleRow("6TRJ244", "Ford", "Focus", "Red", "John Smith", nil))
	if _, err := src.Records(context.Background()); err == nil {
		t.Fatal("expected error for missing owner phone")
	}
}

func TestNeo4jSourceWrongType(t *testing.T) {
	src := neo4jSource(vehicleRow(int64(42), "Ford", "Focus", "Red", "John Smith", "+1"))
	_, err := src.Records(context.Background())
	if err == nil {
		t.Fatal("expected type error")
	}
	if errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatal("type errors must not look like misses")
	}
}
