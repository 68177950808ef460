package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

func TestSQLiteImportAndLoad(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "plates.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer src.Close()

	sample, err := SampleSource().Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Import(ctx, sample); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, err := src.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sample) {
		t.Fatalf("expected %d rows, got %d", len(sample), len(got))
	}
	for i := range sample {
		if got[i] != sample[i] {
			t.Fatalf("row %d: got %+v, want %+v", i, got[i], sample[i])
		}
	}

	s, err := Open(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.FindContactByPlate(ctx, "5ALN015")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Jennifer Hartley" {
		t.Fatalf("unexpected contact: %+v", c)
	}
}

func TestSQLiteImportReplaces(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "plates.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	first := []domain.VehicleRecord{{Plate: "A1", Owner: domain.OwnerContact{Phone: "+1"}}}
	second := []domain.VehicleRecord{{Plate: "B2", Owner: domain.OwnerContact{Phone: "+2"}}}
	if err := src.Import(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := src.Import(ctx, second); err != nil {
		t.Fatal(err)
	}
	got, err := src.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Plate != "B2" {
		t.Fatalf("expected only B2, got %+v", got)
	}
}

func TestSQLiteImportRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "plates.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	dup := []domain.VehicleRecord{
		{Plate: "A1", Owner: domain.OwnerContact{Phone: "+1"}},
		{Plate: "A1", Owner: domain.OwnerContact{Phone: "+2"}},
	}
	if err := src.Import(ctx, dup); !errors.Is(err, domain.ErrDuplicatePlate) {
		t.Fatalf("expected ErrDuplicatePlate, got %v", err)
	}
	got, err := src.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty table, got %+v", got)
	}
}
