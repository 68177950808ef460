// Package records resolves license plates to owner contacts.
//
// A Store is loaded once from a Source (an XML or YAML document, a SQLite
// table or a Neo4j graph) and is read-only afterwards, so lookups are safe
// from any number of goroutines.
package records

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// Source yields the full record set in data-source order.
type Source interface {
	Records(ctx context.Context) ([]domain.VehicleRecord, error)
}

// Repository is what the pipeline needs from a record store.
type Repository interface {
	Load(ctx context.Context) error
	FindByPlate(ctx context.Context, plate string) (domain.VehicleRecord, error)
}

// Option configures a Store.
type Option func(*Store)

// WithDuplicatePlates skips the duplicate-plate check at load. Lookups then
// return the first matching record in source order.
func WithDuplicatePlates() Option {
	return func(s *Store) { s.allowDuplicates = true }
}

type index struct {
	byPlate map[string]int
	records []domain.VehicleRecord
}

// Store is an immutable, in-memory plate index over a Source.
type Store struct {
	src             Source
	allowDuplicates bool

	loadMu sync.Mutex
	idx    atomic.Pointer[index]
}

// Compile-time interface check.
var _ Repository = (*Store)(nil)

// New creates an unloaded Store. Call Load before serving lookups.
func New(src Source, opts ...Option) *Store {
	s := &Store{src: src}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates a Store and loads it.
func Open(ctx context.Context, src Source, opts ...Option) (*Store, error) {
	s := New(src, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads and validates the record set. It succeeds at most once.
func (s *Store) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.idx.Load() != nil {
		return domain.ErrAlreadyLoaded
	}

	recs, err := s.src.Records(ctx)
	if err != nil {
		return fmt.Errorf("records: load: %w", err)
	}
	if s.allowDuplicates {
		for i, r := range recs {
			if err := domain.ValidateVehicleRecord(r); err != nil {
				return fmt.Errorf("records: load: record %d: %w", i, err)
			}
		}
	} else if err := domain.ValidateRecordSet(recs); err != nil {
		return fmt.Errorf("records: load: %w", err)
	}

	idx := &index{
		byPlate: make(map[string]int, len(recs)),
		records: append([]domain.VehicleRecord(nil), recs...),
	}
	for i, r := range idx.records {
		if _, ok := idx.byPlate[r.Plate]; !ok {
			idx.byPlate[r.Plate] = i
		}
	}
	s.idx.Store(idx)
	return nil
}

// FindByPlate returns the record whose plate equals plate exactly.
// A miss returns an error wrapping domain.ErrRecordNotFound.
func (s *Store) FindByPlate(_ context.Context, plate string) (domain.VehicleRecord, error) {
	idx := s.idx.Load()
	if idx == nil {
		return domain.VehicleRecord{}, domain.ErrNotLoaded
	}
	i, ok := idx.byPlate[plate]
	if !ok {
		return domain.VehicleRecord{}, fmt.Errorf("records: plate %q: %w", plate, domain.ErrRecordNotFound)
	}
	return idx.records[i], nil
}

// FindContactByPlate returns the owner contact for plate.
func (s *Store) FindContactByPlate(ctx context.Context, plate string) (domain.OwnerContact, error) {
	return FindContact(ctx, s, plate)
}

// FindContact resolves plate to an owner contact through any Repository.
func FindContact(ctx context.Context, repo Repository, plate string) (domain.OwnerContact, error) {
	v, err := repo.FindByPlate(ctx, plate)
	if err != nil {
		return domain.OwnerContact{}, err
	}
	return v.Owner, nil
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	idx := s.idx.Load()
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// All returns a copy of the loaded records in source order.
func (s *Store) All() []domain.VehicleRecord {
	idx := s.idx.Load()
	if idx == nil {
		return nil
	}
	return append([]domain.VehicleRecord(nil), idx.records...)
}
