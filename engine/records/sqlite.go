package records

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

const vehiclesSchema = `CREATE TABLE IF NOT EXISTS vehicles (
    plate       TEXT PRIMARY KEY,
    make        TEXT NOT NULL DEFAULT '',
    model       TEXT NOT NULL DEFAULT '',
    color       TEXT NOT NULL DEFAULT '',
    owner_name  TEXT NOT NULL DEFAULT '',
    owner_phone TEXT NOT NULL
);`

// SQLiteSource reads records from a "vehicles" table.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("records: open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, vehiclesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("records: sqlite schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Records returns every row in insertion order.
func (s *SQLiteSource) Records(ctx context.Context) ([]domain.VehicleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT plate, make, model, color, owner_name, owner_phone FROM vehicles ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("records: query vehicles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.VehicleRecord, 0)
	for rows.Next() {
		var v domain.VehicleRecord
		if err := rows.Scan(&v.Plate, &v.Make, &v.Model, &v.Color, &v.Owner.Name, &v.Owner.Phone); err != nil {
			return nil, fmt.Errorf("records: scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: iterate vehicles: %w", err)
	}
	return out, nil
}

// Import replaces the table contents with recs in one transaction.
func (s *SQLiteSource) Import(ctx context.Context, recs []domain.VehicleRecord) (err error) {
	if err := domain.ValidateRecordSet(recs); err != nil {
		return fmt.Errorf("records: import: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM vehicles`); err != nil {
		return fmt.Errorf("records: clear vehicles: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vehicles(plate, make, model, color, owner_name, owner_phone) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("records: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range recs {
		if _, err = stmt.ExecContext(ctx, v.Plate, v.Make, v.Model, v.Color, v.Owner.Name, v.Owner.Phone); err != nil {
			return fmt.Errorf("records: insert %s: %w", v.Plate, err)
		}
	}
	return tx.Commit()
}
