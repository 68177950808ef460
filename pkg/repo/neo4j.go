package repo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the minimal interface needed from a neo4j result.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Runner is the minimal interface needed from a neo4j session.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	Close(ctx context.Context) error
}

// Neo4jReader runs a fixed read query and maps each row to T.
type Neo4jReader[T any] struct {
	driver     neo4j.DriverWithContext
	cypher     string
	database   string
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) Runner
}

// Neo4jOption configures a Neo4jReader.
type Neo4jOption[T any] func(*Neo4jReader[T])

// WithDatabase selects the database name (default: server default).
func WithDatabase[T any](name string) Neo4jOption[T] {
	return func(r *Neo4jReader[T]) { r.database = name }
}

// WithSessionFactory replaces the driver session, mostly for tests.
func WithSessionFactory[T any](f func(ctx context.Context) Runner) Neo4jOption[T] {
	return func(r *Neo4jReader[T]) { r.newSession = f }
}

// NewNeo4jReader creates a reader for cypher.
func NewNeo4jReader[T any](
	driver neo4j.DriverWithContext,
	cypher string,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T],
) *Neo4jReader[T] {
	r := &Neo4jReader[T]{
		driver:     driver,
		cypher:     cypher,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Compile-time interface check.
var _ Lister[any] = (*Neo4jReader[any])(nil)

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the Runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (r *Neo4jReader[T]) session(ctx context.Context) Runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	cfg := neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: r.database}
	return &neo4jSessionAdapter{sess: r.driver.NewSession(ctx, cfg)}
}

// List runs the query and maps every row.
func (r *Neo4jReader[T]) List(ctx context.Context, params map[string]any) ([]T, error) {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, r.cypher, params)
	if err != nil {
		return nil, fmt.Errorf("repo: run: %w", err)
	}

	var items []T
	for result.Next(ctx) {
		item, err := r.fromRecord(result.Record())
		if err != nil {
			return nil, fmt.Errorf("repo: row %d: %w", len(items), err)
		}
		items = append(items, item)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate: %w", err)
	}
	return items, nil
}
