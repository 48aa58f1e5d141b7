package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig controls how a Store connects to its backing database. Most
// deployments want the default pooled mode; SingleConnection exists for
// environments (serverless, pgbouncer in transaction-pooling mode) where a
// connection pool on the client side would fight one already in front of
// the database.
type PoolConfig struct {
	// MaxConns caps concurrent pooled connections. Ignored when
	// SingleConnection is true. Zero means the pgxpool default.
	MaxConns int32
	// MinConns keeps this many connections warm. Ignored when
	// SingleConnection is true.
	MinConns int32
	// MaxConnLifetime recycles a pooled connection after this long.
	MaxConnLifetime time.Duration
	// MaxConnIdleTime closes a pooled connection idle for this long.
	MaxConnIdleTime time.Duration
	// SingleConnection opens exactly one *pgx.Conn instead of a pool and
	// serializes every batch through it; Store.PipelineMode() reports
	// false in this mode.
	SingleConnection bool
}

// Store is the namespaced key-value facade: a connection source, an
// optional semantic index, and the migration set that must be applied
// before it serves traffic.
type Store struct {
	source      connSource
	index       *IndexConfig
	vectorIndex VectorIndex
	migrations  []Migration
	embedCache  *embedCache
}

// Open connects to dbURL per pool, applies core migrations (plus any
// IndexConfig-driven ones), and returns a ready Store. If idx is non-nil
// and idx.Backend is not "qdrant", the default in-database vector backend
// is wired automatically; callers targeting qdrant or another external
// ANN service should set Store.vectorIndex themselves via WithVectorIndex.
func Open(ctx context.Context, dbURL string, pool PoolConfig, idx *IndexConfig) (*Store, error) {
	s := &Store{index: idx, migrations: coreMigrations}
	if idx != nil {
		s.embedCache = newEmbedCache(idx.Embed)
	}

	if pool.SingleConnection {
		conn, err := pgx.Connect(ctx, dbURL)
		if err != nil {
			return nil, &DatabaseError{Op: "connect", Err: err}
		}
		s.source = newSingleConnSource(conn)
	} else {
		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			return nil, &ConfigError{Message: "invalid database url: " + err.Error()}
		}
		if pool.MaxConns > 0 {
			cfg.MaxConns = pool.MaxConns
		}
		if pool.MinConns > 0 {
			cfg.MinConns = pool.MinConns
		}
		if pool.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pool.MaxConnLifetime
		}
		if pool.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pool.MaxConnIdleTime
		}
		pgxPool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, &DatabaseError{Op: "connect", Err: err}
		}
		s.source = newPoolConnSource(pgxPool)
	}

	if idx != nil && idx.Backend != "qdrant" {
		s.vectorIndex = &sqlVectorIndex{store: s}
	}

	q, release, err := s.source.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := runMigrations(ctx, q, s, s.migrations); err != nil {
		s.source.close()
		return nil, err
	}
	log.Info("store: ready", "pipeline", s.PipelineMode())
	return s, nil
}

// WithVectorIndex overrides the vector backend used for Search/Put
// embedding fan-out, e.g. to wire a qdrant-backed VectorIndex.
func (s *Store) WithVectorIndex(vi VectorIndex) *Store {
	s.vectorIndex = vi
	return s
}

// PipelineMode reports whether batches against this store may use pgx
// pipeline mode to issue their statements without a round trip between
// each one.
func (s *Store) PipelineMode() bool {
	return s.source.supportsPipeline()
}

// Close releases the underlying connection or pool.
func (s *Store) Close() {
	s.source.close()
}

// VectorIndex is the pluggable seam for semantic search backends. The
// default implementation stores vectors alongside items in Postgres via
// pgvector; an alternate implementation may delegate to an external ANN
// service such as qdrant.
type VectorIndex interface {
	// Upsert replaces the vectors for (namespace, key), one per field.
	Upsert(ctx context.Context, namespace Namespace, key string, vectors map[string][]float32) error
	// Delete removes every vector associated with (namespace, key).
	Delete(ctx context.Context, namespace Namespace, key string) error
	// Search returns the (namespace, key) pairs under prefix whose closest
	// field vector to query ranks best, most similar first, each paired
	// with that best-field cosine similarity score.
	Search(ctx context.Context, prefix Namespace, query []float32, limit int) ([]VectorMatch, error)
}

// VectorMatch is one ranked hit from a VectorIndex.Search call.
type VectorMatch struct {
	Namespace Namespace
	Key       string
	Score     float64
}
