package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connSource abstracts how a Store obtains a connection for a batch: a
// pooled source hands out one connection per batch and can run several
// batches concurrently; a single-connection source serializes every batch
// through a mutex and runs its statements one at a time, with neither
// pipeline mode nor an explicit transaction around them.
type connSource interface {
	// acquire returns a querier good for the lifetime of one batch, plus a
	// release function that must be called exactly once when the batch is
	// done with it.
	acquire(ctx context.Context) (querier, func(), error)
	// supportsPipeline reports whether batches obtained from this source
	// may use pgx pipeline mode.
	supportsPipeline() bool
	// close releases resources held by the connection source itself.
	close()
}

// poolConnSource is backed by a *pgxpool.Pool. Every batch acquires its own
// connection from the pool, so unrelated batches run concurrently.
type poolConnSource struct {
	pool *pgxpool.Pool
}

func newPoolConnSource(pool *pgxpool.Pool) *poolConnSource {
	return &poolConnSource{pool: pool}
}

func (s *poolConnSource) acquire(ctx context.Context) (querier, func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, &DatabaseError{Op: "acquire connection", Err: err}
	}
	return conn, conn.Release, nil
}

func (s *poolConnSource) supportsPipeline() bool { return true }

func (s *poolConnSource) close() { s.pool.Close() }

// singleConnSource is backed by one *pgx.Conn shared by every batch,
// serialized with a mutex. Matches the degraded, non-pipelined mode the
// store falls into when PoolConfig asks for a single persistent
// connection rather than a pool.
type singleConnSource struct {
	conn *pgx.Conn
	mu   chan struct{} // 1-buffered semaphore
}

func newSingleConnSource(conn *pgx.Conn) *singleConnSource {
	s := &singleConnSource{conn: conn, mu: make(chan struct{}, 1)}
	s.mu <- struct{}{}
	return s
}

func (s *singleConnSource) acquire(ctx context.Context) (querier, func(), error) {
	select {
	case <-s.mu:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return s.conn, func() { s.mu <- struct{}{} }, nil
}

func (s *singleConnSource) supportsPipeline() bool { return false }

func (s *singleConnSource) close() { s.conn.Close(context.Background()) }
