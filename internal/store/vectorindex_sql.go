package store

import (
	"context"

	pgvec "github.com/pgvector/pgvector-go"
)

// sqlVectorIndex is the default VectorIndex: vectors live in the
// store_vectors table alongside the owning item, ranked by cosine
// distance via pgvector's "<=>" operator (score = 1 - distance, matching
// the convention the rest of the corpus uses for pgvector scores).
type sqlVectorIndex struct {
	store *Store
}

func (v *sqlVectorIndex) Upsert(ctx context.Context, namespace Namespace, key string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	q, release, err := v.store.source.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	prefix := namespace.Encode()
	if _, err := q.Exec(ctx, `DELETE FROM store_vectors WHERE prefix = $1 AND key = $2`, prefix, key); err != nil {
		return &DatabaseError{Op: "delete vectors", Err: err}
	}
	for field, embedding := range vectors {
		vec := pgvec.NewVector(embedding)
		_, err := q.Exec(ctx, `
			INSERT INTO store_vectors (prefix, key, field_name, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (prefix, key, field_name)
			DO UPDATE SET embedding = EXCLUDED.embedding`,
			prefix, key, field, vec)
		if err != nil {
			return &DatabaseError{Op: "upsert vector", Err: err}
		}
	}
	return nil
}

func (v *sqlVectorIndex) Delete(ctx context.Context, namespace Namespace, key string) error {
	q, release, err := v.store.source.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = q.Exec(ctx, `DELETE FROM store_vectors WHERE prefix = $1 AND key = $2`, namespace.Encode(), key)
	if err != nil {
		return &DatabaseError{Op: "delete vectors", Err: err}
	}
	return nil
}

func (v *sqlVectorIndex) Search(ctx context.Context, prefix Namespace, query []float32, limit int) ([]VectorMatch, error) {
	q, release, err := v.store.source.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	vec := pgvec.NewVector(query)
	rows, err := q.Query(ctx, `
		SELECT prefix, key, MIN(embedding <=> $1) AS distance
		FROM store_vectors
		WHERE prefix = $2 OR prefix LIKE $3
		GROUP BY prefix, key
		ORDER BY distance ASC
		LIMIT $4`,
		vec, prefix.Encode(), PrefixLikePattern(prefix.Encode()), limit)
	if err != nil {
		return nil, &DatabaseError{Op: "search vectors", Err: err}
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var encoded, key string
		var distance float64
		if err := rows.Scan(&encoded, &key, &distance); err != nil {
			return nil, &DatabaseError{Op: "scan vector match", Err: err}
		}
		matches = append(matches, VectorMatch{
			Namespace: DecodeNamespace(encoded),
			Key:       key,
			Score:     1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "search vectors", Err: err}
	}
	return matches, nil
}
