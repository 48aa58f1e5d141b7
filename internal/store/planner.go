package store

import (
	"encoding/json"
	"strconv"
	"time"
)

// plan is a single SQL statement plus its positional arguments. Planner
// functions are pure: given an operation (and, for Put, the current
// time), they return the statement to run — no I/O, no side effects —
// so they can be unit tested without a database.
type plan struct {
	sql  string
	args []any
}

// planGetByNamespace returns the statement that fetches every requested
// key under one namespace in a single round trip, mirroring
// planGetMany's grouping so a batch of Gets issues one statement per
// distinct namespace rather than one per key.
func planGetByNamespace(ns Namespace, keys []string) plan {
	return plan{
		sql:  `SELECT key, value, created_at, updated_at FROM store WHERE prefix = $1 AND key = ANY($2)`,
		args: []any{ns.Encode(), keys},
	}
}

// planPutUpsert returns the statement that inserts or updates an item.
// created_at is preserved across updates (only set on first insert);
// updated_at always advances to now.
func planPutUpsert(op PutOp, now time.Time) (plan, error) {
	valueJSON, err := json.Marshal(op.Value)
	if err != nil {
		return plan{}, &ConfigError{Message: "put value is not JSON-serializable: " + err.Error()}
	}
	return plan{
		sql: `
			INSERT INTO store (prefix, key, value, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (prefix, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		`,
		args: []any{op.Namespace.Encode(), op.Key, json.RawMessage(valueJSON), now},
	}, nil
}

// planDeleteByNamespace returns the statement that removes every listed
// key under one namespace (a collapsed Put with a nil Value) in a
// single round trip. The foreign key on store_vectors cascades the
// removal of any indexed vectors.
func planDeleteByNamespace(ns Namespace, keys []string) plan {
	return plan{
		sql:  `DELETE FROM store WHERE prefix = $1 AND key = ANY($2)`,
		args: []any{ns.Encode(), keys},
	}
}

// planSearch returns the statement that lists items under a namespace
// prefix, optionally constrained by JSON containment. Ranking by vector
// similarity is handled separately by the executor via VectorIndex —
// this statement always orders by recency so it can serve as the
// non-semantic fallback and as the source of filter-matched candidates
// to re-rank.
func planSearch(op SearchOp) (plan, error) {
	prefix := op.NamespacePrefix.Encode()
	sql := `SELECT prefix, key, value, created_at, updated_at FROM store WHERE (prefix = $1 OR prefix LIKE $2)`
	args := []any{prefix, PrefixLikePattern(prefix)}

	if len(op.Filter) > 0 {
		filterJSON, err := json.Marshal(op.Filter)
		if err != nil {
			return plan{}, &ConfigError{Message: "search filter is not JSON-serializable: " + err.Error()}
		}
		sql += ` AND value @> $3`
		args = append(args, json.RawMessage(filterJSON))
	}

	sql += ` ORDER BY updated_at DESC, key ASC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, op.Limit, op.Offset)
	return plan{sql: sql, args: args}, nil
}

// planGetMany returns the statement that fetches every item among a set
// of (namespace, key) pairs sharing one namespace prefix's subtree,
// optionally constrained by JSON containment. Used to hydrate the items
// behind a semantic VectorIndex.Search result set.
func planGetMany(prefix Namespace, keys []string, filter map[string]any) (plan, error) {
	encoded := prefix.Encode()
	sql := `SELECT prefix, key, value, created_at, updated_at FROM store WHERE (prefix = $1 OR prefix LIKE $2) AND key = ANY($3)`
	args := []any{encoded, PrefixLikePattern(encoded), keys}
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return plan{}, &ConfigError{Message: "search filter is not JSON-serializable: " + err.Error()}
		}
		sql += ` AND value @> $4`
		args = append(args, json.RawMessage(filterJSON))
	}
	return plan{sql: sql, args: args}, nil
}

// planListNamespacesDistinct returns the statement that fetches every
// distinct namespace prefix currently in use. MatchConditions and
// MaxDepth are applied in Go afterward (see filterNamespaces) since "*"
// wildcard matching against individual dotted labels does not map onto a
// single SQL LIKE pattern without ambiguity.
func planListNamespacesDistinct() plan {
	return plan{sql: `SELECT DISTINCT prefix FROM store ORDER BY prefix ASC`}
}

// filterNamespaces applies ListNamespacesOp's MatchConditions, MaxDepth,
// and pagination to the full set of distinct namespace prefixes read
// from the database.
func filterNamespaces(all []string, op ListNamespacesOp) []Namespace {
	seen := make(map[string]bool)
	var truncated []string
	for _, encoded := range all {
		t := Truncate(encoded, op.MaxDepth)
		if !seen[t] {
			seen[t] = true
			truncated = append(truncated, t)
		}
	}

	var matched []string
	for _, encoded := range truncated {
		if matchesAll(encoded, op.MatchConditions) {
			matched = append(matched, encoded)
		}
	}

	start := op.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + op.Limit
	if op.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	out := make([]Namespace, 0, end-start)
	for _, encoded := range matched[start:end] {
		out = append(out, DecodeNamespace(encoded))
	}
	return out
}

func matchesAll(encoded string, conditions []MatchCondition) bool {
	for _, c := range conditions {
		switch c.Kind {
		case MatchPrefix:
			if !MatchesPrefixCondition(encoded, c.Path) {
				return false
			}
		case MatchSuffix:
			if !MatchesSuffix(encoded, c.Path) {
				return false
			}
		}
	}
	return true
}
