package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
)

// indexed op, preserving the caller's original position in the batch so
// results can be written back to the right slot.
type indexedGet struct {
	idx int
	op  GetOp
}
type indexedSearch struct {
	idx int
	op  SearchOp
}
type indexedListNamespaces struct {
	idx int
	op  ListNamespacesOp
}
type indexedPut struct {
	idx int
	op  PutOp
}

// Batch runs a heterogeneous set of operations as one unit, dispatched
// in kind order Get, Search, ListNamespaces, Put, so that reads always
// observe the state from before this batch's writes — matching the
// ordering guarantee the facade's single-op helpers rely on. Operations
// of the same kind that share a namespace (or, for Search, an embedder
// call) are grouped into a minimal set of statements, and when the
// connection source supports pipeline mode those statements are queued
// into one pgx.Batch and flushed with a single round trip rather than
// one per statement.
func (s *Store) Batch(ctx context.Context, ops []Op) ([]Result, error) {
	results := make([]Result, len(ops))

	var gets []indexedGet
	var searches []indexedSearch
	var lists []indexedListNamespaces
	var puts []indexedPut
	for i, op := range ops {
		switch o := op.(type) {
		case GetOp:
			gets = append(gets, indexedGet{i, o})
		case SearchOp:
			searches = append(searches, indexedSearch{i, o})
		case ListNamespacesOp:
			lists = append(lists, indexedListNamespaces{i, o})
		case PutOp:
			puts = append(puts, indexedPut{i, o})
		}
	}

	q, release, err := s.source.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if len(gets) > 0 {
		if err := s.execGets(ctx, q, gets, results); err != nil {
			return nil, err
		}
	}
	if len(searches) > 0 {
		if err := s.execSearches(ctx, q, searches, results); err != nil {
			return nil, err
		}
	}
	if len(lists) > 0 {
		if err := s.execListNamespaces(ctx, q, lists, results); err != nil {
			return nil, err
		}
	}
	if len(puts) > 0 {
		if err := s.execPuts(ctx, q, puts); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// queryBatch runs one query-returning plan per element of plans against
// q, calling fn once per plan in order with that plan's rows — fn must
// finish reading (or rows.Close is called for it right after it
// returns). When the store's connection source supports pipeline mode,
// every plan is queued into one pgx.Batch and sent with a single
// SendBatch round trip instead of one Query per plan.
func (s *Store) queryBatch(ctx context.Context, q querier, plans []plan, opLabel string, fn func(i int, rows pgx.Rows) error) error {
	if len(plans) == 0 {
		return nil
	}
	if !s.PipelineMode() {
		for i, p := range plans {
			rows, err := q.Query(ctx, p.sql, p.args...)
			if err != nil {
				return &DatabaseError{Op: opLabel, Err: err}
			}
			err = fn(i, rows)
			rows.Close()
			if err != nil {
				return err
			}
		}
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range plans {
		batch.Queue(p.sql, p.args...)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for i := range plans {
		rows, err := br.Query()
		if err != nil {
			return &DatabaseError{Op: opLabel, Err: err}
		}
		err = fn(i, rows)
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// execBatch runs every plan in plans as an Exec against q, pipelined
// into one pgx.Batch when the connection source supports it, or
// sequentially otherwise.
func (s *Store) execBatch(ctx context.Context, q querier, plans []plan, opLabel string) error {
	if len(plans) == 0 {
		return nil
	}
	if !s.PipelineMode() {
		for _, p := range plans {
			if _, err := q.Exec(ctx, p.sql, p.args...); err != nil {
				return &DatabaseError{Op: opLabel, Err: err}
			}
		}
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range plans {
		batch.Queue(p.sql, p.args...)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range plans {
		if _, err := br.Exec(); err != nil {
			return &DatabaseError{Op: opLabel, Err: err}
		}
	}
	return nil
}

// execGets partitions the batch's Get ops by namespace and issues one
// key = ANY($1) statement per distinct namespace instead of one
// statement per key, so N gets sharing a namespace cost one round trip.
func (s *Store) execGets(ctx context.Context, q querier, gets []indexedGet, results []Result) error {
	type group struct {
		ns   Namespace
		keys []string
	}
	groups := make(map[string]*group)
	var order []string
	for _, g := range gets {
		enc := g.op.Namespace.Encode()
		grp, ok := groups[enc]
		if !ok {
			grp = &group{ns: g.op.Namespace}
			groups[enc] = grp
			order = append(order, enc)
		}
		grp.keys = append(grp.keys, g.op.Key)
	}

	plans := make([]plan, len(order))
	for i, enc := range order {
		plans[i] = planGetByNamespace(groups[enc].ns, groups[enc].keys)
	}

	itemsByGroup := make([]map[string]*Item, len(order))
	err := s.queryBatch(ctx, q, plans, "get items", func(i int, rows pgx.Rows) error {
		items := make(map[string]*Item)
		for rows.Next() {
			var key string
			var valueJSON json.RawMessage
			var createdAt, updatedAt time.Time
			if err := rows.Scan(&key, &valueJSON, &createdAt, &updatedAt); err != nil {
				return &DatabaseError{Op: "scan get item", Err: err}
			}
			var value map[string]any
			if err := json.Unmarshal(valueJSON, &value); err != nil {
				return &DatabaseError{Op: "decode item value", Err: err}
			}
			items[key] = &Item{
				Namespace: groups[order[i]].ns,
				Key:       key,
				Value:     value,
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			}
		}
		if err := rows.Err(); err != nil {
			return &DatabaseError{Op: "get items", Err: err}
		}
		itemsByGroup[i] = items
		return nil
	})
	if err != nil {
		return err
	}

	groupIndex := make(map[string]int, len(order))
	for i, enc := range order {
		groupIndex[enc] = i
	}
	for _, g := range gets {
		items := itemsByGroup[groupIndex[g.op.Namespace.Encode()]]
		if item, ok := items[g.op.Key]; ok {
			results[g.idx] = item
		} else {
			results[g.idx] = nil
		}
	}
	return nil
}

// execSearches collects every query-bearing search's text across the
// whole batch and makes one shared embedder call for them, then splices
// the resulting vectors back per-op before running each search — rather
// than one embedder round trip per search. Searches with no query run
// as plain filtered/recency listings, pipelined together.
func (s *Store) execSearches(ctx context.Context, q querier, searches []indexedSearch, results []Result) error {
	embedIdx := make(map[int]int, len(searches))
	var embedQueries []string
	for i, sop := range searches {
		if sop.op.Query != nil && *sop.op.Query != "" {
			embedIdx[i] = len(embedQueries)
			embedQueries = append(embedQueries, *sop.op.Query)
		}
	}

	var vectors [][]float32
	if len(embedQueries) > 0 {
		if s.embedCache == nil || s.vectorIndex == nil {
			return &MissingEmbedderError{Op: "search"}
		}
		v, err := s.embedCache.embedDeduped(ctx, embedQueries)
		if err != nil {
			return err
		}
		vectors = v
	}

	var plainPos []int
	var plainPlans []plan
	for i, sop := range searches {
		if _, ok := embedIdx[i]; ok {
			continue
		}
		p, err := planSearch(sop.op)
		if err != nil {
			return err
		}
		plainPos = append(plainPos, i)
		plainPlans = append(plainPlans, p)
	}
	if len(plainPlans) > 0 {
		err := s.queryBatch(ctx, q, plainPlans, "search items", func(batchIdx int, rows pgx.Rows) error {
			var out []SearchItem
			if err := scanSearchItems(rows, func(item SearchItem) {
				out = append(out, item)
			}); err != nil {
				return err
			}
			results[searches[plainPos[batchIdx]].idx] = out
			return nil
		})
		if err != nil {
			return err
		}
	}

	for i, sop := range searches {
		vi, ok := embedIdx[i]
		if !ok {
			continue
		}
		items, err := s.runSemanticSearch(ctx, q, sop.op, vectors[vi])
		if err != nil {
			return err
		}
		results[sop.idx] = items
	}
	return nil
}

// runSemanticSearch ranks (namespace, key) pairs under op.NamespacePrefix
// by vector similarity to an already-computed query embedding, then
// hydrates the winning rows from the store table.
func (s *Store) runSemanticSearch(ctx context.Context, q querier, op SearchOp, vector []float32) ([]SearchItem, error) {
	limit := op.Limit
	if limit <= 0 {
		limit = 10
	}
	// Over-fetch before offset/filter so pagination and post-filtering
	// still have enough candidates to work with.
	matches, err := s.vectorIndex.Search(ctx, op.NamespacePrefix, vector, 2*(limit+op.Offset))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	keys := make([]string, len(matches))
	scoreByKey := make(map[string]float64, len(matches))
	for i, m := range matches {
		keys[i] = m.Key
		scoreByKey[m.Key] = m.Score
	}

	p, err := planGetMany(op.NamespacePrefix, keys, op.Filter)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, p.sql, p.args...)
	if err != nil {
		return nil, &DatabaseError{Op: "search items", Err: err}
	}
	defer rows.Close()

	byKey := make(map[string]SearchItem, len(keys))
	if err := scanSearchItems(rows, func(item SearchItem) {
		score := scoreByKey[item.Key]
		item.Score = &score
		byKey[item.Key] = item
	}); err != nil {
		return nil, err
	}

	out := make([]SearchItem, 0, len(matches))
	for _, m := range matches {
		if item, ok := byKey[m.Key]; ok {
			out = append(out, item)
		}
	}
	if op.Offset > 0 {
		if op.Offset >= len(out) {
			return nil, nil
		}
		out = out[op.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func scanSearchItems(rows pgx.Rows, emit func(SearchItem)) error {
	for rows.Next() {
		var prefix, key string
		var valueJSON json.RawMessage
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&prefix, &key, &valueJSON, &createdAt, &updatedAt); err != nil {
			return &DatabaseError{Op: "scan search item", Err: err}
		}
		var value map[string]any
		if err := json.Unmarshal(valueJSON, &value); err != nil {
			return &DatabaseError{Op: "decode item value", Err: err}
		}
		emit(SearchItem{
			Item: Item{
				Namespace: DecodeNamespace(prefix),
				Key:       key,
				Value:     value,
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return &DatabaseError{Op: "search items", Err: err}
	}
	return nil
}

func (s *Store) execListNamespaces(ctx context.Context, q querier, lists []indexedListNamespaces, results []Result) error {
	p := planListNamespacesDistinct()
	rows, err := q.Query(ctx, p.sql, p.args...)
	if err != nil {
		return &DatabaseError{Op: "list namespaces", Err: err}
	}
	var all []string
	for rows.Next() {
		var prefix string
		if err := rows.Scan(&prefix); err != nil {
			rows.Close()
			return &DatabaseError{Op: "scan namespace", Err: err}
		}
		all = append(all, prefix)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return &DatabaseError{Op: "list namespaces", Err: rowsErr}
	}

	for _, l := range lists {
		results[l.idx] = filterNamespaces(all, l.op)
	}
	return nil
}

// execPuts applies last-wins collapsing for repeated (namespace, key)
// pairs within the batch, groups deletions by namespace into one
// key = ANY(...) DELETE per namespace, upserts the rest in one pipelined
// pass, then fans embeddings for indexed fields out to the vector index.
func (s *Store) execPuts(ctx context.Context, q querier, puts []indexedPut) error {
	type collapsedKey struct {
		ns  string
		key string
	}
	order := make([]collapsedKey, 0, len(puts))
	byKey := make(map[collapsedKey]PutOp, len(puts))
	for _, p := range puts {
		ck := collapsedKey{ns: p.op.Namespace.Encode(), key: p.op.Key}
		if _, seen := byKey[ck]; !seen {
			order = append(order, ck)
		}
		byKey[ck] = p.op // last wins
	}

	type deleteGroup struct {
		ns   Namespace
		keys []string
	}
	deleteGroups := make(map[string]*deleteGroup)
	var deleteOrder []string

	now := time.Now()
	type pendingEmbed struct {
		op     PutOp
		fields []string
	}
	var toEmbed []pendingEmbed
	var upsertPlans []plan

	for _, ck := range order {
		op := byKey[ck]
		if op.Value == nil {
			g, ok := deleteGroups[ck.ns]
			if !ok {
				g = &deleteGroup{ns: op.Namespace}
				deleteGroups[ck.ns] = g
				deleteOrder = append(deleteOrder, ck.ns)
			}
			g.keys = append(g.keys, op.Key)
			continue
		}

		up, err := planPutUpsert(op, now)
		if err != nil {
			return err
		}
		upsertPlans = append(upsertPlans, up)

		if fields, ok := effectiveIndexPaths(op.Index, s.index); ok {
			toEmbed = append(toEmbed, pendingEmbed{op: op, fields: fields})
		}
	}

	if len(deleteOrder) > 0 {
		plans := make([]plan, len(deleteOrder))
		for i, ns := range deleteOrder {
			plans[i] = planDeleteByNamespace(deleteGroups[ns].ns, deleteGroups[ns].keys)
		}
		if err := s.execBatch(ctx, q, plans, "delete items"); err != nil {
			return err
		}
		if s.vectorIndex != nil {
			for _, ns := range deleteOrder {
				g := deleteGroups[ns]
				for _, key := range g.keys {
					if err := s.vectorIndex.Delete(ctx, g.ns, key); err != nil {
						return err
					}
				}
			}
		}
	}

	if len(upsertPlans) > 0 {
		if err := s.execBatch(ctx, q, upsertPlans, "put items"); err != nil {
			return err
		}
	}

	if len(toEmbed) == 0 {
		return nil
	}
	if s.embedCache == nil || s.vectorIndex == nil {
		return &MissingEmbedderError{Op: "put"}
	}

	type target struct {
		op    PutOp
		field string
	}
	var targets []target
	var texts []string
	for _, pe := range toEmbed {
		for _, field := range pe.fields {
			vals, err := GetTextAtPath(pe.op.Value, field)
			if err != nil {
				return &ConfigError{Message: "invalid index path " + field + ": " + err.Error()}
			}
			for _, v := range vals {
				targets = append(targets, target{op: pe.op, field: field})
				texts = append(texts, v)
			}
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedCache.embedDeduped(ctx, texts)
	if err != nil {
		return err
	}

	byItem := make(map[collapsedKey]map[string][]float32)
	nsByItem := make(map[collapsedKey]Namespace)
	keyByItem := make(map[collapsedKey]string)
	for i, t := range targets {
		ck := collapsedKey{ns: t.op.Namespace.Encode(), key: t.op.Key}
		if byItem[ck] == nil {
			byItem[ck] = make(map[string][]float32)
		}
		byItem[ck][t.field] = vectors[i]
		nsByItem[ck] = t.op.Namespace
		keyByItem[ck] = t.op.Key
	}
	for ck, vecs := range byItem {
		if err := s.vectorIndex.Upsert(ctx, nsByItem[ck], keyByItem[ck], vecs); err != nil {
			return err
		}
	}
	return nil
}
