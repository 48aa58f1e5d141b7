package store

import "time"

// Item is a stored record: a JSON value addressed by a namespace and key,
// with creation/update timestamps. Equality is structural; identity is the
// (namespace, key) pair.
type Item struct {
	Namespace Namespace
	Key       string
	Value     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchItem extends Item with an optional similarity score, populated only
// when the search that produced it carried a query.
type SearchItem struct {
	Item
	Score *float64
}

// MatchKind discriminates the two namespace match condition flavors a
// ListNamespaces operation can filter on.
type MatchKind int

const (
	MatchPrefix MatchKind = iota
	MatchSuffix
)

// MatchCondition constrains ListNamespaces results against a namespace
// path; "*" in Path matches any single label at that position.
type MatchCondition struct {
	Kind MatchKind
	Path []string
}

// IndexMode controls how a Put's value is indexed for search.
type IndexMode int

const (
	// IndexUnset means "use the store's default index configuration".
	IndexUnset IndexMode = iota
	// IndexDisabled means "never index this item, regardless of store default".
	IndexDisabled
	// IndexPaths means "index exactly these JSON paths".
	IndexPaths
)

// IndexSpec is a Put operation's per-call override of indexing behavior.
type IndexSpec struct {
	Mode  IndexMode
	Paths []string
}

// GetOp retrieves a single item by namespace and key.
type GetOp struct {
	Namespace Namespace
	Key       string
}

func (GetOp) isOp() {}

// PutOp stores, updates, or deletes (Value == nil) an item.
type PutOp struct {
	Namespace Namespace
	Key       string
	Value     map[string]any
	Index     IndexSpec
}

func (PutOp) isOp() {}

// SearchOp searches for items under a namespace prefix, optionally
// filtering by JSON containment and/or ranking by similarity to Query.
type SearchOp struct {
	NamespacePrefix Namespace
	Filter          map[string]any
	Limit           int
	Offset          int
	Query           *string
}

func (SearchOp) isOp() {}

// ListNamespacesOp lists distinct namespaces, optionally constrained by
// match conditions and truncated to MaxDepth.
type ListNamespacesOp struct {
	MatchConditions []MatchCondition
	MaxDepth        int // 0 means "no truncation"
	Limit           int
	Offset          int
}

func (ListNamespacesOp) isOp() {}

// Op is the tagged union of operations a batch can contain.
type Op interface {
	isOp()
}

// Result is the tagged union of values a batch can return per operation:
// nil, *Item, []Item, []SearchItem, or []Namespace depending on op kind.
type Result any

// NewSearchOp applies the documented defaults (Limit=10, Offset=0).
func NewSearchOp(prefix Namespace) SearchOp {
	return SearchOp{NamespacePrefix: prefix, Limit: 10, Offset: 0}
}

// NewListNamespacesOp applies the documented defaults (Limit=100, Offset=0).
func NewListNamespacesOp() ListNamespacesOp {
	return ListNamespacesOp{Limit: 100, Offset: 0}
}
