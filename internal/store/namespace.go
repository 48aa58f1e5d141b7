// Package store implements the namespaced key-value memory store: operation
// model, SQL planner, batched executor and the BaseStore facade.
package store

import (
	"strconv"
	"strings"
)

// reservedRoot is the root namespace label a caller may never use; it is
// reserved for the store's own bookkeeping.
const reservedRoot = "langgraph"

// Namespace is an ordered, non-empty sequence of labels identifying a
// logical collection. Labels never contain '.' and are never empty.
type Namespace []string

// Validate checks the namespace invariants from the data model: at least
// one label, no empty labels, no '.' in any label, and the root label is
// never the reserved token.
func (ns Namespace) Validate() error {
	if len(ns) == 0 {
		return &InvalidNamespaceError{Namespace: ns, Reason: "namespace cannot be empty"}
	}
	for i, label := range ns {
		if label == "" {
			return &InvalidNamespaceError{Namespace: ns, Reason: "namespace labels cannot be empty strings"}
		}
		if strings.Contains(label, ".") {
			return &InvalidNamespaceError{
				Namespace: ns,
				Reason:    "namespace label " + strconv.Itoa(i) + " (" + label + ") cannot contain '.'",
			}
		}
	}
	if ns[0] == reservedRoot {
		return &InvalidNamespaceError{Namespace: ns, Reason: "root label cannot be \"" + reservedRoot + "\""}
	}
	return nil
}

// Encode joins the namespace labels with '.' for persistence, per the wire
// convention in spec §6.
func (ns Namespace) Encode() string {
	return strings.Join(ns, ".")
}

// DecodeNamespace splits a persisted '.'-joined namespace back into labels.
func DecodeNamespace(encoded string) Namespace {
	if encoded == "" {
		return nil
	}
	return strings.Split(encoded, ".")
}

// PrefixLikePattern returns the SQL LIKE pattern matching the descendants
// of the encoded namespace (not the namespace itself, which callers match
// with a separate equality test), escaping LIKE metacharacters
// in the prefix so that e.g. "users" never accidentally matches "userspace".
func PrefixLikePattern(prefixEncoded string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefixEncoded)
	return escaped + ".%"
}

// HasPrefix reports whether encoded equals prefixEncoded or is one of its
// descendants (prefixEncoded + "." + anything).
func HasPrefix(encoded, prefixEncoded string) bool {
	return encoded == prefixEncoded || strings.HasPrefix(encoded, prefixEncoded+".")
}

// Truncate returns the first depth labels of the encoded namespace,
// re-joined. If depth >= the namespace's depth, encoded is returned as-is.
func Truncate(encoded string, depth int) string {
	if depth <= 0 {
		return encoded
	}
	parts := strings.SplitN(encoded, ".", depth+1)
	if len(parts) <= depth {
		return encoded
	}
	return strings.Join(parts[:depth], ".")
}

// Depth returns the number of labels in the encoded namespace.
func Depth(encoded string) int {
	if encoded == "" {
		return 0
	}
	return strings.Count(encoded, ".") + 1
}

// MatchesSuffix reports whether the decoded namespace's trailing labels
// equal suffix exactly, label for label. A "*" entry in suffix matches any
// single label.
func MatchesSuffix(encoded string, suffix []string) bool {
	if len(suffix) == 0 {
		return true
	}
	labels := DecodeNamespace(encoded)
	if len(labels) < len(suffix) {
		return false
	}
	tail := labels[len(labels)-len(suffix):]
	for i, want := range suffix {
		if want == "*" {
			continue
		}
		if tail[i] != want {
			return false
		}
	}
	return true
}

// MatchesPrefixCondition reports whether the decoded namespace's leading
// labels equal prefix, label for label, with "*" matching any single label.
func MatchesPrefixCondition(encoded string, prefix []string) bool {
	if len(prefix) == 0 {
		return true
	}
	labels := DecodeNamespace(encoded)
	if len(labels) < len(prefix) {
		return false
	}
	for i, want := range prefix {
		if want == "*" {
			continue
		}
		if labels[i] != want {
			return false
		}
	}
	return true
}
