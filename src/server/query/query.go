// Package query filters and orders entity sequences. It is shared by the
// lost & found and notes listings so each entity only declares its text
// fields and date extractor.
package query

import (
	"sort"
	"strings"
	"time"
)

// Predicate reports whether an entity passes one filter criterion.
// All predicates are combined with AND.
type Predicate[T any] func(T) bool

// Search returns a predicate matching term case-insensitively as a substring
// of any of the extracted text fields (OR across fields). An empty term
// matches everything.
func Search[T any](term string, fields ...func(T) string) Predicate[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return func(T) bool { return true }
	}
	return func(v T) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(v)), term) {
				return true
			}
		}
		return false
	}
}

// Equals returns a predicate matching entities whose extracted value equals
// want. The zero value of want matches everything, so optional filters can be
// passed through unconditionally.
func Equals[T any, V comparable](want V, field func(T) V) Predicate[T] {
	var zero V
	if want == zero {
		return func(T) bool { return true }
	}
	return func(v T) bool { return field(v) == want }
}

// Apply filters items through all predicates and stable-sorts the survivors
// by dateOf descending, so equal dates keep insertion order. The input slice
// is not modified.
func Apply[T any](items []T, dateOf func(T) time.Time, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
outer:
	for _, item := range items {
		for _, pred := range preds {
			if !pred(item) {
				continue outer
			}
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dateOf(out[i]).After(dateOf(out[j]))
	})
	return out
}
