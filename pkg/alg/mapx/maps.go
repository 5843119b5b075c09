// Package mapx walks and copies maps in a deterministic order so that bucket
// scans and rendered reports do not depend on map iteration order.
package mapx

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// Sorted yields the entries of m in ascending key order. Keys are
// snapshotted up front; values are read at yield time.
func Sorted[K cmp.Ordered, V any](m map[K]V) iter.Seq2[K, V] {
	keys := SortedKeys(m)

	return func(yield func(K, V) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of m, preserving nil.
func Clone[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}

	return maps.Clone(m)
}
