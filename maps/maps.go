package maps

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// OrderedKeys returns the keys of m in ascending order.
func OrderedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	ks := make([]K, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool {
		return ks[i] < ks[j]
	})
	return ks
}
