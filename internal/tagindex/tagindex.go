// Package tagindex implements the inverted tag index (spec.md §4.6): a
// nested tag_key -> tag_value -> set<leaf path> mapping used to answer
// get_all_timeseries_schema queries.
//
// Grounded on muscle's internal/tree package's parent/child maps
// (tree/node.go's childrenByName): a plain map-of-maps mutated by the
// single caller holding MManager's write lock, with no internal locking
// of its own, mirroring Counters in internal/counters.
package tagindex

import (
	"sort"
	"strings"
)

// Index is a tag_key -> tag_value -> set<path> mapping.
type Index struct {
	byKey map[string]map[string]map[string]struct{}
}

// New returns an empty Index.
func New() *Index {
	return &Index{byKey: make(map[string]map[string]map[string]struct{})}
}

// Add registers path under every (key, value) pair in tags (spec.md
// §4.6: "Populated when a leaf is created with tags").
func (idx *Index) Add(path string, tags map[string]string) {
	for k, v := range tags {
		byValue, ok := idx.byKey[k]
		if !ok {
			byValue = make(map[string]map[string]struct{})
			idx.byKey[k] = byValue
		}
		paths, ok := byValue[v]
		if !ok {
			paths = make(map[string]struct{})
			byValue[v] = paths
		}
		paths[path] = struct{}{}
	}
}

// Remove deregisters path from every (key, value) pair in tags (spec.md
// §4.6: "mutated when a leaf is deleted (entry removed from every (k,v)
// set it participates in)").
func (idx *Index) Remove(path string, tags map[string]string) {
	for k, v := range tags {
		byValue, ok := idx.byKey[k]
		if !ok {
			continue
		}
		paths, ok := byValue[v]
		if !ok {
			continue
		}
		delete(paths, path)
		if len(paths) == 0 {
			delete(byValue, v)
		}
		if len(byValue) == 0 {
			delete(idx.byKey, k)
		}
	}
}

// Query returns the sorted set of paths registered for key, matching
// value exactly, or (if contains is true) for any value that contains
// value as a substring (spec.md §4.6).
func (idx *Index) Query(key, value string, contains bool) []string {
	byValue, ok := idx.byKey[key]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	if contains {
		for v, paths := range byValue {
			if !strings.Contains(v, value) {
				continue
			}
			for p := range paths {
				seen[p] = struct{}{}
			}
		}
	} else {
		for p := range byValue[value] {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
