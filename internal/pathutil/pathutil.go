// Package pathutil splits, joins, and validates the dot-separated schema
// paths used throughout the metadata catalog, the way muscle's tree
// package deals with slash-separated 9P paths in tree.Rename and
// tree.Walk, adapted to the dot separator and the mandatory "root" prefix.
package pathutil

import (
	"strings"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
)

// Separator is the path component separator used by the schema tree.
const Separator = "."

// Root is the name every path must start with.
const Root = "root"

// Wildcard matches exactly one level, except as the final segment where it
// matches one or more levels down to a leaf.
const Wildcard = "*"

// TimeColumn is the reserved identifier that can never be a valid leaf name.
const TimeColumn = "time"

// Split breaks path into its dot-separated segments. It does not validate
// the path; callers needing validation should call Validate first.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join reassembles segments into a dotted path.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Validate enforces the syntactic rules from spec.md §4.1:
// the path must start with "root" and must not contain empty segments.
func Validate(path string) error {
	segments := Split(path)
	if len(segments) == 0 || segments[0] != Root {
		return catalogerr.New(catalogerr.KindIllegalPath, path, nil)
	}
	for _, s := range segments {
		if s == "" {
			return catalogerr.New(catalogerr.KindIllegalPath, path, nil)
		}
	}
	return nil
}

// StorageGroupPrefix returns the first level+1 segments that make up a
// storage-group candidate path, i.e. the path truncated at depth level
// (root is depth 0). It is used by MManager's auto-create logic together
// with default_storage_group_level.
func StorageGroupPrefix(path string, level int) (string, bool) {
	segments := Split(path)
	if level < 0 || level >= len(segments) {
		return "", false
	}
	return Join(segments[:level+1]...), true
}

// HasWildcard reports whether any segment is the wildcard character.
func HasWildcard(path string) bool {
	for _, s := range Split(path) {
		if s == Wildcard {
			return true
		}
	}
	return false
}

// TrailingWildcard reports whether the final segment is a wildcard (the
// "matches any suffix" case from spec.md §4.1). Wildcards in earlier
// segments do not affect the result.
func TrailingWildcard(path string) bool {
	segments := Split(path)
	if len(segments) == 0 {
		return false
	}
	return segments[len(segments)-1] == Wildcard
}

// Depth returns the number of segments in path after root (root is depth
// 0, i.e. a single-segment path has Depth 0).
func Depth(path string) int {
	return len(Split(path)) - 1
}

// Parent returns the path with its last segment removed, and whether path
// had a parent (the root itself has none).
func Parent(path string) (string, bool) {
	segments := Split(path)
	if len(segments) <= 1 {
		return "", false
	}
	return Join(segments[:len(segments)-1]...), true
}

// LastSegment returns the final dotted component of path.
func LastSegment(path string) string {
	segments := Split(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
