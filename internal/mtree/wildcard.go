package mtree

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/mnode"
	"github.com/catalogdb/metacatalog/internal/pathutil"
	"golang.org/x/sync/errgroup"
)

// fanoutLimit bounds the number of concurrent subtree branches explored
// during trailing-wildcard expansion, the same bounded-fan-out shape as
// muscle's tree.grow (tree/tree_walking.go), which caps concurrent child
// loads with a semaphore channel rather than an unbounded goroutine burst.
const fanoutLimit = 32

// splitPattern separates a (possibly wildcarded) path into the segments
// that must be matched level-by-level and whether the final segment is a
// "matches any suffix" trailing wildcard (spec.md §4.1).
func splitPattern(pattern string) (fixed []string, trailingWildcard bool) {
	segments := pathutil.Split(pattern)[1:]
	if pathutil.TrailingWildcard(pattern) {
		return segments[:len(segments)-1], true
	}
	return segments, false
}

// collectAllLeaves gathers every Leaf descendant of node (at any depth >=
// 1), fanning out across children concurrently once there is more than one
// of them, bounded by fanoutLimit.
func collectAllLeaves(ctx context.Context, node *mnode.Node, out *[]*mnode.Node, mu *sync.Mutex) error {
	children := node.Children()
	if len(children) <= 1 {
		for _, c := range children {
			if c.IsLeaf() {
				mu.Lock()
				*out = append(*out, c)
				mu.Unlock()
				continue
			}
			if err := collectAllLeaves(ctx, c, out, mu); err != nil {
				return err
			}
		}
		return nil
	}
	sem := make(chan struct{}, fanoutLimit)
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		child := child
		if child.IsLeaf() {
			mu.Lock()
			*out = append(*out, child)
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return collectAllLeaves(gctx, child, out, mu)
		})
	}
	return g.Wait()
}

// matchLeaves recursively matches fixedSegments against the tree rooted at
// node, then, once they are exhausted, applies the trailing-wildcard rule
// if present. Matches are appended to out in tree-walk (insertion) order
// for any node with at most one matching branch; trailing-wildcard fan-out
// may interleave order across branches explored concurrently, so callers
// that need a total order (e.g. GetAllMeasurementSchema) sort by path.
func matchLeaves(ctx context.Context, node *mnode.Node, fixedSegments []string, trailingWildcard bool, out *[]*mnode.Node, mu *sync.Mutex) error {
	if len(fixedSegments) == 0 {
		if trailingWildcard {
			return collectAllLeaves(ctx, node, out, mu)
		}
		if node.IsLeaf() {
			mu.Lock()
			*out = append(*out, node)
			mu.Unlock()
		}
		return nil
	}
	seg, rest := fixedSegments[0], fixedSegments[1:]
	if seg != pathutil.Wildcard {
		child, found := node.Child(seg)
		if !found {
			return nil
		}
		return matchLeaves(ctx, child, rest, trailingWildcard, out, mu)
	}
	for _, child := range node.Children() {
		if err := matchLeaves(ctx, child, rest, trailingWildcard, out, mu); err != nil {
			return err
		}
	}
	return nil
}

// GetAllTimeSeriesName expands prefix (which may contain wildcards) and
// returns every leaf path matching it, sorted lexicographically by path
// (spec.md §4.1 wildcard rules). Paths are not returned in tree-walk
// (insertion) order.
func (t *MTree) GetAllTimeSeriesName(prefix string) ([]string, error) {
	if err := pathutil.Validate(prefix); err != nil {
		return nil, err
	}
	fixed, trailing := splitPattern(prefix)
	var leaves []*mnode.Node
	var mu sync.Mutex
	if err := matchLeaves(context.Background(), t.root, fixed, trailing, &leaves, &mu); err != nil {
		return nil, catalogerr.New(catalogerr.KindIO, prefix, err)
	}
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Path()
	}
	sort.Strings(out)
	return out, nil
}

// GetDevices returns the distinct parent-of-leaf paths matching prefix,
// using the same wildcard rules as GetAllTimeSeriesName (spec.md §4.1).
func (t *MTree) GetDevices(prefix string) ([]string, error) {
	if err := pathutil.Validate(prefix); err != nil {
		return nil, err
	}
	fixed, trailing := splitPattern(prefix)
	var leaves []*mnode.Node
	var mu sync.Mutex
	if err := matchLeaves(context.Background(), t.root, fixed, trailing, &leaves, &mu); err != nil {
		return nil, catalogerr.New(catalogerr.KindIO, prefix, err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, l := range leaves {
		p := l.Parent().Path()
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetNodesList returns every node whose depth (root = 0) equals level and
// which lies under prefix. prefix must be a concrete path, no wildcards
// (spec.md §4.1).
func (t *MTree) GetNodesList(prefix string, level int) ([]*mnode.Node, error) {
	if pathutil.HasWildcard(prefix) {
		return nil, catalogerr.New(catalogerr.KindIllegalPath, prefix, nil)
	}
	base, err := t.GetNode(prefix)
	if err != nil {
		return nil, err
	}
	baseDepth := pathutil.Depth(prefix)
	if level < baseDepth {
		return nil, nil
	}
	var out []*mnode.Node
	collectAtDepth(base, level-baseDepth, &out)
	return out, nil
}

func collectAtDepth(node *mnode.Node, remaining int, out *[]*mnode.Node) {
	if remaining == 0 {
		*out = append(*out, node)
		return
	}
	for _, c := range node.Children() {
		collectAtDepth(c, remaining-1, out)
	}
}

// determineStorageGroups recursively matches fixedSegments, stopping as
// soon as it reaches a StorageGroup node (the first boundary reachable by
// any matching walk). Remaining fixed segments become a literal suffix of
// the rewrite; a trailing wildcard, never consumed while matching, is
// appended as "*" once a storage group is found, and otherwise drives an
// unbounded search through Internal descendants (spec.md §4.1).
func determineStorageGroups(node *mnode.Node, fixedSegments []string, trailingWildcard bool, results map[string]string) {
	if node.IsStorageGroup() {
		rewrite := node.Path()
		switch {
		case len(fixedSegments) > 0:
			rewrite = rewrite + "." + pathutil.Join(fixedSegments...)
		case trailingWildcard:
			rewrite = rewrite + "." + pathutil.Wildcard
		}
		results[node.Path()] = rewrite
		return
	}
	if len(fixedSegments) == 0 {
		if trailingWildcard {
			for _, c := range node.Children() {
				determineStorageGroups(c, nil, true, results)
			}
		}
		return
	}
	seg, rest := fixedSegments[0], fixedSegments[1:]
	if seg != pathutil.Wildcard {
		if child, found := node.Child(seg); found {
			determineStorageGroups(child, rest, trailingWildcard, results)
		}
		return
	}
	for _, child := range node.Children() {
		determineStorageGroups(child, rest, trailingWildcard, results)
	}
}

// DetermineStorageGroup returns a mapping storage_group -> fully_qualified
// path_rewrite for every storage group reachable through pathWithWildcards
// (spec.md §4.1, examples in §8).
func (t *MTree) DetermineStorageGroup(pathWithWildcards string) (map[string]string, error) {
	if err := pathutil.Validate(pathWithWildcards); err != nil {
		return nil, err
	}
	fixed, trailing := splitPattern(pathWithWildcards)
	results := make(map[string]string)
	determineStorageGroups(t.root, fixed, trailing, results)
	return results, nil
}

// SchemaRow is one result row of GetAllMeasurementSchema, matching the
// column order from spec.md §4.1: [full_path, alias, storage_group,
// data_type, encoding, compressor, tag_offset_as_string].
type SchemaRow struct {
	FullPath     string
	Alias        string
	StorageGroup string
	DataType     uint16
	Encoding     uint16
	Compressor   uint16
	TagOffset    int64
}

// Fields renders the row as the literal string columns spec.md specifies.
func (r SchemaRow) Fields() []string {
	return []string{
		r.FullPath,
		r.Alias,
		r.StorageGroup,
		strconv.FormatUint(uint64(r.DataType), 10),
		strconv.FormatUint(uint64(r.Encoding), 10),
		strconv.FormatUint(uint64(r.Compressor), 10),
		strconv.FormatInt(r.TagOffset, 10),
	}
}

// SchemaPlan selects and paginates GetAllMeasurementSchema's output.
type SchemaPlan struct {
	Prefix string
	Offset int
	Limit  int // 0 means unbounded.
}

// GetAllMeasurementSchema iterates leaves matching plan.Prefix and emits
// rows sorted lexicographically by full path, skipping the first
// plan.Offset matches and taking at most plan.Limit of the rest (spec.md
// §4.1). Rows are not emitted in tree-walk (insertion) order.
func (t *MTree) GetAllMeasurementSchema(plan SchemaPlan) ([]SchemaRow, error) {
	if err := pathutil.Validate(plan.Prefix); err != nil {
		return nil, err
	}
	fixed, trailing := splitPattern(plan.Prefix)
	var leaves []*mnode.Node
	var mu sync.Mutex
	if err := matchLeaves(context.Background(), t.root, fixed, trailing, &leaves, &mu); err != nil {
		return nil, catalogerr.New(catalogerr.KindIO, plan.Prefix, err)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Path() < leaves[j].Path() })

	rows := make([]SchemaRow, 0, len(leaves))
	for _, l := range leaves {
		schema, err := l.Schema()
		if err != nil {
			return nil, err
		}
		alias, _ := l.Alias()
		tagOffset, _ := l.TagOffset()
		sg, _ := l.StorageGroupAncestor()
		sgName := ""
		if sg != nil {
			sgName = sg.Path()
		}
		rows = append(rows, SchemaRow{
			FullPath:     l.Path(),
			Alias:        alias,
			StorageGroup: sgName,
			DataType:     schema.DataType,
			Encoding:     schema.Encoding,
			Compressor:   schema.Compressor,
			TagOffset:    tagOffset,
		})
	}

	if plan.Offset > 0 {
		if plan.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[plan.Offset:]
	}
	if plan.Limit > 0 && plan.Limit < len(rows) {
		rows = rows[:plan.Limit]
	}
	return rows, nil
}
