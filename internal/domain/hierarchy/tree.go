// Package hierarchy resolves approver group implication over a group tree.
package hierarchy

import (
	"sort"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// MaxDepth bounds every walk so malformed data cannot loop forever
const MaxDepth = 32

type node struct {
	id       int64
	children []int
}

// Tree is an arena of groups indexed by id; a parent group implies its descendants
type Tree struct {
	nodes []node
	index map[int64]int
}

// NewTree builds the arena from a flat list of groups.
// Parents that are not in the list are ignored and the group becomes a root.
func NewTree(groups []*entity.ApproverGroup) *Tree {
	t := &Tree{
		nodes: make([]node, 0, len(groups)),
		index: make(map[int64]int, len(groups)),
	}
	for _, g := range groups {
		if _, exists := t.index[g.ID]; exists {
			continue
		}
		t.index[g.ID] = len(t.nodes)
		t.nodes = append(t.nodes, node{id: g.ID})
	}
	for _, g := range groups {
		if g.ParentID == nil || *g.ParentID == g.ID {
			continue
		}
		parent, ok := t.index[*g.ParentID]
		if !ok {
			continue
		}
		child := t.index[g.ID]
		t.nodes[parent].children = append(t.nodes[parent].children, child)
	}
	return t
}

// Len returns the number of groups in the tree
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Descendants returns the group and every group below it, sorted by id.
// Unknown groups imply only themselves.
func (t *Tree) Descendants(id int64) []int64 {
	closure := t.Closure([]int64{id})
	ids := make([]int64, 0, len(closure))
	for gid := range closure {
		ids = append(ids, gid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Closure returns the union of the descendant sets of the given groups
func (t *Tree) Closure(ids []int64) map[int64]bool {
	seen := make(map[int64]bool)

	type item struct {
		idx   int
		depth int
	}
	var queue []item

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if idx, ok := t.index[id]; ok {
			queue = append(queue, item{idx: idx})
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= MaxDepth {
			continue
		}
		for _, child := range t.nodes[current.idx].children {
			childID := t.nodes[child].id
			if seen[childID] {
				continue
			}
			seen[childID] = true
			queue = append(queue, item{idx: child, depth: current.depth + 1})
		}
	}

	return seen
}

// Intersects reports whether the effective groups of held share any group with required
func (t *Tree) Intersects(held, required []int64) bool {
	if len(required) == 0 || len(held) == 0 {
		return false
	}
	effective := t.Closure(held)
	for _, id := range required {
		if effective[id] {
			return true
		}
	}
	return false
}
