package revindex

import (
	"fmt"

	"github.com/antgroup/whence/modules/plumbing"
)

// Graph is the reverse reachability index over one slice of history: the
// commit→tree→…→blob ownership DAG with every edge turned around, so that
// walking up from a blob only ever touches its own ancestors.
//
// Vertices are numbered in first-insertion order and edges are ids into the
// same graph, not pointers: the whole structure is three flat allocations
// plus the edge lists, which keeps it cheap to traverse and trivial to
// serialize. A Graph is grown by a builder, then handed over read-only;
// lookups never mutate it.
type Graph struct {
	vertices []plumbing.Hash
	edges    [][]uint32
	table    map[plumbing.Hash]uint32
}

// Stack is a caller-owned scratch buffer for lookups. It carries no state
// between queries; reusing one across many lookups avoids re-growing the
// traversal stack each time.
type Stack struct {
	indices []uint32
}

func NewGraph() *Graph {
	return &Graph{table: make(map[plumbing.Hash]uint32)}
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.vertices)
}

// Digest returns the object id of vertex i.
func (g *Graph) Digest(i uint32) plumbing.Hash {
	return g.vertices[i]
}

// Append adds a new root vertex (a commit) with an empty parent list and
// returns its id. Appending an already known digest is a bug in the caller.
func (g *Graph) Append(oid plumbing.Hash) uint32 {
	if _, ok := g.table[oid]; ok {
		panic(fmt.Sprintf("revindex: append of duplicate vertex %s", oid))
	}
	idx := uint32(len(g.vertices))
	g.vertices = append(g.vertices, oid)
	g.edges = append(g.edges, nil)
	g.table[oid] = idx
	return idx
}

// InsertParent records that vertex parent references child. If child is
// already present only the edge is added and created is false; otherwise a
// new vertex is appended with parent as its sole reverse-parent. This is the
// only way non-root vertices come into existence, which is what makes shared
// subtrees cheap: the first commit to reference a tree pays for its full
// expansion, every later one adds a single edge.
func (g *Graph) InsertParent(parent uint32, child plumbing.Hash) (uint32, bool) {
	if idx, ok := g.table[child]; ok {
		g.edges[idx] = append(g.edges[idx], parent)
		return idx, false
	}
	idx := uint32(len(g.vertices))
	g.vertices = append(g.vertices, child)
	g.edges = append(g.edges, []uint32{parent})
	g.table[child] = idx
	return idx, true
}

// OptimizeTopology collapses single-parent chains: a vertex whose only
// parent itself has exactly one parent is rewired to that grandparent.
// Scans repeat until a full pass changes nothing; the return value is the
// total number of rewired vertices.
//
// The rule deliberately requires the parent's list to have length exactly
// one. Rewiring past a parent with an empty list (a commit) would leave the
// vertex with no parents and the lookup, which emits every parentless vertex
// it reaches as a commit, would start reporting the blob itself.
func (g *Graph) OptimizeTopology() int {
	rewired := 0
	for {
		n := 0
		for v := range g.edges {
			if len(g.edges[v]) != 1 {
				continue
			}
			p := g.edges[v][0]
			if len(g.edges[p]) != 1 {
				continue
			}
			g.edges[v][0] = g.edges[p][0]
			n++
		}
		if n == 0 {
			break
		}
		rewired += n
	}
	return rewired
}

// Compact shrinks every parent list to its exact length. Purely memory
// hygiene; applying it twice is the same as once.
func (g *Graph) Compact() {
	for i, e := range g.edges {
		if cap(e) > len(e) {
			exact := make([]uint32, len(e))
			copy(exact, e)
			g.edges[i] = exact
		}
	}
}

// Lookup resolves a blob id to the commits it is reachable from, appending
// their digests to out. out is truncated first; an unknown digest yields an
// empty result. The same commit may appear more than once when the graph
// fans in through multiple paths.
func (g *Graph) Lookup(oid plumbing.Hash, stack *Stack, out *[]plumbing.Hash) {
	*out = (*out)[:0]
	g.lookupHashes(oid, stack, out)
}

// LookupIdx is Lookup, but emits vertex ids instead of digests.
func (g *Graph) LookupIdx(oid plumbing.Hash, stack *Stack, out *[]uint64) {
	*out = (*out)[:0]
	g.lookupIndices(oid, stack, out, 0)
}

func (g *Graph) lookupHashes(oid plumbing.Hash, stack *Stack, out *[]plumbing.Hash) {
	idx, ok := g.table[oid]
	if !ok {
		return
	}
	stack.indices = append(stack.indices[:0], g.edges[idx]...)
	for len(stack.indices) > 0 {
		i := stack.indices[len(stack.indices)-1]
		stack.indices = stack.indices[:len(stack.indices)-1]
		if int(i) >= len(g.vertices) {
			panic(fmt.Sprintf("revindex: edge to out-of-range vertex %d of %d", i, len(g.vertices)))
		}
		if len(g.edges[i]) == 0 {
			*out = append(*out, g.vertices[i])
			continue
		}
		stack.indices = append(stack.indices, g.edges[i]...)
	}
}

func (g *Graph) lookupIndices(oid plumbing.Hash, stack *Stack, out *[]uint64, base uint64) {
	idx, ok := g.table[oid]
	if !ok {
		return
	}
	stack.indices = append(stack.indices[:0], g.edges[idx]...)
	for len(stack.indices) > 0 {
		i := stack.indices[len(stack.indices)-1]
		stack.indices = stack.indices[:len(stack.indices)-1]
		if int(i) >= len(g.vertices) {
			panic(fmt.Sprintf("revindex: edge to out-of-range vertex %d of %d", i, len(g.vertices)))
		}
		if len(g.edges[i]) == 0 {
			*out = append(*out, base+uint64(i))
			continue
		}
		stack.indices = append(stack.indices, g.edges[i]...)
	}
}
