package revindex

import (
	"fmt"
	"testing"

	"github.com/antgroup/whence/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource is an in-memory forward object graph.
type memSource struct {
	roots map[plumbing.Hash]plumbing.Hash
	trees map[plumbing.Hash][]Entry
}

func (s *memSource) RootTree(oid plumbing.Hash) (plumbing.Hash, error) {
	root, ok := s.roots[oid]
	if !ok {
		return plumbing.ZeroHash, fmt.Errorf("commit %s: %w", oid, ErrObjectNotFound)
	}
	return root, nil
}

func (s *memSource) TreeEntries(oid plumbing.Hash) ([]Entry, error) {
	entries, ok := s.trees[oid]
	if !ok {
		return nil, fmt.Errorf("tree %s: %w", oid, ErrObjectNotFound)
	}
	return entries, nil
}

func oidOf(n byte) plumbing.Hash {
	var h plumbing.Hash
	h[0] = n
	h[19] = n
	return h
}

var (
	commit1 = oidOf(0x11)
	commit2 = oidOf(0x12)
	tree1   = oidOf(0x21)
	tree2   = oidOf(0x22)
	tree3   = oidOf(0x23)
	blob1   = oidOf(0x31)
	blob2   = oidOf(0x32)
)

func lookupSet(t *testing.T, g *Graph, oid plumbing.Hash) map[plumbing.Hash]int {
	t.Helper()
	var stack Stack
	var out []plumbing.Hash
	g.Lookup(oid, &stack, &out)
	set := make(map[plumbing.Hash]int)
	for _, c := range out {
		set[c]++
	}
	return set
}

func checkInvariants(t *testing.T, g *Graph, commits []plumbing.Hash) {
	t.Helper()
	require.Equal(t, len(g.vertices), len(g.edges))
	require.Equal(t, len(g.vertices), len(g.table))
	for i, oid := range g.vertices {
		idx, ok := g.table[oid]
		require.True(t, ok)
		assert.Equal(t, uint32(i), idx)
	}
	for _, edges := range g.edges {
		for _, id := range edges {
			assert.Less(t, int(id), len(g.vertices))
		}
	}
	for _, oid := range commits {
		idx, ok := g.table[oid]
		require.True(t, ok)
		assert.Empty(t, g.edges[idx], "commit %s must stay a reverse-root", oid)
	}
}

// one commit, one tree, one blob
func TestLookupSingleCommit(t *testing.T) {
	src := &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: blob1}},
		},
	}
	g, edges, err := Build(src, []plumbing.Hash{commit1}, &Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, edges)
	checkInvariants(t, g, []plumbing.Hash{commit1})

	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, lookupSet(t, g, blob1))
	assert.Empty(t, lookupSet(t, g, blob2))
}

// two commits sharing the same root tree
func TestLookupSharedTree(t *testing.T) {
	src := &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1, commit2: tree1},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: blob1}},
		},
	}
	g, _, err := Build(src, []plumbing.Hash{commit1, commit2}, &Options{}, nil)
	require.NoError(t, err)
	checkInvariants(t, g, []plumbing.Hash{commit1, commit2})

	set := lookupSet(t, g, blob1)
	assert.Contains(t, set, commit1)
	assert.Contains(t, set, commit2)
	assert.Equal(t, 2, len(set))
	// the shared tree contributed edges, not a second expansion
	assert.Equal(t, 4, g.Len())
}

// nested trees
func TestLookupNestedTree(t *testing.T) {
	src := &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: blob1}, {Hash: tree2, IsTree: true}},
			tree2: {{Hash: blob2}},
		},
	}
	g, _, err := Build(src, []plumbing.Hash{commit1}, &Options{}, nil)
	require.NoError(t, err)
	checkInvariants(t, g, []plumbing.Hash{commit1})

	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, lookupSet(t, g, blob1))
	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, lookupSet(t, g, blob2))
	// tree digests resolve too: the index does not care what kind the
	// queried object is
	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, lookupSet(t, g, tree2))
}

func chainSource() *memSource {
	return &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: tree2, IsTree: true}},
			tree2: {{Hash: tree3, IsTree: true}},
			tree3: {{Hash: blob1}},
		},
	}
}

// single-child chain collapse
func TestOptimizeTopologyChain(t *testing.T) {
	g, _, err := Build(chainSource(), []plumbing.Hash{commit1}, &Options{NoCompact: true}, nil)
	require.NoError(t, err)

	before := lookupSet(t, g, blob1)
	rewired := g.OptimizeTopology()
	assert.Greater(t, rewired, 0)
	after := lookupSet(t, g, blob1)
	assert.Equal(t, before, after)
	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, after)

	// the blob now points at the commit directly
	blobIdx := g.table[blob1]
	require.Equal(t, 1, len(g.edges[blobIdx]))
	assert.Equal(t, g.table[commit1], g.edges[blobIdx][0])

	// a second run is a no-op
	assert.Equal(t, 0, g.OptimizeTopology())
	checkInvariants(t, g, []plumbing.Hash{commit1})
}

// optimize must never leave a non-commit vertex parentless
func TestOptimizeTopologyKeepsNonRootsParented(t *testing.T) {
	g, _, err := Build(chainSource(), []plumbing.Hash{commit1}, &Options{}, nil)
	require.NoError(t, err)
	commitIdx := g.table[commit1]
	for i := range g.edges {
		if uint32(i) == commitIdx {
			continue
		}
		assert.NotEmpty(t, g.edges[i], "vertex %s lost its parents", g.vertices[i])
	}
}

func TestCompactIdempotent(t *testing.T) {
	g, _, err := Build(chainSource(), []plumbing.Hash{commit1}, &Options{NoCompact: true}, nil)
	require.NoError(t, err)
	before := lookupSet(t, g, blob1)
	g.Compact()
	once := lookupSet(t, g, blob1)
	g.Compact()
	twice := lookupSet(t, g, blob1)
	assert.Equal(t, before, once)
	assert.Equal(t, once, twice)
	for _, e := range g.edges {
		assert.Equal(t, len(e), cap(e))
	}
}

func TestAppendDuplicatePanics(t *testing.T) {
	g := NewGraph()
	g.Append(commit1)
	assert.Panics(t, func() { g.Append(commit1) })
}

func TestLookupUnknownDigest(t *testing.T) {
	g := NewGraph()
	var stack Stack
	out := []plumbing.Hash{blob1} // stale content must be cleared
	g.Lookup(oidOf(0x7f), &stack, &out)
	assert.Empty(t, out)
}

func TestBuildSkipsMissingCommit(t *testing.T) {
	src := &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: blob1}},
		},
	}
	g, _, err := Build(src, []plumbing.Hash{commit2, commit1}, &Options{}, nil)
	require.NoError(t, err)
	_, ok := g.table[commit2]
	assert.False(t, ok)
	assert.Equal(t, map[plumbing.Hash]int{commit1: 1}, lookupSet(t, g, blob1))
}

func TestBuildMissingTreeIsFatal(t *testing.T) {
	src := &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{commit1: tree1},
		trees: map[plumbing.Hash][]Entry{},
	}
	_, _, err := Build(src, []plumbing.Hash{commit1}, &Options{}, nil)
	require.Error(t, err)
}

func TestBuildEmpty(t *testing.T) {
	g, edges, err := Build(&memSource{}, nil, &Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, edges)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, lookupSet(t, g, blob1))
}
