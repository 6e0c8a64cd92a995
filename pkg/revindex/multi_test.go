package revindex

import (
	"context"
	"testing"

	"github.com/antgroup/whence/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a wider history: three commits, partially shared trees
func forkSource() *memSource {
	return &memSource{
		roots: map[plumbing.Hash]plumbing.Hash{
			commit1: tree1,
			commit2: tree2,
			oidOf(0x13): tree1,
		},
		trees: map[plumbing.Hash][]Entry{
			tree1: {{Hash: blob1}, {Hash: tree3, IsTree: true}},
			tree2: {{Hash: blob1}, {Hash: blob2}},
			tree3: {{Hash: blob2}},
		},
	}
}

func forkCommits() []plumbing.Hash {
	return []plumbing.Hash{commit1, commit2, oidOf(0x13)}
}

func memOpener(src Source) SourceOpener {
	return func(ctx context.Context) (Source, func(), error) {
		return src, func() {}, nil
	}
}

func multiLookupSet(t *testing.T, m *Multi, oid plumbing.Hash) map[plumbing.Hash]bool {
	t.Helper()
	var stack Stack
	var out []plumbing.Hash
	m.Lookup(oid, &stack, &out)
	set := make(map[plumbing.Hash]bool)
	for _, c := range out {
		set[c] = true
	}
	return set
}

// parallel chunked build answers exactly like a single-threaded one
func TestBuildAllMatchesSequential(t *testing.T) {
	src := forkSource()
	seq, _, err := Build(src, forkCommits(), &Options{}, nil)
	require.NoError(t, err)

	for _, threads := range []int{1, 2, 3, 8} {
		m, err := BuildAll(context.Background(), forkCommits(), memOpener(src), &Options{Threads: threads})
		require.NoError(t, err)
		for _, blob := range []plumbing.Hash{blob1, blob2, tree3, oidOf(0x7f)} {
			want := lookupSet(t, seq, blob)
			got := multiLookupSet(t, m, blob)
			assert.Equal(t, len(want), len(got), "blob %s with %d threads", blob, threads)
			for c := range want {
				assert.True(t, got[c], "blob %s missing %s with %d threads", blob, c, threads)
			}
		}
	}
}

func TestBuildAllEmpty(t *testing.T) {
	m, err := BuildAll(context.Background(), nil, memOpener(&memSource{}), &Options{Threads: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, multiLookupSet(t, m, blob1))
}

func TestMultiLookupIdxAndDigest(t *testing.T) {
	m, err := BuildAll(context.Background(), forkCommits(), memOpener(forkSource()), &Options{Threads: 2})
	require.NoError(t, err)

	var stack Stack
	var ids []uint64
	m.LookupIdx(blob1, &stack, &ids)
	require.NotEmpty(t, ids)
	seen := make(map[plumbing.Hash]bool)
	for _, id := range ids {
		seen[m.Digest(id)] = true
	}
	assert.Equal(t, multiLookupSet(t, m, blob1), seen)
}

func TestMultiLen(t *testing.T) {
	m, err := BuildAll(context.Background(), forkCommits(), memOpener(forkSource()), &Options{Threads: 3})
	require.NoError(t, err)
	total := 0
	for _, g := range m.Graphs() {
		total += g.Len()
	}
	assert.Equal(t, total, m.Len())
}
