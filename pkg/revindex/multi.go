package revindex

import (
	"context"
	"runtime"

	"github.com/antgroup/whence/modules/plumbing"
	"golang.org/x/sync/errgroup"
)

// Multi is the full index: one graph per build chunk, in commit-list order.
// Merging them would mean renumbering every edge list; instead lookups run
// against each graph in turn and concatenate, which costs a map probe per
// graph and nothing more. Vertex ids become global by adding the cumulative
// offset of the owning graph.
type Multi struct {
	graphs  []*Graph
	offsets []uint64
}

func NewMulti(graphs []*Graph) *Multi {
	m := &Multi{graphs: graphs, offsets: make([]uint64, len(graphs))}
	var off uint64
	for i, g := range graphs {
		m.offsets[i] = off
		off += uint64(g.Len())
	}
	return m
}

// Len returns the total number of vertices across all graphs.
func (m *Multi) Len() int {
	n := 0
	for _, g := range m.graphs {
		n += g.Len()
	}
	return n
}

// Graphs returns the per-chunk graphs in chunk order.
func (m *Multi) Graphs() []*Graph {
	return m.graphs
}

// Digest resolves a global vertex id back to its object id.
func (m *Multi) Digest(id uint64) plumbing.Hash {
	for i := len(m.graphs) - 1; i >= 0; i-- {
		if id >= m.offsets[i] {
			return m.graphs[i].Digest(uint32(id - m.offsets[i]))
		}
	}
	return plumbing.ZeroHash
}

// Lookup appends the digests of every commit the blob is reachable from,
// across all graphs.
func (m *Multi) Lookup(oid plumbing.Hash, stack *Stack, out *[]plumbing.Hash) {
	*out = (*out)[:0]
	for _, g := range m.graphs {
		g.lookupHashes(oid, stack, out)
	}
}

// LookupIdx is Lookup with global vertex ids instead of digests.
func (m *Multi) LookupIdx(oid plumbing.Hash, stack *Stack, out *[]uint64) {
	*out = (*out)[:0]
	for i, g := range m.graphs {
		g.lookupIndices(oid, stack, out, m.offsets[i])
	}
}

// SourceOpener opens a private object source handle for one worker. The
// returned func closes it.
type SourceOpener func(ctx context.Context) (Source, func(), error)

// BuildAll partitions commits into contiguous chunks, builds one graph per
// chunk on its own goroutine with its own source handle, and assembles the
// graphs in chunk order. Chunks are static: contiguous history tends to
// share subtrees, and it keeps the hot path free of any synchronization.
func BuildAll(ctx context.Context, commits []plumbing.Hash, open SourceOpener, opts *Options) (*Multi, error) {
	if len(commits) == 0 {
		return NewMulti(nil), nil
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > len(commits) {
		threads = len(commits)
	}
	chunkLen := (len(commits) + threads - 1) / threads
	chunks := make([][]plumbing.Hash, 0, threads)
	for lo := 0; lo < len(commits); lo += chunkLen {
		hi := min(lo+chunkLen, len(commits))
		chunks = append(chunks, commits[lo:hi])
	}

	graphs := make([]*Graph, len(chunks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		group.Go(func() error {
			src, closeFn, err := open(groupCtx)
			if err != nil {
				return err
			}
			defer closeFn()
			var bar Progress
			if opts.NewProgress != nil {
				bar = opts.NewProgress(i, len(chunk))
			}
			g, _, err := Build(src, chunk, opts, bar)
			if err != nil {
				return err
			}
			graphs[i] = g
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return NewMulti(graphs), nil
}
