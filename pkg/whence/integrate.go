// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package whence

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/antgroup/whence/modules/git"
	"github.com/antgroup/whence/modules/plumbing"
	"github.com/antgroup/whence/pkg/revindex"
	"github.com/bits-and-blooms/bitset"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// integrate blob-hashes every regular file below the tree and resolves the
// lot against the index through a bounded fan-out, ending in one bitset per
// matching commit that records which of the queried blobs it contains.
func (a *App) integrate(m *revindex.Multi) error {
	blobs, err := hashTree(a.Tree)
	if err != nil {
		return err
	}
	a.DbgPrint("hashed %d files below %s", len(blobs), a.Tree)

	bits, totalCommits := tickBlobBits(m, blobs, a.Threads)
	fmt.Fprintf(os.Stderr, "Ticked %d blob bits in %d commits\n", len(blobs), totalCommits)

	return reportCoverage(os.Stdout, m, bits, len(blobs))
}

// tickBlobBits resolves every blob against the index through a bounded
// producer/worker/collector pipeline. The channel capacities equal the
// worker count, so a slow collector backpressures the workers and a slow
// index backpressures the producer. Results correlate by blob index, not by
// arrival order. The returned slice has one entry per index vertex; only
// commit vertices that matched carry a bitset.
func tickBlobBits(m *revindex.Multi, blobs []plumbing.Hash, threads int) ([]*bitset.BitSet, int) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	type request struct {
		bid int
		oid plumbing.Hash
	}
	type result struct {
		bid     int
		commits []uint64
	}
	in := make(chan request, threads)
	out := make(chan result, threads)

	go func() {
		for bid, oid := range blobs {
			in <- request{bid: bid, oid: oid}
		}
		close(in)
	}()
	var wg sync.WaitGroup
	for range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var stack revindex.Stack
			var ids []uint64
			for req := range in {
				m.LookupIdx(req.oid, &stack, &ids)
				commits := make([]uint64, len(ids))
				copy(commits, ids)
				out <- result{bid: req.bid, commits: commits}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	bits := make([]*bitset.BitSet, m.Len())
	totalCommits := 0
	for res := range out {
		for _, id := range res.commits {
			b := bits[id]
			if b == nil {
				b = bitset.New(uint(len(blobs)))
				bits[id] = b
			}
			b.Set(uint(res.bid))
		}
		totalCommits += len(res.commits)
	}
	return bits, totalCommits
}

// reportCoverage prints every matching commit with the number of queried
// blobs it contains, best cover first. Picking a minimal covering commit set
// on top of this is up to the caller.
func reportCoverage(w io.Writer, m *revindex.Multi, bits []*bitset.BitSet, numBlobs int) error {
	type coverage struct {
		oid   plumbing.Hash
		count uint
	}
	covered := make([]coverage, 0, 64)
	for id, b := range bits {
		if b == nil {
			continue
		}
		covered = append(covered, coverage{oid: m.Digest(uint64(id)), count: b.Count()})
	}
	sort.Slice(covered, func(i, j int) bool {
		if covered[i].count != covered[j].count {
			return covered[i].count > covered[j].count
		}
		return covered[i].oid.String() < covered[j].oid.String()
	})
	out := bufio.NewWriter(w)
	for _, c := range covered {
		fmt.Fprintf(out, "%s %d/%d\n", c.oid, c.count, numBlobs)
	}
	return out.Flush()
}

// hashTree walks the directory in lexical order, skipping anything that is
// not a regular file, and blob-hashes each file's contents. Symbolic links
// are not followed.
func hashTree(root string) ([]plumbing.Hash, error) {
	p := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithAutoRefresh(),
	)
	bar := p.New(0,
		mpb.SpinnerStyle(),
		mpb.PrependDecorators(decor.Name("hashing")),
		mpb.AppendDecorators(decor.CurrentNoUnit("%d files")),
	)
	var blobs []plumbing.Hash
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || !d.Type().IsRegular() {
			return nil
		}
		oid, err := git.HashFile(path)
		if err != nil {
			return fmt.Errorf("could not hash file '%s': %w", path, err)
		}
		blobs = append(blobs, oid)
		bar.Increment()
		return nil
	})
	bar.SetTotal(-1, true)
	p.Wait()
	if err != nil {
		return nil, err
	}
	return blobs, nil
}
