// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package whence

import (
	"context"
	"fmt"

	"github.com/antgroup/whence/modules/git"
	"github.com/antgroup/whence/modules/plumbing"
	"github.com/antgroup/whence/pkg/revindex"
)

// gitSource adapts a cat-file decoder handle to the builder's view of the
// forward object graph.
type gitSource struct {
	d *git.Decoder
}

func (s *gitSource) RootTree(oid plumbing.Hash) (plumbing.Hash, error) {
	cc, err := s.d.Commit(oid)
	if err != nil {
		if git.IsErrNotExist(err) {
			return plumbing.ZeroHash, fmt.Errorf("commit %s: %w", oid, revindex.ErrObjectNotFound)
		}
		return plumbing.ZeroHash, err
	}
	return cc.Tree, nil
}

func (s *gitSource) TreeEntries(oid plumbing.Hash) ([]revindex.Entry, error) {
	tree, err := s.d.Tree(oid)
	if err != nil {
		if git.IsErrNotExist(err) {
			return nil, fmt.Errorf("tree %s: %w", oid, revindex.ErrObjectNotFound)
		}
		return nil, err
	}
	entries := make([]revindex.Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		switch e.Type() {
		case git.TreeObject:
			entries = append(entries, revindex.Entry{Hash: e.Hash, IsTree: true})
		case git.BlobObject:
			entries = append(entries, revindex.Entry{Hash: e.Hash})
		default:
			// gitlinks point outside this repository's object store
		}
	}
	return entries, nil
}

func sourceOpener(repoPath string) revindex.SourceOpener {
	return func(ctx context.Context) (revindex.Source, func(), error) {
		d, err := git.NewDecoder(ctx, repoPath)
		if err != nil {
			return nil, nil, err
		}
		return &gitSource{d: d}, func() { _ = d.Close() }, nil
	}
}
