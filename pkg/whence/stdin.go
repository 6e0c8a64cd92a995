// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package whence

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/antgroup/whence/modules/plumbing"
	"github.com/antgroup/whence/pkg/revindex"
)

// deplete serves the line-oriented query protocol: one hex blob id per line
// on stdin, one line of space-separated commit ids per query on stdout, an
// empty line meaning no matches. Output is flushed after every query so the
// process can sit behind an interactive caller.
func (a *App) deplete(m *revindex.Multi) error {
	scanner := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	var stack revindex.Stack
	var commits []plumbing.Hash
	seen := make(map[plumbing.Hash]bool)

	fmt.Fprintln(os.Stderr, "Waiting for input...")
	numBlobs, totalCommits := 0, 0
	for scanner.Scan() {
		oid, err := plumbing.NewHashEx(strings.TrimSpace(scanner.Text()))
		if err != nil {
			return err
		}
		numBlobs++
		m.Lookup(oid, &stack, &commits)
		clear(seen)
		for _, c := range commits {
			if seen[c] {
				continue
			}
			if len(seen) != 0 {
				_ = out.WriteByte(' ')
			}
			seen[c] = true
			_, _ = out.WriteString(c.String())
			totalCommits++
		}
		_ = out.WriteByte('\n')
		if err := out.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "DONE: looked up %d blobs with a total of %d commits\n", numBlobs, totalCommits)
	return nil
}
