// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package whence

import (
	"context"
	"fmt"
	"os"

	"github.com/antgroup/whence/modules/git"
	"github.com/antgroup/whence/modules/trace"
	"github.com/antgroup/whence/pkg/revindex"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type App struct {
	Repository string `arg:"" name:"repository" help:"The repository to index for queries" type:"existingdir"`
	Tree       string `arg:"" optional:"" name:"tree-to-integrate" help:"A directory tree whose files are resolved against the index in one batch"`
	Threads    int    `short:"t" name:"threads" help:"Amount of worker threads, defaults to the number of CPU cores"`
	HeadOnly   bool   `name:"head-only" help:"Traverse only commits reachable from the checked-out HEAD instead of all remote branches"`
	CachePath  string `name:"cache-path" help:"Load the index from this file when it exists, build and save it otherwise" type:"path"`
	NoCompact  bool   `name:"no-compact" help:"Trade in about 35% more memory for about 30% less time till ready for queries"`
	Verbose    bool   `short:"V" name:"verbose" help:"Make the operation more talkative"`
}

func (a *App) DbgPrint(format string, args ...any) {
	trace.NewDebuger(a.Verbose).DbgPrint(format, args...)
}

func (a *App) Run(ctx context.Context) error {
	repoPath := git.RevParseRepoPath(ctx, a.Repository)
	format, err := git.RevParseObjectFormat(ctx, repoPath)
	if err != nil {
		return &ErrExitCode{ExitCode: 128, Message: fmt.Sprintf("'%s' is not a readable repository: %v", a.Repository, err)}
	}
	if format != "sha1" {
		return &ErrExitCode{ExitCode: 128, Message: fmt.Sprintf("repository object format '%s' is not supported", format)}
	}
	a.DbgPrint("repository: %s", repoPath)
	m, err := a.openIndex(ctx, repoPath)
	if err != nil {
		return err
	}
	if len(a.Tree) != 0 {
		return a.integrate(m)
	}
	return a.deplete(m)
}

// openIndex loads the cache when one is configured and present, and builds
// (then saves) the index otherwise.
func (a *App) openIndex(ctx context.Context, repoPath string) (*revindex.Multi, error) {
	if len(a.CachePath) != 0 {
		if _, err := os.Stat(a.CachePath); err == nil {
			a.DbgPrint("loading index from %s", a.CachePath)
			m, err := revindex.LoadFile(a.CachePath)
			if err != nil {
				return nil, fmt.Errorf("load index cache '%s': %w", a.CachePath, err)
			}
			return m, nil
		}
	}
	m, err := a.build(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	if len(a.CachePath) != 0 {
		a.DbgPrint("saving index to %s", a.CachePath)
		if err := revindex.SaveFile(m, a.CachePath); err != nil {
			return nil, fmt.Errorf("save index cache '%s': %w", a.CachePath, err)
		}
	}
	return m, nil
}

func (a *App) build(ctx context.Context, repoPath string) (*revindex.Multi, error) {
	commits, err := git.RevList(ctx, repoPath, a.HeadOnly)
	if err != nil {
		return nil, err
	}
	if a.NoCompact {
		warn("not compacting memory will save about 1/3 of used time, at the cost of about 35%% more memory")
	}
	p := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithAutoRefresh(),
	)
	opts := &revindex.Options{
		Threads:   a.Threads,
		NoCompact: a.NoCompact,
		NewProgress: func(chunk, commits int) revindex.Progress {
			return p.New(int64(commits),
				mpb.BarStyle().Filler("#").Padding(" "),
				mpb.PrependDecorators(
					decor.Name(fmt.Sprintf("worker-%d", chunk)),
				),
				mpb.AppendDecorators(
					decor.CountersNoUnit("%d / %d"),
				),
			)
		},
	}
	m, err := revindex.BuildAll(ctx, commits, sourceOpener(repoPath), opts)
	if err != nil {
		return nil, err
	}
	p.Wait()
	fmt.Fprintf(os.Stderr, "READY: built reverse index from %d commits with a table of %d entries\n", len(commits), m.Len())
	return m, nil
}
