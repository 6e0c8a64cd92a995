package git

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/antgroup/whence/modules/command"
	"github.com/antgroup/whence/modules/plumbing"
)

const (
	refRemotePrefix = "refs/remotes/"
)

// RevParseHEAD resolves HEAD to a commit object id.
func RevParseHEAD(ctx context.Context, repoPath string) (plumbing.Hash, error) {
	stderr := command.NewStderr()
	cmd := command.NewFromOptions(ctx, &command.RunOpts{RepoPath: repoPath, Stderr: stderr},
		"git", "rev-parse", "--verify", "HEAD^{commit}")
	line, err := cmd.OneLine()
	if err != nil {
		return plumbing.ZeroHash, NewRevisionNotFound("HEAD")
	}
	return plumbing.NewHashEx(line)
}

// RemoteHeads lists the commit ids of all remote-tracking branches.
func RemoteHeads(ctx context.Context, repoPath string) ([]plumbing.Hash, error) {
	cmd := command.New(ctx, repoPath, "git", "for-each-ref", "--format=%(objectname)", refRemotePrefix)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	defer stdout.Close()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	var heads []plumbing.Hash
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		oid, err := plumbing.NewHashEx(strings.TrimSpace(scanner.Text()))
		if err != nil {
			continue
		}
		heads = append(heads, oid)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("for-each-ref error: %w", err)
	}
	return heads, nil
}

// walkRoots selects the traversal roots: HEAD when headOnly is set, all
// remote-tracking branches otherwise, HEAD again when no remote exists.
func walkRoots(ctx context.Context, repoPath string, headOnly bool) ([]plumbing.Hash, error) {
	if headOnly {
		head, err := RevParseHEAD(ctx, repoPath)
		if err != nil {
			return nil, err
		}
		return []plumbing.Hash{head}, nil
	}
	heads, err := RemoteHeads(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		fmt.Fprintln(os.Stderr, "warning: didn't find a single remote - using HEAD instead to avoid empty traversal")
		head, err := RevParseHEAD(ctx, repoPath)
		if IsErrNotExist(err) {
			// unborn HEAD in an empty repository: nothing to traverse
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []plumbing.Hash{head}, nil
	}
	return heads, nil
}

// RevList materializes the full commit list reachable from the traversal
// roots in topological order, children before parents.
func RevList(ctx context.Context, repoPath string, headOnly bool) ([]plumbing.Hash, error) {
	roots, err := walkRoots(ctx, repoPath, headOnly)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}
	psArgs := make([]string, 0, len(roots)+3)
	psArgs = append(psArgs, "rev-list", "--topo-order")
	for _, oid := range roots {
		psArgs = append(psArgs, oid.String())
	}
	stderr := command.NewStderr()
	cmd := command.NewFromOptions(ctx, &command.RunOpts{RepoPath: repoPath, Stderr: stderr},
		"git", psArgs...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	defer stdout.Close()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	commits := make([]plumbing.Hash, 0, 4096)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		oid, err := plumbing.NewHashEx(strings.TrimSpace(scanner.Text()))
		if err != nil {
			return nil, err
		}
		commits = append(commits, oid)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("rev-list error: %w stderr: %v", err, stderr.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning rev-list output: %w", err)
	}
	return commits, nil
}
