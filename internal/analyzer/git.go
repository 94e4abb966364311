package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitChanges represents the result of git diff analysis
type GitChanges struct {
	Base  string
	Files []string // changed paths relative to the repository root
}

// GetGitChanges returns the files changed relative to base.
// If base is empty, it compares with HEAD (uncommitted changes).
// When the diff fails (e.g., no commits yet) it falls back to modified and
// untracked files.
func GetGitChanges(ctx context.Context, projectPath string, base string) (*GitChanges, error) {
	if base == "" {
		base = "HEAD"
	}

	output, err := runGit(ctx, projectPath, "diff", "--name-only", base)
	if err != nil {
		output, err = runGit(ctx, projectPath, "ls-files", "--modified", "--others", "--exclude-standard")
		if err != nil {
			return nil, fmt.Errorf("git changes: %w", err)
		}
	}

	changes := &GitChanges{Base: base}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" || seen[file] {
			continue
		}
		seen[file] = true
		changes.Files = append(changes.Files, file)
	}
	return changes, scanner.Err()
}

// HasChanges returns true if any file changed
func (g *GitChanges) HasChanges() bool {
	return len(g.Files) > 0
}

// String returns a summary string of the changes
func (g *GitChanges) String() string {
	return fmt.Sprintf("%d files changed since %s", len(g.Files), g.Base)
}

// GetRemoteTrackingBranch returns the upstream of the current branch,
// e.g. "origin/main"
func GetRemoteTrackingBranch(ctx context.Context, projectPath string) (string, error) {
	output, err := runGit(ctx, projectPath, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return "", fmt.Errorf("resolve remote tracking branch: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "", fmt.Errorf("current branch has no remote tracking branch")
	}
	return branch, nil
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}
