// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gitrange resolves the commit range that makes up a release window.
package gitrange

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Resolver lists release commits from a local git repository by asking git.
type Resolver struct {
	dir string
}

// New creates a Resolver running git in the given working directory.
// An empty dir means the process working directory.
func New(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Commits returns the SHAs reachable from releaseRef but not baseRef, newest
// first (git log order). It fails when HEAD is detached or when baseRef does
// not resolve; both conditions abort the run before any network work happens.
func (r *Resolver) Commits(ctx context.Context, baseRef, releaseRef string) ([]string, error) {
	if err := r.git(ctx, "symbolic-ref", "--quiet", "HEAD"); err != nil {
		return nil, fmt.Errorf("currently on a detached HEAD: %w", err)
	}
	if err := r.git(ctx, "rev-parse", "--verify", baseRef); err != nil {
		return nil, fmt.Errorf("base ref %s not found: %w", baseRef, err)
	}

	out, err := r.gitOutput(ctx, "log", "--format=%H", baseRef+".."+releaseRef)
	if err != nil {
		return nil, fmt.Errorf("listing commits %s..%s: %w", baseRef, releaseRef, err)
	}

	var commits []string
	for _, line := range strings.Split(out, "\n") {
		if sha := strings.TrimSpace(line); sha != "" {
			commits = append(commits, sha)
		}
	}

	slog.Info("resolved release commit range",
		"base", baseRef,
		"release", releaseRef,
		"commits", len(commits),
	)
	return commits, nil
}

func (r *Resolver) git(ctx context.Context, args ...string) error {
	_, err := r.gitOutput(ctx, args...)
	return err
}

func (r *Resolver) gitOutput(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
