package versioncontrol

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var ErrDetachedHead = errors.New("HEAD is not on a branch")

var sshRemotePattern = regexp.MustCompile(`git@([^:]+:?[0-9]*):([^\.]+)\.git`)

func openRepository(repoDir string) (*git.Repository, error) {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", repoDir, err)
	}
	return repo, nil
}

// RemoteURL returns the web URL of the repository's origin remote, or the
// first remote by name when there is no origin. It returns "" when no remote is
// configured or its URL has an unknown form.
func RemoteURL(repoDir string) (string, error) {
	repo, err := openRepository(repoDir)
	if err != nil {
		return "", err
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}
	if len(remotes) == 0 {
		return "", nil
	}

	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].Config().Name < remotes[j].Config().Name
	})
	remote := remotes[0]
	for _, r := range remotes {
		if r.Config().Name == git.DefaultRemoteName {
			remote = r
			break
		}
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	normalized, _ := NormalizeRemoteURL(urls[0])
	return normalized, nil
}

// NormalizeRemoteURL rewrites git@host:org/repo.git as https://host/org/repo.
// http(s) URLs are returned unchanged.
func NormalizeRemoteURL(raw string) (string, bool) {
	if strings.HasPrefix(raw, "http") {
		return raw, true
	}
	m := sshRemotePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("https://%s/%s", m[1], m[2]), true
}

// Branch returns the name of the checked out branch. It works on a
// repository without commits.
func Branch(repoDir string) (string, error) {
	repo, err := openRepository(repoDir)
	if err != nil {
		return "", err
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Target().Short(), nil
}
