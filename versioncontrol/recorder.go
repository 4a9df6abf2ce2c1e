package versioncontrol

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"

	"github.com/tkscode/jupyterlab/labs/jupyterlabs"
)

var (
	ErrMirrorMissing     = errors.New("paired notebook script not found")
	ErrOutsideRepository = errors.New("notebook is outside the repository worktree")
)

// NotebookLocator finds the notebook backing the running kernel.
type NotebookLocator interface {
	Locate(ctx context.Context) (*jupyterlabs.NotebookInfo, error)
}

// Recorder commits the calling notebook and its jupytext mirror.
type Recorder struct {
	NotebookRoot    string
	MirrorExtension string
	Locator         NotebookLocator
	Frontend        jupyterlabs.Frontend

	// AuthorName and AuthorEmail are used when git config has no user.
	AuthorName  string
	AuthorEmail string
}

func NewRecorder(locator NotebookLocator, frontend jupyterlabs.Frontend) *Recorder {
	return &Recorder{
		NotebookRoot:    jupyterlabs.DefaultNotebookRoot,
		MirrorExtension: jupyterlabs.DefaultMirrorExtension,
		Locator:         locator,
		Frontend:        frontend,
		AuthorName:      "jupyter",
		AuthorEmail:     "jupyter@localhost",
	}
}

// CommitNotebook commits the notebook of the current session to the
// repository at repoDir and returns the commit hash. It returns "" when the
// kernel is not attached to any session.
//
// The save request sent to the front-end is not awaited, so the commit may
// pick up the previously saved content.
func (r *Recorder) CommitNotebook(ctx context.Context, repoDir string) (string, error) {
	jupyterlabs.RequestSave(r.Frontend)

	nb, err := r.Locator.Locate(ctx)
	if err != nil {
		return "", err
	}
	if nb == nil {
		logrus.Info("notebook not found in live sessions, skipping commit")
		return "", nil
	}

	notebookPath := filepath.Join(r.NotebookRoot, nb.Path)
	mirrorPath := MirrorPath(notebookPath, r.MirrorExtension)

	repo, err := openRepository(repoDir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	var paths []string
	for _, p := range []string{notebookPath, mirrorPath} {
		if _, err := os.Stat(p); err != nil {
			if p == mirrorPath && errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrMirrorMissing, p)
			}
			return "", err
		}
		rel, err := worktreePath(wt.Filesystem.Root(), p)
		if err != nil {
			return "", err
		}
		paths = append(paths, rel)
	}
	for _, rel := range paths {
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}

	hash, err := wt.Commit(fmt.Sprintf("[Auto] Update %s", nb.Path), &git.CommitOptions{
		Author: r.signature(repo),
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit %s: %w", nb.Path, err)
	}

	logrus.Infof("committed %s as %s", nb.Path, hash)
	return hash.String(), nil
}

func (r *Recorder) signature(repo *git.Repository) *object.Signature {
	sig := &object.Signature{Name: r.AuthorName, Email: r.AuthorEmail, When: time.Now()}
	cfg, err := repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		logrus.Debugf("failed to read git config: %v", err)
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}

// MirrorPath returns the path of the script paired with a notebook.
func MirrorPath(notebookPath, ext string) string {
	if ext == "" {
		ext = jupyterlabs.DefaultMirrorExtension
	}
	return strings.TrimSuffix(notebookPath, jupyterlabs.NotebookExtension) + ext
}

func worktreePath(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, p)
	}
	return filepath.ToSlash(rel), nil
}

// RemoteURL reports the normalized remote of the repository at repoDir.
func (r *Recorder) RemoteURL(repoDir string) (string, error) { return RemoteURL(repoDir) }

// Branch reports the branch checked out in the repository at repoDir.
func (r *Recorder) Branch(repoDir string) (string, error) { return Branch(repoDir) }
