package experiments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/tkscode/jupyterlab/artifacts"
	"github.com/tkscode/jupyterlab/tracking"
)

var (
	ErrNoExperiment     = errors.New("experiment name is required")
	ErrInvalidEntryName = errors.New("entry name must be a relative path inside its category")
)

// Publisher stages experiment artifacts and records them as a tracking run.
type Publisher struct {
	fs         afero.Fs
	out        io.Writer
	dumper     *artifacts.Dumper
	recorder   Recorder
	newTracker TrackerFactory

	// DefaultTrackingURI is used when a request names no server.
	DefaultTrackingURI string
	// DefaultRepoDir is used when a request names no repository.
	DefaultRepoDir string
}

// NewPublisher returns a Publisher staging on fs and narrating to out.
// recorder may be nil when commits are never requested.
func NewPublisher(fs afero.Fs, out io.Writer, recorder Recorder, newTracker TrackerFactory) *Publisher {
	if out == nil {
		out = io.Discard
	}
	return &Publisher{
		fs:             fs,
		out:            out,
		dumper:         artifacts.NewDumper(fs, nil),
		recorder:       recorder,
		newTracker:     newTracker,
		DefaultRepoDir: ".",
	}
}

// WithOutput returns a copy of p narrating to out.
func (p *Publisher) WithOutput(out io.Writer) *Publisher {
	cp := *p
	cp.out = out
	return &cp
}

// Publish snapshots req into a new run of its experiment. The staging
// directory is removed on every path.
func (p *Publisher) Publish(ctx context.Context, req Request) (err error) {
	if req.ExperimentName == "" {
		return ErrNoExperiment
	}
	if err := validateEntryNames(req); err != nil {
		return err
	}
	uri := req.TrackingURI
	if uri == "" {
		uri = p.DefaultTrackingURI
	}
	repoDir := req.GitRepoDir
	if repoDir == "" {
		repoDir = p.DefaultRepoDir
	}

	tracker := p.newTracker(uri)
	exp, err := tracker.SetExperiment(ctx, req.ExperimentName)
	if err != nil {
		return fmt.Errorf("failed to set experiment %s: %w", req.ExperimentName, err)
	}

	tmpDir, err := afero.TempDir(p.fs, "", "experiment-")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() {
		if rmErr := p.fs.RemoveAll(tmpDir); rmErr != nil {
			logrus.Warnf("failed to remove staging dir %s: %v", tmpDir, rmErr)
		}
	}()
	p.say("- make temporary dir")
	p.say("    dir: %s", tmpDir)

	stages := []struct {
		name    string
		entries map[string]any
		tags    []artifacts.TypeTag
	}{
		{DatasetDir, req.Dataset, artifacts.DataTags},
		{ModelDir, req.Model, artifacts.ModelTags},
		{ResultDir, req.Result, artifacts.DataTags},
	}
	for _, s := range stages {
		if err := p.stage(filepath.Join(tmpDir, s.name), s.name, s.entries, s.tags); err != nil {
			return err
		}
	}

	staged, err := artifacts.Summarize(p.fs, tmpDir)
	if err != nil {
		return fmt.Errorf("failed to list staging dir: %w", err)
	}
	p.say("- staged %d files", len(staged))
	for _, line := range staged {
		p.say("    %s", line)
	}

	var commit string
	if req.DoGitCommit {
		if p.recorder == nil {
			return errors.New("git commit requested but no recorder is configured")
		}
		p.say("- commit notebook file")
		commit, err = p.recorder.CommitNotebook(ctx, repoDir)
		if err != nil {
			return fmt.Errorf("failed to commit notebook: %w", err)
		}
		p.say("    hash: %s", commit)
	}

	p.say("- upload data to MLFlow")
	run, err := tracker.CreateRun(ctx, exp.ExperimentID, req.RunName, nil)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	defer func() {
		status := tracking.RunFinished
		if err != nil {
			status = tracking.RunFailed
		}
		if endErr := tracker.UpdateRun(ctx, run.RunID, status); endErr != nil && err == nil {
			err = fmt.Errorf("failed to end run %s: %w", run.RunID, endErr)
		}
	}()

	tags, err := p.runTags(req.Description, commit, repoDir)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(tags) {
		if err := tracker.SetTag(ctx, run.RunID, k, tags[k]); err != nil {
			return fmt.Errorf("failed to set tag %s: %w", k, err)
		}
	}

	params := make(map[string]string, len(req.Params))
	for k, v := range req.Params {
		params[k] = fmt.Sprint(v)
	}
	if err := tracker.LogBatch(ctx, run.RunID, params, req.Metrics); err != nil {
		return fmt.Errorf("failed to log params and metrics: %w", err)
	}

	if err := tracker.LogArtifacts(ctx, run, tmpDir); err != nil {
		return err
	}
	logrus.Infof("published run %s to experiment %s", run.RunID, req.ExperimentName)
	return nil
}

func (p *Publisher) stage(dir, name string, entries map[string]any, tags []artifacts.TypeTag) error {
	p.say("- save %s to temporary dir", name)
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", name, err)
	}
	for _, key := range sortedKeys(entries) {
		dst := filepath.Join(dir, key)
		p.say("    file: %s", dst)
		if err := p.dumper.Dump(entries[key], dst, tags); err != nil {
			return fmt.Errorf("failed to save %s %s: %w", name, key, err)
		}
	}
	return nil
}

// validateEntryNames rejects names that would resolve outside their
// category directory.
func validateEntryNames(req Request) error {
	for category, entries := range map[string]map[string]any{
		DatasetDir: req.Dataset,
		ModelDir:   req.Model,
		ResultDir:  req.Result,
	} {
		for name := range entries {
			if !filepath.IsLocal(name) {
				return fmt.Errorf("%w: %s %q", ErrInvalidEntryName, category, name)
			}
		}
	}
	return nil
}

// runTags returns the note tag and, when a commit was made, its provenance.
func (p *Publisher) runTags(description, commit, repoDir string) (map[string]string, error) {
	tags := map[string]string{tracking.TagNote: description}
	if commit == "" {
		return tags, nil
	}

	remote, err := p.recorder.RemoteURL(repoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote url: %w", err)
	}
	branch, err := p.recorder.Branch(repoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read branch: %w", err)
	}
	if remote != "" {
		tags[tracking.TagGitRepoURL] = remote
	}
	tags[tracking.TagGitBranch] = branch
	tags[tracking.TagGitCommit] = commit
	return tags, nil
}

func (p *Publisher) say(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
