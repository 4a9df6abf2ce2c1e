package experiments

import (
	"context"

	"github.com/tkscode/jupyterlab/tracking"
)

const (
	DatasetDir = "dataset"
	ModelDir   = "model"
	ResultDir  = "result"
)

// Request describes one snapshot of a notebook experiment. Dataset, Model
// and Result map output file names to the values to stage under them.
type Request struct {
	ExperimentName string
	RunName        string
	Description    string
	Params         map[string]any
	Metrics        map[string]float64
	Dataset        map[string]any
	Model          map[string]any
	Result         map[string]any
	DoGitCommit    bool
	GitRepoDir     string
	TrackingURI    string
}

// Tracker is the part of the tracking server a publish uses.
type Tracker interface {
	SetExperiment(ctx context.Context, name string) (*tracking.Experiment, error)
	CreateRun(ctx context.Context, experimentID, runName string, tags map[string]string) (*tracking.RunInfo, error)
	SetTag(ctx context.Context, runID, key, value string) error
	LogBatch(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error
	LogArtifacts(ctx context.Context, run *tracking.RunInfo, localDir string) error
	UpdateRun(ctx context.Context, runID string, status tracking.RunStatus) error
}

// TrackerFactory returns a Tracker for a tracking server URI.
type TrackerFactory func(trackingURI string) Tracker

// Recorder commits notebooks and reads repository provenance.
type Recorder interface {
	CommitNotebook(ctx context.Context, repoDir string) (string, error)
	RemoteURL(repoDir string) (string, error)
	Branch(repoDir string) (string, error)
}
