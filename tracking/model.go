package tracking

// Tag keys understood by the MLflow UI.
const (
	TagRunName     = "mlflow.runName"
	TagNote        = "mlflow.note.content"
	TagGitRepoURL  = "mlflow.source.git.repoURL"
	TagGitBranch   = "mlflow.source.git.branch"
	TagGitCommit   = "mlflow.source.git.commit"
	TagSourceType  = "mlflow.source.type"
	SourceNotebook = "NOTEBOOK"
)

// Batch limits of runs/log-batch.
const (
	maxParamsPerBatch  = 100
	maxMetricsPerBatch = 1000
)

type RunStatus string

const (
	RunRunning  RunStatus = "RUNNING"
	RunFinished RunStatus = "FINISHED"
	RunFailed   RunStatus = "FAILED"
)

type Experiment struct {
	ExperimentID     string `json:"experiment_id"`
	Name             string `json:"name"`
	ArtifactLocation string `json:"artifact_location,omitempty"`
	LifecycleStage   string `json:"lifecycle_stage,omitempty"`
}

type RunInfo struct {
	RunID        string    `json:"run_id"`
	RunName      string    `json:"run_name,omitempty"`
	ExperimentID string    `json:"experiment_id"`
	Status       RunStatus `json:"status,omitempty"`
	StartTime    int64     `json:"start_time,omitempty"`
	EndTime      int64     `json:"end_time,omitempty"`
	ArtifactURI  string    `json:"artifact_uri,omitempty"`
}

type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

type getExperimentResponse struct {
	Experiment Experiment `json:"experiment"`
}

type createExperimentRequest struct {
	Name string `json:"name"`
}

type createExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

type createRunRequest struct {
	ExperimentID string   `json:"experiment_id"`
	RunName      string   `json:"run_name,omitempty"`
	StartTime    int64    `json:"start_time"`
	Tags         []RunTag `json:"tags,omitempty"`
}

type createRunResponse struct {
	Run struct {
		Info RunInfo `json:"info"`
	} `json:"run"`
}

type setTagRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type logBatchRequest struct {
	RunID   string   `json:"run_id"`
	Params  []Param  `json:"params,omitempty"`
	Metrics []Metric `json:"metrics,omitempty"`
}

type updateRunRequest struct {
	RunID   string    `json:"run_id"`
	Status  RunStatus `json:"status"`
	EndTime int64     `json:"end_time"`
}
