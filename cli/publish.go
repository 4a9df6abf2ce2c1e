package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tkscode/jupyterlab/artifacts"
	"github.com/tkscode/jupyterlab/experiments"
)

var publishOpts struct {
	experiment  string
	runName     string
	description string
	params      []string
	metrics     []string
	dataset     []string
	result      []string
	resultText  []string
	commit      bool
	repoDir     string
	trackingURI string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Record an experiment snapshot as an MLflow run",
	Long: `Stage dataset and result files, optionally commit the running notebook,
and record params, metrics and the staged files as a new MLflow run.

Entries are name=value pairs; the name is the file name inside the run.`,
	Example: `  jupyterlab publish --experiment churn --run-name baseline \
    --param lr=0.1 --metric auc=0.91 \
    --dataset train.csv=./data/train.csv --result-text summary.txt="auc 0.91"`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVarP(&publishOpts.experiment, "experiment", "e", "", "experiment name")
	f.StringVar(&publishOpts.runName, "run-name", "", "run name")
	f.StringVarP(&publishOpts.description, "description", "d", "", "run description")
	f.StringArrayVar(&publishOpts.params, "param", nil, "parameter as key=value")
	f.StringArrayVar(&publishOpts.metrics, "metric", nil, "metric as key=number")
	f.StringArrayVar(&publishOpts.dataset, "dataset", nil, "dataset file or directory as name=path")
	f.StringArrayVar(&publishOpts.result, "result", nil, "result file or directory as name=path")
	f.StringArrayVar(&publishOpts.resultText, "result-text", nil, "result text as name=text")
	f.BoolVar(&publishOpts.commit, "commit", false, "commit the running notebook before publishing")
	f.StringVar(&publishOpts.repoDir, "repo", "", "git repository of the notebook")
	f.StringVar(&publishOpts.trackingURI, "tracking-uri", "", "MLflow tracking server")
	_ = publishCmd.MarkFlagRequired("experiment")
}

func runPublish(cmd *cobra.Command, args []string) error {
	req, err := publishRequest()
	if err != nil {
		return err
	}
	p := newPublisher(cfg, afero.NewOsFs(), cmd.OutOrStdout())
	return p.Publish(cmd.Context(), req)
}

func publishRequest() (experiments.Request, error) {
	o := publishOpts
	req := experiments.Request{
		ExperimentName: o.experiment,
		RunName:        o.runName,
		Description:    o.description,
		Params:         map[string]any{},
		Metrics:        map[string]float64{},
		Dataset:        map[string]any{},
		Result:         map[string]any{},
		DoGitCommit:    o.commit,
		GitRepoDir:     o.repoDir,
		TrackingURI:    o.trackingURI,
	}

	for _, kv := range o.params {
		k, v, err := splitPair("param", kv)
		if err != nil {
			return req, err
		}
		req.Params[k] = v
	}
	for _, kv := range o.metrics {
		k, v, err := splitPair("metric", kv)
		if err != nil {
			return req, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("metric %s: %q is not a number", k, v)
		}
		req.Metrics[k] = f
	}
	for _, kv := range o.dataset {
		k, v, err := splitPair("dataset", kv)
		if err != nil {
			return req, err
		}
		req.Dataset[k] = artifacts.Path(v)
	}
	for _, kv := range o.result {
		k, v, err := splitPair("result", kv)
		if err != nil {
			return req, err
		}
		req.Result[k] = artifacts.Path(v)
	}
	for _, kv := range o.resultText {
		k, v, err := splitPair("result-text", kv)
		if err != nil {
			return req, err
		}
		if _, dup := req.Result[k]; dup {
			return req, fmt.Errorf("result %s given twice", k)
		}
		req.Result[k] = v
	}
	return req, nil
}

func splitPair(flag, kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("--%s %q: expected name=value", flag, kv)
	}
	return k, v, nil
}
