package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkscode/jupyterlab/artifacts"
)

func TestPublishRequest(t *testing.T) {
	saved := publishOpts
	t.Cleanup(func() { publishOpts = saved })

	publishOpts.experiment = "churn"
	publishOpts.params = []string{"lr=0.1", "optimizer=adam"}
	publishOpts.metrics = []string{"auc=0.91"}
	publishOpts.dataset = []string{"train=./data/train"}
	publishOpts.result = nil
	publishOpts.resultText = []string{"summary.txt=a=b"}

	req, err := publishRequest()
	require.NoError(t, err)
	assert.Equal(t, "churn", req.ExperimentName)
	assert.Equal(t, map[string]any{"lr": "0.1", "optimizer": "adam"}, req.Params)
	assert.Equal(t, map[string]float64{"auc": 0.91}, req.Metrics)
	assert.Equal(t, map[string]any{"train": artifacts.Path("./data/train")}, req.Dataset)
	assert.Equal(t, map[string]any{"summary.txt": "a=b"}, req.Result)
}

func TestPublishRequestErrors(t *testing.T) {
	saved := publishOpts
	t.Cleanup(func() { publishOpts = saved })

	tests := []struct {
		name  string
		setup func()
	}{
		{"missing separator", func() { publishOpts.params = []string{"lr"} }},
		{"empty name", func() { publishOpts.dataset = []string{"=./x"} }},
		{"bad metric", func() { publishOpts.metrics = []string{"auc=high"} }},
		{"duplicate result", func() {
			publishOpts.result = []string{"a=./a"}
			publishOpts.resultText = []string{"a=text"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publishOpts = saved
			tt.setup()
			_, err := publishRequest()
			require.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "jupyterlab dev\n")
}
