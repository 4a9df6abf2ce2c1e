package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/oauth2"
)

const apiPrefix = "/api/2.0/mlflow/"

// Client talks to an MLflow tracking server over its REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fs         afero.Fs
	now        func() time.Time
}

type Option func(*Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.httpClient = oauth2.NewClient(context.Background(), ts)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithFs sets the filesystem artifacts are read from and file: artifact
// stores are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

func NewClient(trackingURI string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(trackingURI, "/"),
		httpClient: http.DefaultClient,
		fs:         afero.NewOsFs(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetExperiment returns the experiment called name, creating it when it
// does not exist yet.
func (c *Client) SetExperiment(ctx context.Context, name string) (*Experiment, error) {
	exp, err := c.GetExperimentByName(ctx, name)
	if err == nil {
		if exp.LifecycleStage == "deleted" {
			return nil, fmt.Errorf("%w: %s", ErrExperimentDeleted, name)
		}
		return exp, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	logrus.Infof("creating experiment %s", name)
	var resp createExperimentResponse
	if err := c.call(ctx, http.MethodPost, "experiments/create", nil, createExperimentRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &Experiment{ExperimentID: resp.ExperimentID, Name: name}, nil
}

func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	var resp getExperimentResponse
	q := url.Values{"experiment_name": {name}}
	if err := c.call(ctx, http.MethodGet, "experiments/get-by-name", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Experiment, nil
}

// CreateRun starts a run in the experiment.
func (c *Client) CreateRun(ctx context.Context, experimentID, runName string, tags map[string]string) (*RunInfo, error) {
	if runName != "" {
		if tags == nil {
			tags = map[string]string{}
		}
		tags[TagRunName] = runName
	}
	req := createRunRequest{
		ExperimentID: experimentID,
		RunName:      runName,
		StartTime:    c.now().UnixMilli(),
	}
	for _, k := range sortedKeys(tags) {
		req.Tags = append(req.Tags, RunTag{Key: k, Value: tags[k]})
	}

	var resp createRunResponse
	if err := c.call(ctx, http.MethodPost, "runs/create", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Run.Info, nil
}

func (c *Client) SetTag(ctx context.Context, runID, key, value string) error {
	return c.call(ctx, http.MethodPost, "runs/set-tag", nil, setTagRequest{RunID: runID, Key: key, Value: value}, nil)
}

// LogBatch records params and metrics, split into as many requests as the
// server's batch limits need.
func (c *Client) LogBatch(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error {
	ts := c.now().UnixMilli()

	var ps []Param
	for _, k := range sortedKeys(params) {
		ps = append(ps, Param{Key: k, Value: params[k]})
	}
	var ms []Metric
	for _, k := range sortedKeys(metrics) {
		ms = append(ms, Metric{Key: k, Value: metrics[k], Timestamp: ts})
	}

	for len(ps) > 0 || len(ms) > 0 {
		req := logBatchRequest{RunID: runID}
		n := min(len(ps), maxParamsPerBatch)
		req.Params, ps = ps[:n], ps[n:]
		n = min(len(ms), maxMetricsPerBatch)
		req.Metrics, ms = ms[:n], ms[n:]
		if err := c.call(ctx, http.MethodPost, "runs/log-batch", nil, req, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRun ends the run with status.
func (c *Client) UpdateRun(ctx context.Context, runID string, status RunStatus) error {
	req := updateRunRequest{RunID: runID, Status: status, EndTime: c.now().UnixMilli()}
	return c.call(ctx, http.MethodPost, "runs/update", nil, req, nil)
}

func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, in, out any) error {
	u := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	return apiErr
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
