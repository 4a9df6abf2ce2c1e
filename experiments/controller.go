package experiments

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/tkscode/jupyterlab/artifacts"
	"github.com/tkscode/jupyterlab/helper"
	"github.com/tkscode/jupyterlab/internal/sse"
)

var (
	errInvalidEntry    = errors.New("entry must set exactly one of text or path")
	errPathOutsideRoot = errors.New("path is outside the artifact root")
	errPathsDisabled   = errors.New("path entries are disabled")
)

// Entry is an artifact value sent over HTTP: inline text or a path under
// the handler's artifact root.
type Entry struct {
	Text *string `json:"text,omitempty"`
	Path string  `json:"path,omitempty"`
}

func (e Entry) value(root string) (any, error) {
	switch {
	case e.Text != nil && e.Path == "":
		return *e.Text, nil
	case e.Text == nil && e.Path != "":
		p, err := confine(root, e.Path)
		if err != nil {
			return nil, err
		}
		return artifacts.Path(p), nil
	}
	return nil, errInvalidEntry
}

// confine resolves p against root and rejects it unless it stays inside.
// The check is lexical; symlinks under root are followed as is.
func confine(root, p string) (string, error) {
	if root == "" {
		return "", errPathsDisabled
	}
	root = filepath.Clean(root)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", errPathOutsideRoot, p)
	}
	return p, nil
}

// PublishBody is the JSON body of the publish endpoints. The tracking
// server and repository always come from the server configuration.
type PublishBody struct {
	ExperimentName string             `json:"experimentName"`
	RunName        string             `json:"runName"`
	Description    string             `json:"description"`
	Params         map[string]any     `json:"params"`
	Metrics        map[string]float64 `json:"metrics"`
	Dataset        map[string]Entry   `json:"dataset"`
	Result         map[string]Entry   `json:"result"`
	DoGitCommit    bool               `json:"doGitCommit"`
}

func (b PublishBody) request(root string) (Request, error) {
	req := Request{
		ExperimentName: b.ExperimentName,
		RunName:        b.RunName,
		Description:    b.Description,
		Params:         b.Params,
		Metrics:        b.Metrics,
		DoGitCommit:    b.DoGitCommit,
	}
	var err error
	if req.Dataset, err = entryValues(b.Dataset, root); err != nil {
		return Request{}, fmt.Errorf("dataset %w", err)
	}
	if req.Result, err = entryValues(b.Result, root); err != nil {
		return Request{}, fmt.Errorf("result %w", err)
	}
	return req, nil
}

func entryValues(entries map[string]Entry, root string) (map[string]any, error) {
	values := make(map[string]any, len(entries))
	for name, e := range entries {
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryName, name)
		}
		v, err := e.value(root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}

// Handler serves the publish endpoints. Path entries must resolve under
// root; an empty root disables them.
type Handler struct {
	publisher *Publisher
	root      string
}

func NewHandler(p *Publisher, root string) *Handler {
	return &Handler{publisher: p, root: root}
}

// Publish snapshots an experiment and returns the progress log.
// @Description Stage artifacts and record them as a new MLflow run
// @Summary Publish experiment snapshot
// @Tags Experiments
// @Accept json
// @Produce json
// @Router /api/experiments/publish [post]
func (h *Handler) Publish(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return helper.SendResponse(c, err.Error(), nil, fiber.StatusBadRequest)
	}

	var out bytes.Buffer
	err = h.publisher.WithOutput(&out).Publish(c.UserContext(), req)
	data := fiber.Map{"log": logLines(out.String())}
	if err != nil {
		log.Errorf("publish of %s failed: %v", req.ExperimentName, err)
		return helper.SendResponse(c, err.Error(), data, statusFor(err))
	}
	return helper.SendResponse(c, "Experiment published successfully", data, fiber.StatusOK)
}

// PublishStream snapshots an experiment, streaming progress as server-sent
// events. The last event is "done" or "error".
// @Description Stage artifacts and record them as a new MLflow run, with progress as server sent events
// @Summary Publish experiment snapshot with progress
// @Tags Experiments
// @Accept json
// @Produce text/event-stream
// @Router /api/experiments/publish/stream [post]
func (h *Handler) PublishStream(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return helper.SendResponse(c, err.Error(), nil, fiber.StatusBadRequest)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(wr *bufio.Writer) {
		em := sse.NewBufioEmitter(wr, "publish")
		// the request context is recycled once the handler returns
		err := h.publisher.WithOutput(em.Lines("progress")).Publish(context.Background(), req)
		if err != nil {
			log.Errorf("publish of %s failed: %v", req.ExperimentName, err)
			_ = em.SendJSON("error", fiber.Map{"message": err.Error()})
			return
		}
		_ = em.SendJSON("done", fiber.Map{"experiment": req.ExperimentName})
	}))

	return nil
}

func (h *Handler) parseBody(c *fiber.Ctx) (Request, error) {
	var body PublishBody
	if err := c.BodyParser(&body); err != nil {
		return Request{}, fmt.Errorf("invalid request body: %w", err)
	}
	if body.ExperimentName == "" {
		return Request{}, ErrNoExperiment
	}
	return body.request(h.root)
}

func logLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, artifacts.ErrUnsupportedType),
		errors.Is(err, artifacts.ErrDestinationExists),
		errors.Is(err, ErrNoExperiment),
		errors.Is(err, ErrInvalidEntryName):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
