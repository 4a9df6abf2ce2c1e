package jupyterlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var (
	ErrUnexpectedEnvironment = errors.New("not running in a jupyter kernel")
	ErrNoServer              = errors.New("no running jupyter server found")
)

var (
	kernelFilePattern = regexp.MustCompile(`kernel-(.*)\.json`)
	serverURLPattern  = regexp.MustCompile(`(https?://\S+)`)
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Locator finds the notebook the current kernel is attached to.
type Locator struct {
	// ConnectionFile is the kernel connection file, kernel-<id>.json.
	ConnectionFile string
	Runner         CommandRunner
	Client         *fasthttp.Client
}

func NewLocator(connectionFile string) *Locator {
	return &Locator{
		ConnectionFile: connectionFile,
		Runner:         execRunner{},
		Client:         &fasthttp.Client{},
	}
}

// Locate returns the notebook of the session running this kernel, or nil
// when no live session reports it.
func (l *Locator) Locate(ctx context.Context) (*NotebookInfo, error) {
	kernelID, err := KernelID(l.ConnectionFile)
	if err != nil {
		return nil, err
	}

	sessions, err := l.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	for _, s := range sessions {
		if s.Kernel.ID == kernelID {
			nb := s.Notebook
			return &nb, nil
		}
	}
	logrus.Infof("no session found for kernel %s", kernelID)
	return nil, nil
}

// Sessions lists the live sessions of the running server.
func (l *Locator) Sessions(ctx context.Context) ([]Session, error) {
	serverURL, err := l.ServerURL(ctx)
	if err != nil {
		return nil, err
	}
	apiURL, err := SessionsURL(serverURL)
	if err != nil {
		return nil, err
	}

	status, body, err := l.Client.Get(nil, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	if status != fasthttp.StatusOK {
		return nil, fmt.Errorf("failed to query sessions: bad status %d", status)
	}

	var sessions []Session
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// ServerURL returns the first server URL printed by `jupyter server list`.
func (l *Locator) ServerURL(ctx context.Context) (string, error) {
	out, err := l.Runner.Output(ctx, ServerListCommand, "server", "list")
	if err != nil {
		return "", fmt.Errorf("failed to list jupyter servers: %w", err)
	}
	m := serverURLPattern.FindSubmatch(out)
	if m == nil {
		return "", ErrNoServer
	}
	return string(m[1]), nil
}

// KernelID extracts <id> from a kernel-<id>.json connection file path.
func KernelID(connectionFile string) (string, error) {
	m := kernelFilePattern.FindStringSubmatch(filepath.Base(connectionFile))
	if m == nil {
		return "", fmt.Errorf("%w: connection file %q", ErrUnexpectedEnvironment, connectionFile)
	}
	return m[1], nil
}

// SessionsURL turns a server URL such as http://host:8888/user/a/?token=x into
// its session listing endpoint, keeping the token query.
func SessionsURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	u.Path = path.Join("/", u.Path, sessionsAPIPath)
	return u.String(), nil
}
