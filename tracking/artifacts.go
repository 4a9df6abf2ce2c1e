package tracking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const artifactsAPIPrefix = "/api/2.0/mlflow-artifacts/artifacts/"

// LogArtifacts uploads every file under localDir into the run's artifact
// root, keeping the relative layout.
func (c *Client) LogArtifacts(ctx context.Context, run *RunInfo, localDir string) error {
	u, err := url.Parse(run.ArtifactURI)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedArtifactURI, run.ArtifactURI)
	}

	var put func(ctx context.Context, rel, src string, info os.FileInfo) error
	switch {
	case u.Scheme == "mlflow-artifacts":
		root := strings.Trim(u.Path, "/")
		put = func(ctx context.Context, rel, src string, _ os.FileInfo) error {
			return c.uploadArtifact(ctx, path.Join(root, rel), src)
		}
	case u.Scheme == "file" || (u.Scheme == "" && filepath.IsAbs(u.Path)):
		root := filepath.FromSlash(u.Path)
		put = func(_ context.Context, rel, src string, info os.FileInfo) error {
			return c.storeArtifact(filepath.Join(root, filepath.FromSlash(rel)), src, info)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedArtifactURI, run.ArtifactURI)
	}

	return afero.Walk(c.fs, localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		logrus.Debugf("logging artifact %s", rel)
		if err := put(ctx, rel, p, info); err != nil {
			return fmt.Errorf("failed to log artifact %s: %w", rel, err)
		}
		return nil
	})
}

func (c *Client) uploadArtifact(ctx context.Context, artifactPath, src string) error {
	f, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	endpoint := c.baseURL + artifactsAPIPrefix + (&url.URL{Path: artifactPath}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, f)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

func (c *Client) storeArtifact(dst, src string, info os.FileInfo) error {
	if err := c.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
