package jupyterlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	return []byte(f.out), f.err
}

const sessionsJSON = `[
  {"id": "s1", "path": "work/eda.ipynb", "name": "eda.ipynb", "type": "notebook",
   "kernel": {"id": "f00d", "name": "python3"},
   "notebook": {"path": "work/eda.ipynb", "name": "eda.ipynb"}},
  {"id": "s2", "path": "work/train.ipynb", "name": "train.ipynb", "type": "notebook",
   "kernel": {"id": "abc123", "name": "gonb"},
   "notebook": {"path": "work/train.ipynb", "name": "train.ipynb"}}
]`

func newJupyterServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotURL
}

func newTestLocator(connectionFile, serverList string) (*Locator, *fakeRunner) {
	runner := &fakeRunner{out: serverList}
	return &Locator{
		ConnectionFile: connectionFile,
		Runner:         runner,
		Client:         &fasthttp.Client{},
	}, runner
}

func TestKernelID(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{"runtime dir", "/home/jovyan/.local/share/jupyter/runtime/kernel-abc123.json", "abc123", false},
		{"bare name", "kernel-7f0e-11aa.json", "7f0e-11aa", false},
		{"not a kernel file", "/tmp/connection.json", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KernelID(tt.file)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnexpectedEnvironment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionsURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8888/?token=abc", "http://localhost:8888/api/sessions?token=abc"},
		{"http://10.0.0.4:8888/user/alice/?token=t0k", "http://10.0.0.4:8888/user/alice/api/sessions?token=t0k"},
		{"http://localhost:8888/", "http://localhost:8888/api/sessions"},
	}
	for _, tt := range tests {
		got, err := SessionsURL(tt.server)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestServerURL(t *testing.T) {
	l, runner := newTestLocator("", "Currently running servers:\nhttp://localhost:8888/?token=abc :: /opt/jupyter\nhttp://localhost:8889/?token=def :: /tmp\n")

	got, err := l.ServerURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888/?token=abc", got)
	assert.Equal(t, []string{"jupyter", "server", "list"}, runner.args)

	l, _ = newTestLocator("", "Currently running servers:\n")
	_, err = l.ServerURL(context.Background())
	require.ErrorIs(t, err, ErrNoServer)
}

func TestLocateFindsSession(t *testing.T) {
	srv, gotURL := newJupyterServer(t, http.StatusOK, sessionsJSON)
	l, _ := newTestLocator("/run/jupyter/kernel-abc123.json", srv.URL+"/?token=secret :: /opt/jupyter\n")

	nb, err := l.Locate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, nb)
	assert.Equal(t, "work/train.ipynb", nb.Path)
	assert.Equal(t, "/api/sessions?token=secret", *gotURL)
}

func TestLocateNoMatchingSession(t *testing.T) {
	srv, _ := newJupyterServer(t, http.StatusOK, `[{"id":"s1","kernel":{"id":"f00d"},"notebook":{"path":"a.ipynb"}}]`)
	l, _ := newTestLocator("kernel-abc123.json", srv.URL+"/?token=secret :: /opt/jupyter\n")

	nb, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, nb)
}

func TestLocateBadStatus(t *testing.T) {
	srv, _ := newJupyterServer(t, http.StatusForbidden, `{"message":"Forbidden"}`)
	l, _ := newTestLocator("kernel-abc123.json", srv.URL+"/?token=wrong :: /opt/jupyter\n")

	_, err := l.Locate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestLocateOutsideKernel(t *testing.T) {
	l, runner := newTestLocator("/tmp/ipykernel.json", "")

	_, err := l.Locate(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedEnvironment)
	assert.Nil(t, runner.args, "server list must not run outside a kernel")
}

func TestRequestSaveDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	got := make(chan string, 1)
	fe := FrontendFunc(func(command string) error {
		<-release
		got <- command
		return nil
	})

	RequestSave(fe)
	close(release)

	select {
	case cmd := <-got:
		assert.Equal(t, SaveCommand, cmd)
	case <-time.After(time.Second):
		t.Fatal("save command was never executed")
	}
}
