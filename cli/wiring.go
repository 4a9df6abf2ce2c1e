package cli

import (
	"io"

	"github.com/spf13/afero"

	"github.com/tkscode/jupyterlab/config"
	"github.com/tkscode/jupyterlab/experiments"
	"github.com/tkscode/jupyterlab/labs/jupyterlabs"
	"github.com/tkscode/jupyterlab/tracking"
	"github.com/tkscode/jupyterlab/versioncontrol"
)

func newPublisher(c *config.Config, fs afero.Fs, out io.Writer) *experiments.Publisher {
	rec := versioncontrol.NewRecorder(jupyterlabs.NewLocator(c.ConnectionFile), jupyterlabs.NopFrontend{})
	rec.NotebookRoot = c.NotebookRoot
	rec.MirrorExtension = c.MirrorExtension
	rec.AuthorName = c.GitAuthorName
	rec.AuthorEmail = c.GitAuthorEmail

	p := experiments.NewPublisher(fs, out, rec, func(uri string) experiments.Tracker {
		return tracking.NewClient(uri, tracking.WithToken(c.TrackingToken), tracking.WithFs(fs))
	})
	p.DefaultTrackingURI = c.TrackingURI
	p.DefaultRepoDir = c.GitRepoDir
	return p
}
