package cli

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tkscode/jupyterlab/experiments"
	"github.com/tkscode/jupyterlab/labs/jupyterlabs"
	"github.com/tkscode/jupyterlab/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the publish API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPublisher(cfg, afero.NewOsFs(), os.Stdout)

		app := fiber.New()
		locator := jupyterlabs.NewLocator(cfg.ConnectionFile)
		router.SetupRoutes(app, experiments.NewHandler(p, cfg.NotebookRoot), jupyterlabs.NewHandler(locator))

		log.Infof("listening on %s", cfg.ListenAddr)
		return app.Listen(cfg.ListenAddr)
	},
}
