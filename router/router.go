package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tkscode/jupyterlab/experiments"
	"github.com/tkscode/jupyterlab/labs/jupyterlabs"
)

func SetupRoutes(app *fiber.App, publish *experiments.Handler, notebooks *jupyterlabs.Handler) {
	api := app.Group("/api")
	api.Get("health/check", CheckHealth)
	experiments.SetupRoutes(api, publish)
	jupyterlabs.SetupRoutes(api, notebooks)
}
