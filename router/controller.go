package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tkscode/jupyterlab/helper"
)

// CheckHealth reports that the service is up.
// @Summary Health check
// @Tags Health
// @Produce json
// @Router /api/health/check [get]
func CheckHealth(c *fiber.Ctx) error {
	return helper.SendResponse(c, "OK", nil, fiber.StatusOK)
}
