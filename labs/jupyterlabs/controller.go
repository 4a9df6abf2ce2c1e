package jupyterlabs

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tkscode/jupyterlab/helper"
)

// Handler serves notebook lookups.
type Handler struct {
	locator *Locator
}

func NewHandler(l *Locator) *Handler {
	return &Handler{locator: l}
}

// Current returns the notebook attached to the configured kernel.
// @Description Resolve the notebook backing the configured kernel through the live jupyter sessions
// @Summary Get current notebook
// @Tags JupyterLabs Notebook
// @Produce json
// @Router /api/notebooks/current [get]
func (h *Handler) Current(c *fiber.Ctx) error {
	nb, err := h.locator.Locate(c.UserContext())
	if err != nil {
		log.Errorf("failed to locate notebook: %v", err)
		status := fiber.StatusBadGateway
		if errors.Is(err, ErrUnexpectedEnvironment) {
			status = fiber.StatusConflict
		}
		return helper.SendResponse(c, err.Error(), nil, status)
	}
	if nb == nil {
		return helper.SendResponse(c, "No session found for kernel", nil, fiber.StatusNotFound)
	}
	return helper.SendResponse(c, "Notebook retrieved successfully", nb, fiber.StatusOK)
}
