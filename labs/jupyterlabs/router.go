package jupyterlabs

import "github.com/gofiber/fiber/v2"

func SetupRoutes(router fiber.Router, h *Handler) {
	notebooks := router.Group("/notebooks")
	notebooks.Get("/current", h.Current)
}
