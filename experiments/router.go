package experiments

import "github.com/gofiber/fiber/v2"

func SetupRoutes(router fiber.Router, h *Handler) {
	experiments := router.Group("/experiments")
	experiments.Post("/publish", h.Publish)
	experiments.Post("/publish/stream", h.PublishStream)
}
