package helper

import (
	"github.com/gofiber/fiber/v2"
)

type APIResponse struct {
	Message    string      `json:"message,omitempty"`
	StatusCode int         `json:"statusCode"`
	Status     bool        `json:"status"`
	Data       interface{} `json:"data"`
}

// SendResponse writes the standard response envelope. Status is true only
// for 200.
func SendResponse(c *fiber.Ctx, message string, data interface{}, statuscode int) error {
	response := APIResponse{
		Message:    message,
		StatusCode: statuscode,
		Status:     statuscode == fiber.StatusOK,
		Data:       data,
	}

	c.Status(statuscode)
	return c.JSON(response)
}
