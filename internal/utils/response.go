package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint returns. Data is omitted for
// errors and for responses that carry only a message.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

func send(c *fiber.Ctx, status int, response APIResponse) error {
	return c.Status(status).JSON(response)
}

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus writes a success envelope with an explicit status,
// used by create endpoints returning 201 and batch starts returning 202.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if message == "" {
		message = "success"
	}
	return send(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// SendError writes an error envelope. The message is client-facing; internal
// detail stays in the logs.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}
	return send(c, status, APIResponse{Success: false, Message: message})
}
