package utils

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"coursehub/backend/apperr"
)

// SuccessResponse структура для успешных ответов
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Message   string      `json:"message,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// Success создает успешный JSON ответ
func Success(c *fiber.Ctx, status int, data interface{}, message ...string) error {
	response := SuccessResponse{
		Success: true,
		Data:    data,
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	return c.Status(status).JSON(response)
}

// Error создает JSON ответ с ошибкой
func Error(c *fiber.Ctx, status int, err error, details ...interface{}) error {
	response := ErrorResponse{
		Success:   false,
		Error:     http.StatusText(status),
		Message:   err.Error(),
		Retryable: apperr.Retryable(err),
	}

	if len(details) > 0 {
		response.Details = details[0]
	}

	return c.Status(status).JSON(response)
}

// HandleError maps the error taxonomy onto HTTP statuses.
func HandleError(c *fiber.Ctx, err error, details ...interface{}) error {
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		return Error(c, fiber.StatusUnauthorized, err, details...)
	case apperr.KindNotFound:
		return Error(c, fiber.StatusNotFound, err, details...)
	case apperr.KindInvalid:
		return Error(c, fiber.StatusBadRequest, err, details...)
	case apperr.KindNetwork:
		return Error(c, fiber.StatusServiceUnavailable, err, details...)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, err, details...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Error(c, fiber.StatusGatewayTimeout, err, details...)
	}
	return Error(c, fiber.StatusInternalServerError, err, details...)
}

// ValidationError создает JSON ответ для ошибок валидации
func ValidationError(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Error:   "Validation Error",
		Details: errors,
	})
}

// NoContent отправляет ответ 204 No Content
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Unauthorized отправляет ответ 401 Unauthorized
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, fiber.NewError(fiber.StatusUnauthorized, message))
}
