package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
	"docvault/internal/validation"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success   bool                    `json:"success"`
	Data      any                     `json:"data,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Code      string                  `json:"code,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Details   []validation.FieldError `json:"details,omitempty"`
	Total     *int                    `json:"total,omitempty"`
	Limit     *int                    `json:"limit,omitempty"`
	Offset    *int                    `json:"offset,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return s
}

func writeOK(c *fiber.Ctx, status int, env Envelope) error {
	env.Success = true
	return c.Status(status).JSON(env)
}

// writeError writes a failure envelope. message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Envelope{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromCtx(c),
	})
}

// respondError maps service errors to HTTP responses. The underlying cause of
// a server-side failure is logged, never returned.
func respondError(c *fiber.Ctx, err error, action string) error {
	var (
		verr *validation.Error
		ferr *service.FileOperationError
		perr *service.PersistenceError
	)
	log := middleware.RequestLogger(c)

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(Envelope{
			Error:     "Validation error",
			Code:      "VALIDATION_ERROR",
			Details:   verr.Details,
			RequestID: requestIDFromCtx(c),
		})
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "Document not found")
	case errors.As(err, &ferr):
		log.Error("file_operation_failed", zap.String("action", action), zap.String("op", ferr.Op), zap.String("path", ferr.Path), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "FILE_OPERATION_FAILED", "Failed to "+action)
	case errors.As(err, &perr):
		log.Error("persistence_failed", zap.String("action", action), zap.String("op", perr.Op), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "PERSISTENCE_FAILED", "Failed to "+action)
	default:
		log.Error("request_failed", zap.String("action", action), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

// ErrorHandler returns a Fiber global error handler that renders routing
// errors and recovered panics in the standard envelope.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			middleware.RequestLogger(c).Error("unhandled_error", zap.Int("status", status), zap.Error(err))
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
