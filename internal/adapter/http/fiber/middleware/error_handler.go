package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
)

// StatusFor maps dialogue errors to HTTP status codes
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrEmptyInput):
		return fiber.StatusNoContent
	case errors.Is(err, domain.ErrAwaitingReply), errors.Is(err, domain.ErrCaptureActive):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedCapability):
		return fiber.StatusOK
	case errors.Is(err, domain.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		return fiber.StatusGone
	case errors.Is(err, domain.ErrTooManySessions):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCaptureFailure):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)

		switch {
		case code == fiber.StatusNoContent:
			return c.SendStatus(code)
		case errors.Is(err, domain.ErrUnsupportedCapability):
			// a notice, not a failure
			return c.Status(code).JSON(fiber.Map{
				"notice": err.Error(),
			})
		case code >= fiber.StatusInternalServerError:
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
