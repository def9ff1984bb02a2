package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/simple-bank/simple_bank/internal/logging"
)

// Audit emits structured logs for each request/response lifecycle event and
// hands a request scoped logger to downstream code through the user context.
// It must run after RequestID.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals(requestIDHeader).(string)

		reqLogger := logger
		if requestID != "" {
			reqLogger = logger.With(slog.String("request_id", requestID))
		}
		c.SetUserContext(logging.WithContext(c.UserContext(), reqLogger))

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if err != nil {
			status = fiber.StatusInternalServerError
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil && status >= fiber.StatusInternalServerError {
			attrs = append(attrs, slog.Any("error", err))
			reqLogger.Error("request completed", attrs...)
			return err
		}

		reqLogger.Info("request completed", attrs...)
		return err
	}
}
