package api

import (
	stderrors "errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/stratus-data/stratus/pkg/errors"
	"github.com/stratus-data/stratus/pkg/metrics"
)

// requestLogger logs every request and feeds the API request counter.
func (s *Service) requestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}

		metrics.APIRequests.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
		s.log.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))

		return err
	}
}

// statusFor maps structured error types to HTTP status codes.
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.TypeNotFound:
		return fiber.StatusNotFound
	case errors.TypeValidation:
		return fiber.StatusBadRequest
	case errors.TypeSchema, errors.TypeMalformed:
		return fiber.StatusUnprocessableEntity
	case errors.TypeConnection, errors.TypeQuery:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders errors as a JSON body with the error category.
func errorHandler(c fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
			"type":  "internal",
		})
	}

	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
		"type":  string(errors.TypeOf(err)),
	})
}
