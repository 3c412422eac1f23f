package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/allocation-service/internal/observability"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares: request ids, per-request
// timeouts, error handling, and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware converts returned and panicked errors into the
// standard error envelope. Handlers return domain errors; anything else maps
// to a 500.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("request_id", requestID(c)),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":       domainErr.Code,
					"message":    domainErr.Message,
					"request_id": requestID(c),
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed",
						zap.String("request_id", requestID(c)),
						zap.Error(domainErr),
					)
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}

// toDomainError keeps the status of handler-raised fiber errors instead of
// collapsing them to 500s.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < 500 {
		return &apperrors.DomainError{
			Code:       "VALIDATION_FAILED",
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	return apperrors.ToDomainError(err)
}
