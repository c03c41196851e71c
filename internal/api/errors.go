package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"racecalc/internal/analysis"
	"racecalc/internal/timefmt"
)

// inputError maps engine input errors to 400 and hides anything else
// behind a 500
func inputError(err error, failure string) error {
	if errors.Is(err, analysis.ErrInvalidInput) || errors.Is(err, timefmt.ErrInvalidFormat) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return &internalError{message: failure, cause: err}
}

// internalError keeps the cause for the log but not for the client
type internalError struct {
	message string
	cause   error
}

func (e *internalError) Error() string { return e.message + ": " + e.cause.Error() }
func (e *internalError) Unwrap() error { return e.cause }

func errorHandler(l *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		var ie *internalError
		switch {
		case errors.As(err, &fe):
			code, message = fe.Code, fe.Message
		case errors.As(err, &ie):
			message = ie.message
		}
		if code >= fiber.StatusInternalServerError {
			l.Printf("api: %s %s: %v", c.Method(), c.Path(), err)
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
}
