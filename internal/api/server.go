package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 5 * time.Second

// Serve listens on port until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, app *fiber.App, port int) error {
	errs := make(chan error, 1)
	go func() {
		errs <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(ShutdownTimeout); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
