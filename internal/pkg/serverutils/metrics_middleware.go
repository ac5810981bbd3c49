package serverutils

import (
	"strconv"
	"time"

	"textbook-qa-be/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request counts and latency per route template.
// Register it outside ErrorHandlerMiddleware so error statuses are final.
func MetricsMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		method := ctx.Method()

		err := ctx.Next()

		path := ctx.Route().Path
		if path == "" {
			path = "unknown"
		}
		status := ctx.Response().StatusCode()
		if err != nil {
			status, _ = statusFor(err)
		}

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}
