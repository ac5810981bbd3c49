package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the fiber.Config error handler. Validation failures map to
// 400, fiber errors keep their code and everything else is a 500.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code, message := statusFor(err)
	return ctx.Status(code).JSON(ErrorResponse(code, message))
}

// ErrorHandlerMiddleware maps errors returned by later handlers the same way
// ErrorHandler does, so route groups behave alike under any app config.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return ErrorHandler(ctx, err)
	}
}

func statusFor(err error) (int, string) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, ve.Error()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, "internal server error"
}
