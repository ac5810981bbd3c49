package serverutils

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Count int    `validate:"min=1,max=3"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sample{Name: "a", Count: 2}))

	err := ValidateRequest(sample{Count: 9})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "required", ve.Fields["sample.Name"])
	assert.Equal(t, "max=3", ve.Fields["sample.Count"])
}

func TestStatusFor(t *testing.T) {
	code, _ := statusFor(&ValidationError{Fields: map[string]string{"a": "required"}})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, msg := statusFor(fiber.NewError(fiber.StatusNotFound, "book not found"))
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "book not found", msg)

	code, msg = statusFor(errors.New("db exploded"))
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.NotContains(t, msg, "db exploded")
}

func TestResponses(t *testing.T) {
	ok := SuccessResponse("done", 3)
	assert.True(t, ok.Success)
	assert.Equal(t, 3, ok.Data)

	bad := ErrorResponse(400, "nope")
	assert.False(t, bad.Success)
	assert.Equal(t, 400, bad.Code)
}
