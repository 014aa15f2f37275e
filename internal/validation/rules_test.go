package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/lockbox/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("WrapsAsInvalidInput", func(t *testing.T) {
		err := WrapValidationError(apperrors.New("name: must not be blank"))

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "must not be blank")
	})

	t.Run("NilReturnsNil", func(t *testing.T) {
		assert.Nil(t, WrapValidationError(nil))
	})
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("secret-name"))
	assert.NoError(t, NoWhitespace.Validate("name with inner spaces"))
	assert.Error(t, NoWhitespace.Validate(" leading"))
	assert.Error(t, NoWhitespace.Validate("trailing "))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("secret-name"))
	assert.Error(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate("\t\n"))
}
