package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	err := WrapError(CodeNetwork, "payuni query failed", errors.New("dial tcp timeout"))
	wrapped := fmt.Errorf("get payment: %w", err)

	assert.ErrorIs(t, wrapped, ErrNetwork)
	assert.NotErrorIs(t, wrapped, ErrCrypto)
	assert.Equal(t, "payuni query failed: dial tcp timeout", err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(fmt.Errorf("outer: %w", Validation("id is required"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
