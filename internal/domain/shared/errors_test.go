package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errMissing = NewDomainError("MISSING", "Resource not found")
	errInvalid = NewDomainError("INVALID", "Invalid input provided")
)

func TestDomainError_Is(t *testing.T) {
	detailed := errMissing.WithDetail("order %s", "42")

	assert.Equal(t, "Resource not found: order 42", detailed.Error())
	assert.Equal(t, "MISSING", detailed.Code)
	assert.True(t, errors.Is(detailed, errMissing))
	assert.True(t, errors.Is(fmt.Errorf("lookup: %w", detailed), errMissing))
	assert.False(t, errors.Is(detailed, errInvalid))
	assert.False(t, errors.Is(errors.New("Resource not found"), errMissing))
}

func TestDomainError_WithDetailLeavesSentinel(t *testing.T) {
	_ = errInvalid.WithDetail("field %q", "sku")
	assert.Equal(t, "Invalid input provided", errInvalid.Message)
}
