package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("load order: %w", NewDomainError("NOT_FOUND", "Order not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.False(t, errors.Is(err, (*DomainError)(nil)))
	assert.EqualError(t, err, "load order: Order not found")

	de, ok := AsDomainError(err)
	assert.True(t, ok)
	assert.Equal(t, "NOT_FOUND", de.Code)

	_, ok = AsDomainError(errors.New("plain"))
	assert.False(t, ok)
}
