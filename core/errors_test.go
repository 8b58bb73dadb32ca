package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorHelpers(t *testing.T) {
	cfgErr := NewConfigError(ModuleHybrid, "explicit weight %v out of range", 1.5)
	assert.Equal(t, "hybrid: explicit weight 1.5 out of range", cfgErr.Error())
	assert.True(t, IsInvalidConfig(cfgErr))
	assert.False(t, IsNotFound(cfgErr))

	wrapped := fmt.Errorf("setup: %w", cfgErr)
	assert.True(t, IsDomainError(wrapped))
	assert.True(t, IsInvalidConfig(wrapped))
	assert.Equal(t, ModuleHybrid, GetDomainError(wrapped).Module)

	assert.False(t, IsDomainError(errors.New("plain")))
	assert.False(t, IsDomainError(nil))
	assert.True(t, IsStoreNotFound(ErrStoreNotFound))
	assert.True(t, IsStoreNotSupported(fmt.Errorf("x: %w", ErrStoreNotSupported)))
}
