package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSourceIsMonotonic(t *testing.T) {
	src := NewIDSource()

	first := src.Next()
	second := src.Next()

	assert.Equal(t, EntityID(1), first)
	assert.Equal(t, EntityID(2), second)
	assert.NotEqual(t, InvalidEntityID, first)
	assert.Equal(t, uint64(2), src.Issued())
	assert.Equal(t, "e2", second.String())
}
