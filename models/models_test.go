package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveByID(t *testing.T) {
	r := NewStaticRegistry(builtin)

	m, ok := r.Resolve("gpt-4o")
	assert.True(t, ok)
	assert.Equal(t, "GPT-4o", m.Name)
}

func TestResolveByAlias(t *testing.T) {
	r := NewStaticRegistry(builtin)

	m, ok := r.Resolve("sonnet")
	assert.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", m.ID)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewStaticRegistry(builtin)

	m, ok := r.Resolve("  OPUS ")
	assert.True(t, ok)
	assert.Equal(t, "claude-opus-4-20250514", m.ID)
}

func TestResolveUnknownPassesThrough(t *testing.T) {
	r := NewStaticRegistry(builtin)

	m, ok := r.Resolve("my-custom-model")
	assert.False(t, ok)
	assert.Equal(t, "my-custom-model", m.ID)
}

func TestOverlayTakesPrecedence(t *testing.T) {
	overlay := []Model{{ID: "local-llama", Name: "Local Llama", Aliases: []string{"4o"}}}
	r := NewStaticRegistry(append(overlay, builtin...))

	m, ok := r.Resolve("4o")
	assert.True(t, ok)
	assert.Equal(t, "local-llama", m.ID)
}
