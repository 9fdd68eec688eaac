package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach/pkg/provider"
)

func TestRegistry(t *testing.T) {
	t.Run("builtins registered", func(t *testing.T) {
		for _, name := range []string{"openai", "anthropic"} {
			_, ok := Get(name)
			assert.True(t, ok, "expected builtin %q", name)
		}
	})

	t.Run("create from config", func(t *testing.T) {
		p, err := Create(provider.Config{Type: "openai", APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Create(provider.Config{Type: "mystery"})
		assert.Error(t, err)
	})
}
