package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberfit/coach/pkg/types"
)

func TestKeyFor_Deterministic(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: "you are a coach"},
		{Role: types.RoleUser, Content: "hello"},
	}

	first := KeyFor(messages, "u1", []string{"weather", "stress"})
	second := KeyFor(messages, "u1", []string{"weather", "stress"})
	assert.Equal(t, first, second)
}

func TestKeyFor_FactorOrderIndependent(t *testing.T) {
	messages := []types.Message{{Role: types.RoleUser, Content: "hello"}}

	ab := KeyFor(messages, "u1", []string{"weather", "stress"})
	ba := KeyFor(messages, "u1", []string{"stress", "weather"})
	assert.Equal(t, ab, ba)
}

func TestKeyFor_MessageOrderSensitive(t *testing.T) {
	system := types.Message{Role: types.RoleSystem, Content: "s"}
	u1 := types.Message{Role: types.RoleUser, Content: "first"}
	u2 := types.Message{Role: types.RoleUser, Content: "second"}

	assert.NotEqual(t,
		KeyFor([]types.Message{system, u1}, "u1", nil),
		KeyFor([]types.Message{system, u2}, "u1", nil),
	)
	assert.NotEqual(t,
		KeyFor([]types.Message{u1, u2}, "u1", nil),
		KeyFor([]types.Message{u2, u1}, "u1", nil),
	)
}

func TestKeyFor_BoundariesUnambiguous(t *testing.T) {
	// Content crafted to reproduce another sequence's raw concatenation
	// must still hash differently.
	joined := []types.Message{
		{Role: types.RoleUser, Content: `a"},{"role":"user","content":"b`},
	}
	split := []types.Message{
		{Role: types.RoleUser, Content: "a"},
		{Role: types.RoleUser, Content: "b"},
	}

	assert.NotEqual(t,
		KeyFor(joined, "u1", nil),
		KeyFor(split, "u1", nil),
	)
}

func TestKeyFor_UserScoped(t *testing.T) {
	messages := []types.Message{{Role: types.RoleUser, Content: "hello"}}

	assert.NotEqual(t,
		KeyFor(messages, "u1", nil),
		KeyFor(messages, "u2", nil),
	)
}
