// Package session owns per-session conversation state: bounded history,
// mood, contextual factors, goals, and idle expiry.
package session

import (
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// Context is the mutable state for one conversation session, identified by
// (UserID, SessionID). Callers serialize mutations per session; the store
// only guarantees safety across independent sessions.
type Context struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	Topic   types.Category           `json:"topic"`
	History []types.Turn             `json:"history"`
	Mood    types.Mood               `json:"mood"`
	Factors []types.ContextualFactor `json:"factors,omitempty"`
	Goals   []types.Goal             `json:"goals,omitempty"`

	// DurationMinutes is last turn minus first turn, recomputed on append.
	DurationMinutes float64 `json:"duration_minutes"`

	CreatedAt         time.Time `json:"created_at"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// TopFactors returns up to n factors ordered by confidence, highest first.
func (c *Context) TopFactors(n int) []types.ContextualFactor {
	out := make([]types.ContextualFactor, len(c.Factors))
	copy(out, c.Factors)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Confidence > out[j-1].Confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ActiveGoals returns up to n active goals in stored order.
func (c *Context) ActiveGoals(n int) []types.Goal {
	var out []types.Goal
	for _, g := range c.Goals {
		if g.Active {
			out = append(out, g)
		}
		if len(out) == n {
			break
		}
	}
	return out
}

// LastTurns returns the most recent n turns, oldest first.
func (c *Context) LastTurns(n int) []types.Turn {
	if len(c.History) <= n {
		out := make([]types.Turn, len(c.History))
		copy(out, c.History)
		return out
	}
	out := make([]types.Turn, n)
	copy(out, c.History[len(c.History)-n:])
	return out
}

// FactorTypes returns the factor type names in stored order.
func (c *Context) FactorTypes() []string {
	out := make([]string, len(c.Factors))
	for i, f := range c.Factors {
		out[i] = string(f.Type)
	}
	return out
}

func deepCopyContext(src *Context) *Context {
	dst := *src
	if src.History != nil {
		dst.History = make([]types.Turn, len(src.History))
		copy(dst.History, src.History)
	}
	if src.Factors != nil {
		dst.Factors = make([]types.ContextualFactor, len(src.Factors))
		copy(dst.Factors, src.Factors)
	}
	if src.Goals != nil {
		dst.Goals = make([]types.Goal, len(src.Goals))
		copy(dst.Goals, src.Goals)
	}
	return &dst
}
