package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberfit/coach/internal/metrics"
	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/types"
)

const (
	// DefaultMaxHistory bounds the turn history per session.
	DefaultMaxHistory = 50
	// DefaultExpiry is the idle window after which a context is dropped.
	DefaultExpiry = 30 * time.Minute
	// DefaultSweepInterval is how often the expiry sweep runs.
	DefaultSweepInterval = 5 * time.Minute
	// maxFactors caps contextual factors per session, most recent kept.
	maxFactors = 10
)

// Config holds configuration for the Store.
type Config struct {
	MaxHistory    int
	Expiry        time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// Store is a thread-safe in-memory context store with idle expiry.
// Mutations for a single session are expected to be serialized by the
// caller; the store protects only its own collection.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*Context

	maxHistory int
	expiry     time.Duration
	logger     *slog.Logger

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	closeOnce   sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a context store and starts the background expiry sweep.
func NewStore(cfg Config) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		contexts:    make(map[string]*Context),
		maxHistory:  cfg.MaxHistory,
		expiry:      cfg.Expiry,
		logger:      cfg.Logger,
		sweepTicker: time.NewTicker(cfg.SweepInterval),
		stopSweep:   make(chan struct{}),
		now:         time.Now,
	}

	go s.sweepLoop()

	return s
}

// GetOrCreate returns a live context or creates a fresh one with default
// topic "general" and a neutral mood. A live session is owned by the user
// that created it; a mismatched userID is rejected rather than handing one
// user another user's context.
func (s *Store) GetOrCreate(userID, sessionID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ctx, ok := s.contexts[sessionID]; ok && !s.expired(ctx, now) {
		if ctx.UserID != userID {
			s.logger.Warn("session user mismatch",
				"session", sessionID, "owner", ctx.UserID, "caller", userID)
			return nil, errors.NewValidationError(
				fmt.Sprintf("session %s belongs to a different user", sessionID))
		}
		return deepCopyContext(ctx), nil
	}

	ctx := &Context{
		UserID:            userID,
		SessionID:         sessionID,
		Topic:             types.CategoryGeneral,
		Mood:              types.NeutralMood(),
		CreatedAt:         now,
		LastInteractionAt: now,
	}
	s.contexts[sessionID] = ctx
	s.logger.Debug("session context created", "user", userID, "session", sessionID)
	return deepCopyContext(ctx), nil
}

// Get returns a live context or a session-not-found error.
func (s *Store) Get(sessionID string) (*Context, error) {
	s.mu.RLock()
	ctx, ok := s.contexts[sessionID]
	live := ok && !s.expired(ctx, s.now())
	var snapshot *Context
	if live {
		snapshot = deepCopyContext(ctx)
	}
	s.mu.RUnlock()

	if !live {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	return snapshot, nil
}

// AppendMessage appends a turn to the session history, truncating oldest
// entries beyond the history bound, and reclassifies the current topic
// from the message content. User turns are additionally scanned for
// data-logging opportunities, recorded in the turn metadata.
func (s *Store) AppendMessage(sessionID string, turn types.Turn) (*Context, error) {
	if turn.Content == "" {
		return nil, errors.NewValidationError("turn content is empty")
	}
	if turn.Sender != types.RoleUser && turn.Sender != types.RoleAssistant {
		return nil, errors.NewValidationError("turn sender must be user or assistant")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}

	if turn.Sender == types.RoleUser {
		if obs := DetectMetricObservation(turn.Content); obs != nil {
			if turn.Meta == nil {
				turn.Meta = &types.TurnMeta{}
			}
			turn.Meta.LoggedMetric = obs
			turn.Meta.MetricIDs = append(turn.Meta.MetricIDs, obs.Metric)
		}
	}

	return s.mutate(sessionID, func(ctx *Context) {
		ctx.History = append(ctx.History, turn)
		if over := len(ctx.History) - s.maxHistory; over > 0 {
			ctx.History = ctx.History[over:]
		}

		first := ctx.History[0].Timestamp
		last := ctx.History[len(ctx.History)-1].Timestamp
		ctx.DurationMinutes = last.Sub(first).Minutes()

		if turn.Sender == types.RoleUser {
			if topic, ok := ReclassifyTopic(turn.Content); ok {
				ctx.Topic = topic
			}
		}
	})
}

// UpdateContextualFactor replaces any existing factor of the same type and
// retains the most recent factors by observation time. The sort is stable:
// ties keep insertion order.
func (s *Store) UpdateContextualFactor(sessionID string, factor types.ContextualFactor) (*Context, error) {
	if factor.Type == "" {
		return nil, errors.NewValidationError("factor type is required")
	}
	if factor.Confidence < 0 || factor.Confidence > 1 {
		return nil, errors.NewValidationError("factor confidence must be in [0,1]")
	}
	if factor.ObservedAt.IsZero() {
		factor.ObservedAt = s.now()
	}

	return s.mutate(sessionID, func(ctx *Context) {
		kept := ctx.Factors[:0]
		for _, f := range ctx.Factors {
			if f.Type != factor.Type {
				kept = append(kept, f)
			}
		}
		ctx.Factors = append(kept, factor)

		sort.SliceStable(ctx.Factors, func(i, j int) bool {
			return ctx.Factors[i].ObservedAt.After(ctx.Factors[j].ObservedAt)
		})
		if len(ctx.Factors) > maxFactors {
			ctx.Factors = ctx.Factors[:maxFactors]
		}
	})
}

// UpdateMood merges the partial update into the session mood. Unspecified
// fields retain prior values.
func (s *Store) UpdateMood(sessionID string, update types.MoodUpdate) (*Context, error) {
	for _, v := range []*int{update.Energy, update.Motivation, update.Stress, update.Confidence} {
		if v != nil && (*v < 0 || *v > 10) {
			return nil, errors.NewValidationError("mood values must be in [0,10]")
		}
	}

	return s.mutate(sessionID, func(ctx *Context) {
		if update.Energy != nil {
			ctx.Mood.Energy = *update.Energy
		}
		if update.Motivation != nil {
			ctx.Mood.Motivation = *update.Motivation
		}
		if update.Stress != nil {
			ctx.Mood.Stress = *update.Stress
		}
		if update.Confidence != nil {
			ctx.Mood.Confidence = *update.Confidence
		}
	})
}

// UpdateGoals replaces the session's goal list.
func (s *Store) UpdateGoals(sessionID string, goals []types.Goal) (*Context, error) {
	for _, g := range goals {
		if g.Title == "" {
			return nil, errors.NewValidationError("goal title is required")
		}
	}

	return s.mutate(sessionID, func(ctx *Context) {
		ctx.Goals = make([]types.Goal, len(goals))
		copy(ctx.Goals, goals)
	})
}

// Delete removes a context explicitly. Deletion is irreversible.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.contexts, sessionID)
	s.mu.Unlock()
}

// Len returns the number of stored contexts, expired ones included until
// the next sweep.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// Close stops the expiry sweep.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.sweepTicker.Stop()
		close(s.stopSweep)
	})
}

// mutate applies fn to a live context under lock and returns a snapshot.
func (s *Store) mutate(sessionID string, fn func(*Context)) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ctx, ok := s.contexts[sessionID]
	if !ok || s.expired(ctx, now) {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}

	fn(ctx)
	ctx.LastInteractionAt = now
	return deepCopyContext(ctx), nil
}

func (s *Store) expired(ctx *Context, now time.Time) bool {
	return now.Sub(ctx.LastInteractionAt) >= s.expiry
}

func (s *Store) sweepLoop() {
	for {
		select {
		case <-s.sweepTicker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

// sweep deletes expired contexts. The collection lock is held briefly per
// entry rather than for the whole sweep so request processing is never
// blocked for long.
func (s *Store) sweep() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.contexts))
	for id := range s.contexts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		s.mu.Lock()
		if ctx, ok := s.contexts[id]; ok && s.expired(ctx, s.now()) {
			delete(s.contexts, id)
			removed++
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		s.logger.Debug("expired sessions swept", "count", removed)
	}
}
