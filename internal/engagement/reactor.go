// Package engagement implements the optimistic like toggle.
package engagement

import (
	"context"
	"fmt"
	"sync"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/repositories"
)

// State is the local (count, liked) pair for one subject as seen by one
// actor.
type State struct {
	Count int  `json:"count"`
	Liked bool `json:"liked"`
}

// Reactor toggles likes for a single actor. The local state is applied
// before the authoritative write so callers see the flip immediately;
// a failed write restores the exact pair captured beforehand. Nothing
// is retried automatically.
type Reactor struct {
	store repositories.EngagementRepository
	actor string

	mu     sync.Mutex
	states map[string]State
}

// NewReactor builds a reactor for one actor.
func NewReactor(store repositories.EngagementRepository, actor string) *Reactor {
	return &Reactor{store: store, actor: actor, states: make(map[string]State)}
}

// Load primes the local pair from the authoritative store.
func (r *Reactor) Load(ctx context.Context, subjectID string) (State, error) {
	count, liked, err := r.store.State(ctx, subjectID, r.actor)
	if err != nil {
		return State{}, fmt.Errorf("load engagement state: %w", err)
	}
	st := State{Count: count, Liked: liked}
	r.mu.Lock()
	r.states[subjectID] = st
	r.mu.Unlock()
	return st, nil
}

// StateOf returns the local pair, if primed.
func (r *Reactor) StateOf(subjectID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[subjectID]
	return st, ok
}

// Toggle flips the actor's like on the subject. It returns the
// resulting local pair; a nil error means the authoritative write went
// through. On failure the pair captured before the optimistic flip is
// restored exactly rather than recomputed, which could diverge after a
// concurrent toggle, and the returned error is retryable.
func (r *Reactor) Toggle(ctx context.Context, subjectID string) (State, error) {
	if r.actor == "" {
		return State{}, apperrors.ErrUnauthenticated
	}

	r.mu.Lock()
	prev, primed := r.states[subjectID]
	r.mu.Unlock()
	if !primed {
		var err error
		prev, err = r.Load(ctx, subjectID)
		if err != nil {
			return State{}, err
		}
	}

	next := State{Liked: !prev.Liked}
	if next.Liked {
		next.Count = prev.Count + 1
	} else {
		next.Count = prev.Count - 1
		if next.Count < 0 {
			// Local and remote may momentarily disagree; never show a
			// negative count.
			next.Count = 0
		}
	}

	r.mu.Lock()
	r.states[subjectID] = next
	r.mu.Unlock()

	if err := r.store.SetLiked(ctx, subjectID, r.actor, next.Liked); err != nil {
		r.mu.Lock()
		r.states[subjectID] = prev
		r.mu.Unlock()
		return prev, fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}
	return next, nil
}
