// Package session owns the process-wide authentication state.
// The state is a tri-state lifecycle: Loading until the initial "who am I"
// request resolves, then Authenticated or Anonymous. A fetch failure is not
// an error to the rest of the application; it is folded into Anonymous,
// because "no valid session" and "could not reach the server" both mean the
// same thing to the UI: do not show protected content.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/models"
)

// State is the lifecycle position of the session.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "invalid"
	}
}

// Snapshot is an immutable view of the session at one instant.
// Profile is non-nil if and only if State is StateAuthenticated.
type Snapshot struct {
	State   State
	Profile *models.Profile
}

// CanAccess is the route-guard predicate: only a resolved, authenticated
// session may see protected content. Loading and Anonymous both deny.
func CanAccess(s Snapshot) bool {
	return s.State == StateAuthenticated && s.Profile != nil
}

// ProfileFetcher performs the "who am I" call against the remote API.
// A (nil, nil) return means the server answered but no session exists.
type ProfileFetcher interface {
	AuthUser(ctx context.Context) (*models.Profile, error)
}

// Store holds the session state and resolves it exactly once per cycle.
type Store struct {
	fetcher ProfileFetcher
	log     zerolog.Logger

	mu       sync.Mutex
	snap     Snapshot
	inflight bool
	resolved chan struct{} // closed when the current cycle leaves Loading
	subs     []chan Snapshot
}

// New creates a Store in StateLoading.
func New(fetcher ProfileFetcher, log zerolog.Logger) *Store {
	return &Store{
		fetcher:  fetcher,
		log:      log,
		snap:     Snapshot{State: StateLoading},
		resolved: make(chan struct{}),
	}
}

// Current returns the session snapshot without blocking.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Initialize resolves the session by fetching the current profile.
// Only one fetch may be in flight: concurrent callers join it and all
// receive the snapshot it resolved to. Every exit path, including fetch
// errors and panics in the fetcher, leaves the store out of StateLoading.
func (s *Store) Initialize(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.inflight {
		done := s.resolved
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return s.Current()
	}
	s.inflight = true
	s.snap = Snapshot{State: StateLoading}
	done := s.resolved
	s.mu.Unlock()

	// Resolution is unconditional: whatever happens below, the cycle ends
	// in exactly one of the two terminal states.
	next := Snapshot{State: StateAnonymous}
	defer func() {
		s.mu.Lock()
		s.snap = next
		s.inflight = false
		s.resolved = make(chan struct{})
		subs := append([]chan Snapshot(nil), s.subs...)
		s.mu.Unlock()
		close(done)
		notify(subs, next)
		s.log.Info().Stringer("state", next.State).Msg("session resolved")
	}()

	p, err := s.fetcher.AuthUser(ctx)
	switch {
	case err != nil:
		s.log.Debug().Err(err).Msg("profile fetch failed, treating as anonymous")
	case p != nil:
		next = Snapshot{State: StateAuthenticated, Profile: p}
	}
	return next
}

// SignIn transitions to Authenticated after a successful login call.
func (s *Store) SignIn(profile models.Profile) {
	s.set(Snapshot{State: StateAuthenticated, Profile: &profile})
	s.log.Info().Str("user", profile.ID).Msg("signed in")
}

// Logout transitions to Anonymous and drops the profile. The remote
// session-invalidation call is the UI layer's responsibility, not ours.
func (s *Store) Logout() {
	s.set(Snapshot{State: StateAnonymous})
	s.log.Info().Msg("signed out")
}

func (s *Store) set(next Snapshot) {
	s.mu.Lock()
	s.snap = next
	subs := append([]chan Snapshot(nil), s.subs...)
	s.mu.Unlock()
	notify(subs, next)
}

// Wait blocks until the store has left StateLoading (or ctx is done) and
// returns the snapshot it settled on. Protected routes call this instead of
// evaluating the guard against an unresolved session.
func (s *Store) Wait(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.snap.State != StateLoading {
		defer s.mu.Unlock()
		return s.snap
	}
	done := s.resolved
	s.mu.Unlock()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.Current()
}

// Subscribe returns a channel receiving every subsequent state transition.
// The channel is buffered; a slow consumer loses intermediate snapshots
// rather than blocking the store.
func (s *Store) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 4)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func notify(subs []chan Snapshot, snap Snapshot) {
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
