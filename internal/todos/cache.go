// Package todos caches the authenticated user's todo list.
// The cache is populated once per distinct profile id, strictly after the
// session has resolved, and is reconciled in place on every acknowledged
// mutation instead of refetching the whole list.
package todos

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/models"
	"github.com/diewo77/go-todos/internal/session"
)

// Lister fetches the todo list owned by a profile from the remote API.
type Lister interface {
	UserTodos(ctx context.Context, profileID string) ([]models.Todo, error)
}

// Cache is the local authoritative copy of one user's todo collection.
type Cache struct {
	lister Lister
	log    zerolog.Logger

	mu      sync.Mutex
	ownerID string
	todos   []models.Todo
}

// NewCache creates an empty cache.
func NewCache(lister Lister, log zerolog.Logger) *Cache {
	return &Cache{lister: lister, log: log}
}

// LoadFor fetches the todo list for profile, once per distinct profile id.
// Calling it again for the same id is a no-op; a different id discards the
// previous collection before fetching. A fetch failure leaves the collection
// empty and is returned for the UI to surface as a transient notice.
func (c *Cache) LoadFor(ctx context.Context, profile models.Profile) error {
	c.mu.Lock()
	if c.ownerID == profile.ID {
		c.mu.Unlock()
		return nil
	}
	// New owner: the old user's list must never be shown.
	c.ownerID = profile.ID
	c.todos = nil
	c.mu.Unlock()

	list, err := c.lister.UserTodos(ctx, profile.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("user", profile.ID).Msg("todo fetch failed")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownerID != profile.ID {
		// Owner changed while the fetch was in flight; drop the stale result.
		return nil
	}
	c.todos = list
	c.log.Debug().Str("user", profile.ID).Int("count", len(list)).Msg("todos loaded")
	return nil
}

// Run reacts to session transitions: an authenticated session triggers the
// dependent todo fetch, anything else clears the cache. It returns when ctx
// is done. This keeps the causal order of the two startup requests: the todo
// fetch never begins before the profile fetch has resolved.
//
// The snapshot current at subscription time is applied first, so a session
// that resolved before the watcher subscribed is not missed. LoadFor is a
// no-op for an unchanged owner, so seeing the same resolution twice (once
// from the catch-up, once from a notification) fetches only once.
func (c *Cache) Run(ctx context.Context, store *session.Store) {
	changes := store.Subscribe()
	c.apply(ctx, store.Current())
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-changes:
			c.apply(ctx, snap)
		}
	}
}

func (c *Cache) apply(ctx context.Context, snap session.Snapshot) {
	switch {
	case snap.State == session.StateAuthenticated && snap.Profile != nil:
		_ = c.LoadFor(ctx, *snap.Profile)
	case snap.State != session.StateLoading:
		c.Reset()
	}
}

// Todos returns a copy of the cached collection in server order.
func (c *Cache) Todos() []models.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Todo, len(c.todos))
	copy(out, c.todos)
	return out
}

// Owner returns the profile id the collection belongs to, if any.
func (c *Cache) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ownerID
}

// Reset empties the collection and forgets its owner, so the next
// authenticated session triggers a fresh fetch.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.ownerID = ""
	c.todos = nil
	c.mu.Unlock()
}

// Append records a server-acknowledged create.
func (c *Cache) Append(todo models.Todo) {
	c.mu.Lock()
	c.todos = append(c.todos, todo)
	c.mu.Unlock()
}

// Replace swaps the cached todo carrying the same id for the given one.
// Unknown ids are ignored; the server has already accepted the update and a
// later full fetch reconciles any divergence.
func (c *Cache) Replace(todo models.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.todos {
		if c.todos[i].ID == todo.ID {
			c.todos[i] = todo
			return
		}
	}
}

// Remove deletes the todo with the given id from the collection.
// Removing an unknown id leaves the collection unchanged.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.todos {
		if c.todos[i].ID == id {
			c.todos = append(c.todos[:i], c.todos[i+1:]...)
			return
		}
	}
}
