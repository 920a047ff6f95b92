package wizard

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one wizard per user. A session idle for longer than the TTL
// is discarded along with its unsaved draft.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*session
}

type session struct {
	wizard   *Wizard
	lastSeen time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// GetOrCreate returns the live wizard for userID, building one with build
// when none exists or the previous one expired. build runs without the
// registry lock held; when two builds for the same user race, the first one
// stored wins and is returned to both callers.
func (r *Registry) GetOrCreate(userID string, build func() (*Wizard, error)) (*Wizard, error) {
	if w, ok := r.Get(userID); ok {
		return w, nil
	}

	w, err := build()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[userID]; ok && now.Sub(s.lastSeen) < r.ttl {
		s.lastSeen = now
		return s.wizard, nil
	}
	r.sessions[userID] = &session{wizard: w, lastSeen: now}
	return w, nil
}

// Get returns the live wizard for userID, if any.
func (r *Registry) Get(userID string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.Sub(s.lastSeen) >= r.ttl {
		delete(r.sessions, userID)
		return nil, false
	}
	s.lastSeen = now
	return s.wizard, true
}

func (r *Registry) Discard(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) >= r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 && onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
