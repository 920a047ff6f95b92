// Package refresh holds the stale-data signal that list and detail views watch
// to know when to re-fetch.
package refresh

import (
	"sync"
	"sync/atomic"
)

// Signal is a monotonically increasing counter. Subscribers observe it as a
// level: a subscriber that falls behind sees the latest key once, not every
// intermediate increment.
type Signal struct {
	key atomic.Uint64

	mu    sync.Mutex
	subs  map[*Subscription]struct{}
	hooks []func(uint64)
}

func NewSignal() *Signal {
	return &Signal{subs: make(map[*Subscription]struct{})}
}

func (s *Signal) Key() uint64 {
	return s.key.Load()
}

// Trigger increments the key, notifies subscribers and runs hooks. It returns
// the new key.
func (s *Signal) Trigger() uint64 {
	key := s.bump()
	s.mu.Lock()
	hooks := append([]func(uint64){}, s.hooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(key)
	}
	return key
}

// Bump increments and notifies without running hooks. Relays use it to apply
// triggers that originated elsewhere.
func (s *Signal) Bump() uint64 {
	return s.bump()
}

// OnTrigger registers fn to run after every local Trigger.
func (s *Signal) OnTrigger(fn func(key uint64)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *Signal) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan uint64, 1), signal: s}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *Signal) bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key.Add(1)
	for sub := range s.subs {
		sub.offer(key)
	}
	return key
}

func (s *Signal) remove(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
}

type Subscription struct {
	ch     chan uint64
	signal *Signal
	once   sync.Once
}

// C yields the latest key after each change. It is closed by Close.
func (sub *Subscription) C() <-chan uint64 {
	return sub.ch
}

func (sub *Subscription) Close() {
	sub.once.Do(func() { sub.signal.remove(sub) })
}

// offer replaces any undelivered key with the newer one. Called with the
// signal lock held, so there is a single writer.
func (sub *Subscription) offer(key uint64) {
	select {
	case sub.ch <- key:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- key
}
