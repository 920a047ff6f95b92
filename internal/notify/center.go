// Package notify holds per-user notices until the user's client picks them up.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const defaultCapacity = 20

// Center keeps at most capacity notices per user; the oldest are dropped
// first.
type Center struct {
	mu       sync.Mutex
	capacity int
	pending  map[string][]Notice
	now      func() time.Time
}

func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Center{
		capacity: capacity,
		pending:  make(map[string][]Notice),
		now:      time.Now,
	}
}

func (c *Center) Push(userID string, level Level, message string) Notice {
	notice := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	queue := append(c.pending[userID], notice)
	if len(queue) > c.capacity {
		queue = append([]Notice(nil), queue[len(queue)-c.capacity:]...)
	}
	c.pending[userID] = queue
	return notice
}

// Drain returns and forgets the user's notices, oldest first.
func (c *Center) Drain(userID string) []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.pending[userID]
	delete(c.pending, userID)
	if queue == nil {
		return []Notice{}
	}
	return queue
}

func (c *Center) Pending(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[userID])
}
