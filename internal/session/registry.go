// Package session keeps the per-conversation escalation state.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the mutable part of a conversation. WarningCount only grows.
type State struct {
	WarningCount int
}

// Conversation owns one State. Holders of a Conversation obtained from
// Acquire have exclusive access to State until they release it.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	State     State

	mu       sync.Mutex
	refs     int
	lastSeen time.Time
	// ended is set when End runs while the conversation is held. The next
	// holder starts from a clean State; the last release removes it.
	ended bool
}

// Registry maps conversation ids to conversations.
type Registry struct {
	mu     sync.Mutex
	convs  map[string]*Conversation
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger used by the janitor.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a Registry. Conversations idle for longer than ttl are
// removed by Sweep; ttl <= 0 disables idle eviction.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		convs:  make(map[string]*Conversation),
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewID returns a fresh conversation id.
func NewID() string {
	return uuid.New().String()
}

// Acquire returns the conversation for id, creating it on first use. An empty
// id creates a conversation with a new id. The call blocks until earlier
// holders of the same conversation have released it, so messages of one
// conversation are processed one at a time. The conversation cannot be
// evicted while held. release must be called exactly once.
func (r *Registry) Acquire(id string) (conv *Conversation, release func()) {
	if id == "" {
		id = NewID()
	}

	r.mu.Lock()
	c, ok := r.convs[id]
	if !ok {
		now := r.now()
		c = &Conversation{ID: id, CreatedAt: now, lastSeen: now}
		r.convs[id] = c
	}
	c.refs++
	r.mu.Unlock()

	c.mu.Lock()
	r.mu.Lock()
	if c.ended {
		c.ended = false
		c.CreatedAt = r.now()
		c.State = State{}
	}
	r.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			c.mu.Unlock()
			r.mu.Lock()
			c.refs--
			c.lastSeen = r.now()
			if c.ended && c.refs == 0 && r.convs[c.ID] == c {
				delete(r.convs, c.ID)
			}
			r.mu.Unlock()
		})
	}
}

// Get returns a snapshot of the state for id.
func (r *Registry) Get(id string) (State, bool) {
	r.mu.Lock()
	c, ok := r.convs[id]
	if ok && c.ended {
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return State{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State, true
}

// End forgets the conversation. A later message with the same id starts from
// a clean state. It reports whether the conversation existed. A conversation
// that is still held stays registered, so later messages keep queueing behind
// the holder, and is removed on its last release.
func (r *Registry) End(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok || c.ended {
		return false
	}
	if c.refs > 0 {
		c.ended = true
		return true
	}
	delete(r.convs, id)
	return true
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

// Sweep removes conversations that are not held and have been idle for
// longer than the ttl. It returns the number removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	n := 0
	for id, c := range r.convs {
		if c.refs == 0 && c.lastSeen.Before(cutoff) {
			delete(r.convs, id)
			n++
		}
	}
	return n
}
