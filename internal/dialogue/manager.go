package dialogue

import (
	"context"
	"sync"
	"time"
)

// conversation pairs a state with its own mutex so turns for the same
// conversation are serialized while different conversations proceed in
// parallel.
type conversation struct {
	mu    sync.Mutex
	state State
	// gone is set under mu when the janitor removes the conversation, so a
	// turn that was already waiting on mu does not mutate an orphaned state.
	gone bool
}

// Manager owns all live conversations, keyed by caller-supplied id.
type Manager struct {
	engine *Engine

	mu            sync.Mutex
	conversations map[string]*conversation

	idleTTL time.Duration
	now     func() time.Time
}

func NewManager(engine *Engine, idleTTL time.Duration) *Manager {
	return &Manager{
		engine:        engine,
		conversations: make(map[string]*conversation),
		idleTTL:       idleTTL,
		now:           time.Now,
	}
}

// Message processes one user message for the given conversation, creating the
// conversation on first contact.
func (m *Manager) Message(ctx context.Context, conversationID, input string) string {
	for {
		c := m.get(conversationID)

		c.mu.Lock()
		if c.gone {
			// The janitor reaped this conversation while we waited for its
			// lock. Start over with a fresh one.
			c.mu.Unlock()
			continue
		}
		defer c.mu.Unlock()
		return m.engine.Respond(ctx, &c.state, input)
	}
}

// Snapshot returns a copy of the conversation state, or false if the
// conversation does not exist.
func (m *Manager) Snapshot(conversationID string) (State, bool) {
	m.mu.Lock()
	c, ok := m.conversations[conversationID]
	m.mu.Unlock()
	if !ok {
		return State{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return State{}, false
	}
	return c.state.clone(), true
}

func (m *Manager) get(conversationID string) *conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[conversationID]
	if !ok {
		c = &conversation{state: NewState()}
		c.state.UpdatedAt = m.now()
		m.conversations[conversationID] = c
	}
	return c
}

// CleanupIdle drops conversations that have not seen a turn within the idle
// TTL and returns how many were removed.
func (m *Manager) CleanupIdle() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, c := range m.conversations {
		// Mark and delete under the conversation lock so an in-flight turn
		// either finishes first (bumping UpdatedAt) or sees gone and retries.
		c.mu.Lock()
		if c.state.UpdatedAt.Before(cutoff) {
			c.gone = true
			delete(m.conversations, id)
			removed++
		}
		c.mu.Unlock()
	}
	return removed
}

// RunJanitor cleans up idle conversations on a fixed interval until the
// context is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupIdle()
		}
	}
}
