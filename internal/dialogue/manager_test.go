package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerKeepsConversationsApart(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	mgr := NewManager(engine, time.Hour)
	ctx := context.Background()

	mgr.Message(ctx, "conv-a", "Hello")
	mgr.Message(ctx, "conv-a", "My name is Jane Doe")
	mgr.Message(ctx, "conv-b", "Hello")

	a, ok := mgr.Snapshot("conv-a")
	require.True(t, ok)
	assert.Equal(t, StepAppointmentType, a.Step)
	assert.Equal(t, "Jane Doe", a.PatientName)

	b, ok := mgr.Snapshot("conv-b")
	require.True(t, ok)
	assert.Equal(t, StepNameRequested, b.Step)

	_, ok = mgr.Snapshot("conv-c")
	assert.False(t, ok)
}

func TestManagerCleanupIdle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	mgr := NewManager(engine, 30*time.Minute)
	ctx := context.Background()

	mgr.Message(ctx, "stale", "Hello")
	mgr.Message(ctx, "fresh", "Hello")

	// Age only the stale conversation past the TTL.
	now := time.Now()
	mgr.now = func() time.Time { return now }
	c := mgr.get("stale")
	c.mu.Lock()
	c.state.UpdatedAt = now.Add(-time.Hour)
	c.mu.Unlock()

	removed := mgr.CleanupIdle()
	assert.Equal(t, 1, removed)

	_, ok := mgr.Snapshot("stale")
	assert.False(t, ok)
	_, ok = mgr.Snapshot("fresh")
	assert.True(t, ok)
}

func TestManagerMessageAfterCleanupStartsFresh(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	mgr := NewManager(engine, 30*time.Minute)
	ctx := context.Background()

	mgr.Message(ctx, "conv", "Hello")
	mgr.Message(ctx, "conv", "My name is Jane Doe")

	now := time.Now()
	mgr.now = func() time.Time { return now }

	// Hold the conversation lock and reap it, the way the janitor can while
	// a turn is still waiting on the mutex.
	stale := mgr.get("conv")
	stale.mu.Lock()
	stale.state.UpdatedAt = now.Add(-time.Hour)
	stale.mu.Unlock()
	require.Equal(t, 1, mgr.CleanupIdle())
	assert.True(t, stale.gone)

	// A turn landing on the reaped conversation must not touch the orphaned
	// state; it gets a brand new conversation instead.
	reply := mgr.Message(ctx, "conv", "Hello")
	assert.Contains(t, reply, "name")

	st, ok := mgr.Snapshot("conv")
	require.True(t, ok)
	assert.Equal(t, StepNameRequested, st.Step)
	assert.Empty(t, st.PatientName)
	assert.Equal(t, StepAppointmentType, stale.state.Step)
}
