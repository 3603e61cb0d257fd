package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftLifecycle(t *testing.T) {
	s := NewDraftStore()

	_, ok := s.Get(42)
	assert.False(t, ok)

	d := s.Begin(42)
	assert.Equal(t, StateSelectingDoctor, d.State)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(42)
	require.True(t, ok)
	assert.Same(t, d, got)

	// Begin resets a half-finished conversation.
	d.DoctorID = "1"
	fresh := s.Begin(42)
	assert.NotSame(t, d, fresh)
	assert.Empty(t, fresh.DoctorID)

	s.Discard(42)
	_, ok = s.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSweepStale(t *testing.T) {
	s := NewDraftStore()

	clock := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Begin(1)
	s.Begin(2)

	clock = clock.Add(20 * time.Minute)
	s.Begin(3)

	// Touching a draft restarts its idle timer.
	clock = clock.Add(5 * time.Minute)
	_, ok := s.Get(1)
	require.True(t, ok)

	clock = clock.Add(10 * time.Minute)
	removed := s.SweepStale(30 * time.Minute)

	assert.Equal(t, 1, removed)
	_, ok = s.Get(1)
	assert.True(t, ok, "recently touched draft survives")
	_, ok = s.Get(2)
	assert.False(t, ok, "idle draft is swept")
	_, ok = s.Get(3)
	assert.True(t, ok)
}
