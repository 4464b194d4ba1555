package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-triage/argus-go/internal/event"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	err := m.Insert(context.Background(), []*event.Event{
		{EventID: "e1", Timestamp: base, SourceIP: "10.0.0.1", AttackType: event.TypeNormal},
		{EventID: "e2", Timestamp: base.Add(time.Minute), SourceIP: "10.0.0.2", AttackType: event.TypeSQLi, IsSuccessful: true},
		{EventID: "e3", Timestamp: base.Add(2 * time.Minute), SourceIP: "10.0.0.1", AttackType: event.TypeSQLi},
		{EventID: "e4", Timestamp: base.Add(3 * time.Minute), SourceIP: "10.0.0.3", AttackType: event.TypeXSS},
	})
	require.NoError(t, err)
	return m
}

func TestMemoryListNewestFirst(t *testing.T) {
	m := seedMemory(t)
	events, err := m.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "e4", events[0].EventID)
	assert.Equal(t, "e1", events[3].EventID)
}

func TestMemoryListFilters(t *testing.T) {
	m := seedMemory(t)

	t.Run("BySourceIP", func(t *testing.T) {
		events, err := m.List(context.Background(), Filter{SourceIP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("ByAttackType", func(t *testing.T) {
		events, err := m.List(context.Background(), Filter{AttackType: event.TypeSQLi})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("BySuccess", func(t *testing.T) {
		yes := true
		events, err := m.List(context.Background(), Filter{IsSuccessful: &yes})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "e2", events[0].EventID)
	})

	t.Run("LimitOffset", func(t *testing.T) {
		events, err := m.List(context.Background(), Filter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "e3", events[0].EventID)
	})

	t.Run("OffsetPastEnd", func(t *testing.T) {
		events, err := m.List(context.Background(), Filter{Offset: 99})
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestMemoryGetByID(t *testing.T) {
	m := seedMemory(t)

	ev, err := m.GetByID(context.Background(), "e2")
	require.NoError(t, err)
	assert.Equal(t, event.TypeSQLi, ev.AttackType)

	_, err = m.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryByIPChronological(t *testing.T) {
	m := seedMemory(t)
	events, err := m.ByIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].EventID, "storyline is oldest first")
	assert.Equal(t, "e3", events[1].EventID)
}

func TestMemoryInsertDeduplicates(t *testing.T) {
	m := seedMemory(t)
	err := m.Insert(context.Background(), []*event.Event{
		{EventID: "e1", Timestamp: time.Now(), SourceIP: "10.9.9.9"},
	})
	require.NoError(t, err)

	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
