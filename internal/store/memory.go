package store

import (
	"context"
	"sort"
	"sync"

	"github.com/argus-triage/argus-go/internal/event"
)

// Memory is the default in-process store. Events are immutable once
// inserted, so reads hand out the stored pointers.
type Memory struct {
	mu     sync.RWMutex
	events []*event.Event
	byID   map[string]*event.Event
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*event.Event)}
}

func (m *Memory) Insert(_ context.Context, events []*event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		if _, dup := m.byID[ev.EventID]; dup {
			continue
		}
		m.events = append(m.events, ev)
		m.byID[ev.EventID] = ev
	}
	return nil
}

func (m *Memory) List(_ context.Context, f Filter) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*event.Event, 0, len(m.events))
	for _, ev := range m.events {
		if f.SourceIP != "" && ev.SourceIP != f.SourceIP {
			continue
		}
		if f.AttackType != "" && ev.AttackType != f.AttackType {
			continue
		}
		if f.IsSuccessful != nil && ev.IsSuccessful != *f.IsSuccessful {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*event.Event{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ev, nil
}

func (m *Memory) ByIP(_ context.Context, ip string) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*event.Event
	for _, ev := range m.events {
		if ev.SourceIP == ip {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) All(_ context.Context) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*event.Event(nil), m.events...), nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events), nil
}
