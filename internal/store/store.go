// Package store abstracts event persistence. The core pipeline only
// consumes and produces event sequences; which backend holds them is the
// service layer's choice (in-memory by default, PostgreSQL when configured).
package store

import (
	"context"
	"errors"

	"github.com/argus-triage/argus-go/internal/event"
)

// ErrNotFound is returned when a queried event does not exist.
var ErrNotFound = errors.New("event not found")

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	SourceIP     string
	AttackType   string
	IsSuccessful *bool
	Limit        int
	Offset       int
}

// Store is the event persistence contract shared by the memory and
// PostgreSQL backends.
type Store interface {
	// Insert appends classified events.
	Insert(ctx context.Context, events []*event.Event) error
	// List returns events matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*event.Event, error)
	// GetByID returns one event or ErrNotFound.
	GetByID(ctx context.Context, id string) (*event.Event, error)
	// ByIP returns the full chronological history for a source IP,
	// oldest first.
	ByIP(ctx context.Context, ip string) ([]*event.Event, error)
	// All returns every stored event, e.g. as a training corpus.
	All(ctx context.Context) ([]*event.Event, error)
	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
}
