// Package history defines persistence-facing contracts for journaling entity
// snapshots at commit points. Store implementations own the persistence
// details; Journal orchestrates checkpointing and revision bookkeeping on top
// of any Store.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-observer/deep"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("history: snapshot not found")

// Ref identifies one snapshot stream for one tracked object.
type Ref struct {
	Stream   string
	ObjectID string
}

// Identifier returns the deterministic storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.Stream == "" {
		return "", fmt.Errorf("history: stream is required")
	}
	if r.ObjectID == "" {
		return "", fmt.Errorf("history: object id is required")
	}
	return fmt.Sprintf("%s/%s", r.Stream, r.ObjectID), nil
}

// Meta is storage-owned metadata attached to each snapshot.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Revision   int               `json:"revision,omitempty"`
	TakenAt    time.Time         `json:"taken_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the latest snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Journal checkpoints entity state into a Store, assigning snapshot identity
// and monotonic revisions. The zero Journal is unusable; set Store.
type Journal[T any] struct {
	Store Store[T]

	// Now overrides the checkpoint clock, for tests.
	Now func() time.Time
}

// Checkpoint deep-copies entity and saves it as the next revision of ref.
func (j Journal[T]) Checkpoint(ctx context.Context, ref Ref, entity T) (Meta, error) {
	if j.Store == nil {
		return Meta{}, fmt.Errorf("history: store is required")
	}
	_, previous, ok, err := j.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("history: load %q/%q: %w", ref.Stream, ref.ObjectID, err)
	}
	revision := 1
	if ok {
		revision = previous.Revision + 1
	}
	meta := Meta{
		SnapshotID: uuid.NewString(),
		Revision:   revision,
		TakenAt:    j.now(),
	}
	return j.Store.Save(ctx, ref, deep.Clone(entity), meta)
}

// Latest returns the most recent checkpointed snapshot for ref.
func (j Journal[T]) Latest(ctx context.Context, ref Ref) (T, Meta, error) {
	var zero T
	if j.Store == nil {
		return zero, Meta{}, fmt.Errorf("history: store is required")
	}
	snapshot, meta, ok, err := j.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("history: load %q/%q: %w", ref.Stream, ref.ObjectID, err)
	}
	if !ok {
		return zero, Meta{}, ErrNotFound
	}
	return snapshot, meta, nil
}

func (j Journal[T]) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}
