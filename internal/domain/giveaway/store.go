package giveaway

import "context"

// Store persists the engine state. Implementations replace each of the three
// pieces (giveaways, settings, counter) atomically on Save.
//
// Load must not fail because a piece is missing or corrupt: that piece
// falls back to its zero value and a warning is logged. An error means the
// backend itself is unusable.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Ping(ctx context.Context) error
}
