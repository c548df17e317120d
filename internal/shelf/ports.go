package shelf

import (
	"context"

	"bookvote/internal/journal"
)

// Recorder stores submitted write calls.
type Recorder interface {
	Record(ctx context.Context, s *journal.Submission) error
}

// SnapshotStore persists the loaded lists between restarts.
type SnapshotStore interface {
	Put(key string, v any) error
	Get(key string, dest any) (bool, error)
}
