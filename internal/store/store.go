package store

import (
	"context"

	"github.com/me/joinguard/pkg/model"
)

// Store is the append-only audit log of resolved challenge sessions.
// Pending sessions are never persisted.
type Store interface {
	// Outcomes
	RecordOutcome(ctx context.Context, rec *model.OutcomeRecord) error
	ListOutcomes(ctx context.Context, filter model.OutcomeFilter) ([]*model.OutcomeRecord, int, error)
	CountOutcomes(ctx context.Context, groupID int64) (map[model.Outcome]int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}
