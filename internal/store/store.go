// Package store defines the document-store boundary the sync protocol runs
// over: a subscribable canonical-state document, a per-match action queue,
// and a presence collection. The in-memory implementation backs offline play
// and tests; the Redis implementation backs online play.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ludoverse/ludo/internal/models"
)

// ErrNoState is returned by LoadState before the host's first publish.
var ErrNoState = errors.New("store: no state published for match")

// StateStore holds the canonical GameState document per match. Only the host
// writes it; everyone reads it as the single source of truth.
type StateStore interface {
	// PublishState replaces the canonical state document.
	PublishState(ctx context.Context, matchID uuid.UUID, doc *models.StateDoc) error
	// LoadState fetches the current document, or ErrNoState.
	LoadState(ctx context.Context, matchID uuid.UUID) (*models.StateDoc, error)
	// WatchState delivers every publish after (and including) the current
	// document until ctx is done. The returned channel is closed on exit.
	WatchState(ctx context.Context, matchID uuid.UUID) (<-chan *models.StateDoc, error)
}

// ActionQueue holds pending player intents per match. Any client enqueues;
// only the host consumes and deletes.
type ActionQueue interface {
	Enqueue(ctx context.Context, matchID uuid.UUID, a *models.Action) error
	// WatchActions replays undeleted actions in creation order, then delivers
	// new ones as they arrive, until ctx is done.
	WatchActions(ctx context.Context, matchID uuid.UUID) (<-chan *models.Action, error)
	DeleteAction(ctx context.Context, matchID uuid.UUID, actionID uuid.UUID) error
}

// PresenceStore holds one liveness record per player per match. Each client
// upserts only its own record.
type PresenceStore interface {
	UpsertPresence(ctx context.Context, matchID uuid.UUID, rec models.PresenceRecord) error
	ListPresence(ctx context.Context, matchID uuid.UUID) (map[string]models.PresenceRecord, error)
	// WatchPresence delivers the full presence map after every upsert.
	WatchPresence(ctx context.Context, matchID uuid.UUID) (<-chan map[string]models.PresenceRecord, error)
}

// Store is the full document-store surface a match runs over.
type Store interface {
	StateStore
	ActionQueue
	PresenceStore
}
