// Package models defines the wire documents shared between clients and the
// host: queued actions, presence records, the published state envelope, and
// the final match result. Decoding is strict: values outside the known sets
// fail loudly instead of being coerced.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ludoverse/ludo/engine"
)

// ActionType identifies a queued player intent.
type ActionType string

const (
	ActionRollDice  ActionType = "roll_dice"
	ActionMoveToken ActionType = "move_token"
	ActionHeartbeat ActionType = "heartbeat"
	ActionLeave     ActionType = "leave"
)

// ParseActionType validates a wire action type.
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(s); t {
	case ActionRollDice, ActionMoveToken, ActionHeartbeat, ActionLeave:
		return t, nil
	}
	return "", &FieldError{Field: "type", Value: s}
}

// Action is one player intent awaiting host processing. Created by a client,
// consumed and deleted by the host; never part of canonical state.
type Action struct {
	ID        uuid.UUID  `json:"id"`
	PlayerID  string     `json:"playerId"`
	Type      ActionType `json:"type"`
	TokenID   int        `json:"tokenId"` // only meaningful for move_token
	CreatedAt time.Time  `json:"createdAt"`
}

// NewAction builds an action with a fresh id and creation timestamp.
func NewAction(playerID string, t ActionType, tokenID int) *Action {
	return &Action{
		ID:        uuid.New(),
		PlayerID:  playerID,
		Type:      t,
		TokenID:   tokenID,
		CreatedAt: time.Now().UTC(),
	}
}

// PresenceRecord is one player's liveness document. Each client upserts only
// its own record; timestamps drive the AFK and rejoin timers, never move
// legality.
type PresenceRecord struct {
	PlayerID       string     `json:"playerId"`
	IsOnline       bool       `json:"isOnline"`
	LastSeenAt     time.Time  `json:"lastSeenAt"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
}

// StateDoc is the canonical-state envelope published by the host. Version is
// a host-local monotonic counter; readers use it to discard out-of-order
// deliveries.
type StateDoc struct {
	MatchID     uuid.UUID         `json:"matchId"`
	Version     int64             `json:"version"`
	State       *engine.GameState `json:"state"`
	PublishedAt time.Time         `json:"publishedAt"`
}

// MatchResult is the archived summary written once when a match ends.
type MatchResult struct {
	MatchID     uuid.UUID `json:"matchId"`
	WinnerID    string    `json:"winnerId"`
	FinishOrder []string  `json:"finishOrder"`
	Status      string    `json:"status"`
	MoveCount   int       `json:"moveCount"`
	EndedAt     time.Time `json:"endedAt"`
}

// ResultFromState summarizes a terminal state for archiving.
func ResultFromState(matchID uuid.UUID, g *engine.GameState, endedAt time.Time) *MatchResult {
	order := make([]string, len(g.FinishOrder))
	copy(order, g.FinishOrder)
	return &MatchResult{
		MatchID:     matchID,
		WinnerID:    g.WinnerID,
		FinishOrder: order,
		Status:      string(g.Status),
		MoveCount:   len(g.MoveHistory),
		EndedAt:     endedAt,
	}
}
