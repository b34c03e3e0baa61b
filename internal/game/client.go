package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ludoverse/ludo/internal/config"
	"github.com/ludoverse/ludo/internal/models"
	"github.com/ludoverse/ludo/internal/store"
)

// Client is a non-host participant: it enqueues intents, heartbeats its own
// presence, and reads canonical state. It never applies engine transitions.
type Client struct {
	matchID  uuid.UUID
	playerID string
	st       store.Store
	cfg      *config.Config
	log      *logrus.Entry
	now      func() time.Time
}

// NewClient builds the client session for one seat.
func NewClient(matchID uuid.UUID, playerID string, st store.Store, cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		matchID:  matchID,
		playerID: playerID,
		st:       st,
		cfg:      cfg,
		log: log.WithFields(logrus.Fields{
			"component": "client", "match": matchID, "player": playerID,
		}),
		now: time.Now,
	}
}

// SubmitRoll enqueues a roll intent. The host rolls the actual value.
func (c *Client) SubmitRoll(ctx context.Context) error {
	return c.st.Enqueue(ctx, c.matchID, models.NewAction(c.playerID, models.ActionRollDice, 0))
}

// SubmitMove enqueues a token selection.
func (c *Client) SubmitMove(ctx context.Context, tokenID int) error {
	return c.st.Enqueue(ctx, c.matchID, models.NewAction(c.playerID, models.ActionMoveToken, tokenID))
}

// Leave abandons the match for good: an explicit intent for the host plus an
// offline presence record so watchers see it immediately.
func (c *Client) Leave(ctx context.Context) error {
	now := c.now()
	if err := c.st.UpsertPresence(ctx, c.matchID, models.PresenceRecord{
		PlayerID: c.playerID, IsOnline: false, LastSeenAt: now, DisconnectedAt: &now,
	}); err != nil {
		c.log.WithError(err).Warn("could not write leave presence")
	}
	return c.st.Enqueue(ctx, c.matchID, models.NewAction(c.playerID, models.ActionLeave, 0))
}

// RunHeartbeat upserts this player's presence on the configured cadence
// until ctx is done. A failed write is a transient connectivity error:
// logged and retried on the next tick, never surfaced.
func (c *Client) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	c.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.beat(ctx)
		}
	}
}

func (c *Client) beat(ctx context.Context) {
	err := c.st.UpsertPresence(ctx, c.matchID, models.PresenceRecord{
		PlayerID:   c.playerID,
		IsOnline:   true,
		LastSeenAt: c.now(),
	})
	if err != nil {
		c.log.WithError(err).Debug("heartbeat failed, retrying next tick")
	}
}

// States subscribes to canonical-state publishes.
func (c *Client) States(ctx context.Context) (<-chan *models.StateDoc, error) {
	return c.st.WatchState(ctx, c.matchID)
}

// Presence subscribes to the presence collection, for UI display only.
func (c *Client) Presence(ctx context.Context) (<-chan map[string]models.PresenceRecord, error) {
	return c.st.WatchPresence(ctx, c.matchID)
}
