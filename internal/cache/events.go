// Package cache publishes notable match transitions to a Redis event
// channel, for spectator feeds and debugging. It is the production sink
// behind the engine's Observer interface; the engine itself never owns
// global state.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ludoverse/ludo/engine"
)

// EventType tags one published match event.
type EventType string

const (
	EventMove              EventType = "move"
	EventCapture           EventType = "capture"
	EventValidationFailure EventType = "validation_failure"
)

// Event is the wire form of one match event.
type Event struct {
	Type      EventType    `json:"type"`
	MatchID   uuid.UUID    `json:"matchId"`
	PlayerID  string       `json:"playerId"`
	Move      *engine.Move `json:"move,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Publisher implements engine.Observer over a Redis channel. Publish
// failures are logged and swallowed: the event feed is advisory and must
// never stall a transition.
type Publisher struct {
	rdb     *redis.Client
	matchID uuid.UUID
	log     *logrus.Entry
}

var _ engine.Observer = (*Publisher)(nil)

// NewPublisher builds the event sink for one match.
func NewPublisher(rdb *redis.Client, matchID uuid.UUID, log *logrus.Logger) *Publisher {
	return &Publisher{
		rdb:     rdb,
		matchID: matchID,
		log:     log.WithFields(logrus.Fields{"component": "cache", "match": matchID}),
	}
}

func channel(matchID uuid.UUID) string {
	return "ludo:" + matchID.String() + ":events"
}

// OnMove publishes every applied move, skips included.
func (p *Publisher) OnMove(_ *engine.GameState, m engine.Move) {
	mv := m
	p.publish(Event{
		Type:     EventMove,
		PlayerID: m.PlayerID,
		Move:     &mv,
	})
}

// OnCapture publishes capture moves a second time under their own tag so
// feed consumers can filter cheaply.
func (p *Publisher) OnCapture(_ *engine.GameState, m engine.Move) {
	mv := m
	p.publish(Event{
		Type:     EventCapture,
		PlayerID: m.PlayerID,
		Move:     &mv,
	})
}

// OnValidationFailure publishes rejected intents, for debugging stale or
// misbehaving clients.
func (p *Publisher) OnValidationFailure(_ *engine.GameState, playerID string, rerr *engine.RuleError) {
	p.publish(Event{
		Type:     EventValidationFailure,
		PlayerID: playerID,
		Reason:   string(rerr.Reason),
		Detail:   rerr.Detail,
	})
}

func (p *Publisher) publish(ev Event) {
	ev.MatchID = p.matchID
	ev.Timestamp = time.Now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Warn("could not encode match event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rdb.Publish(ctx, channel(p.matchID), data).Err(); err != nil {
		p.log.WithError(err).Debug("match event publish failed")
	}
}
