package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ludoverse/ludo/internal/models"
)

// matchTTL bounds how long abandoned match documents linger in Redis.
const matchTTL = 24 * time.Hour

// Redis is the online Store: canonical state as a JSON key with a pub/sub
// change channel, actions as a per-match hash, presence as a per-match hash.
type Redis struct {
	rdb *redis.Client
	log *logrus.Entry
}

var _ Store = (*Redis)(nil)

// NewRedis wraps an existing go-redis client.
func NewRedis(rdb *redis.Client, log *logrus.Logger) *Redis {
	return &Redis{rdb: rdb, log: log.WithField("component", "store")}
}

func stateKey(id uuid.UUID) string    { return fmt.Sprintf("ludo:%s:state", id) }
func actionsKey(id uuid.UUID) string  { return fmt.Sprintf("ludo:%s:actions", id) }
func presenceKey(id uuid.UUID) string { return fmt.Sprintf("ludo:%s:presence", id) }
func stateChan(id uuid.UUID) string   { return fmt.Sprintf("ludo:%s:state:ch", id) }
func actionsChan(id uuid.UUID) string { return fmt.Sprintf("ludo:%s:actions:ch", id) }
func presChan(id uuid.UUID) string    { return fmt.Sprintf("ludo:%s:presence:ch", id) }

// PublishState writes the canonical document and notifies subscribers.
func (s *Redis) PublishState(ctx context.Context, matchID uuid.UUID, doc *models.StateDoc) error {
	data, err := models.EncodeStateDoc(doc)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, stateKey(matchID), data, matchTTL).Err(); err != nil {
		return fmt.Errorf("store: publish state: %w", err)
	}
	if err := s.rdb.Publish(ctx, stateChan(matchID), data).Err(); err != nil {
		return fmt.Errorf("store: notify state: %w", err)
	}
	return nil
}

// LoadState fetches and validates the canonical document.
func (s *Redis) LoadState(ctx context.Context, matchID uuid.UUID) (*models.StateDoc, error) {
	data, err := s.rdb.Get(ctx, stateKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("store: load state: %w", err)
	}
	return models.DecodeStateDoc(data)
}

// WatchState subscribes to state publishes, delivering the current document
// first. Undecodable payloads are dropped with a warning: one corrupted
// publish must not kill every subscriber loop.
func (s *Redis) WatchState(ctx context.Context, matchID uuid.UUID) (<-chan *models.StateDoc, error) {
	sub := s.rdb.Subscribe(ctx, stateChan(matchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("store: subscribe state: %w", err)
	}

	out := make(chan *models.StateDoc, watchBuffer)
	cur, err := s.LoadState(ctx, matchID)
	if err == nil {
		out <- cur
	} else if !errors.Is(err, ErrNoState) {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				doc, err := models.DecodeStateDoc([]byte(msg.Payload))
				if err != nil {
					s.log.WithError(err).WithField("match", matchID).Warn("dropping bad state publish")
					continue
				}
				sendLatest(out, doc)
			}
		}
	}()
	return out, nil
}

// Enqueue stores the intent and notifies the host.
func (s *Redis) Enqueue(ctx context.Context, matchID uuid.UUID, a *models.Action) error {
	data, err := models.EncodeAction(a)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, actionsKey(matchID), a.ID.String(), data)
	pipe.Expire(ctx, actionsKey(matchID), matchTTL)
	pipe.Publish(ctx, actionsChan(matchID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: enqueue action: %w", err)
	}
	return nil
}

// WatchActions replays undeleted actions in creation order, then streams new
// ones. Re-deliveries across the replay/stream seam are deduplicated by id.
func (s *Redis) WatchActions(ctx context.Context, matchID uuid.UUID) (<-chan *models.Action, error) {
	sub := s.rdb.Subscribe(ctx, actionsChan(matchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("store: subscribe actions: %w", err)
	}

	fields, err := s.rdb.HGetAll(ctx, actionsKey(matchID)).Result()
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("store: replay actions: %w", err)
	}
	backlog := make([]*models.Action, 0, len(fields))
	for _, raw := range fields {
		a, err := models.DecodeAction([]byte(raw))
		if err != nil {
			s.log.WithError(err).WithField("match", matchID).Warn("dropping bad queued action")
			continue
		}
		backlog = append(backlog, a)
	}
	sort.Slice(backlog, func(i, j int) bool { return backlog[i].CreatedAt.Before(backlog[j].CreatedAt) })

	out := make(chan *models.Action, watchBuffer)
	seen := make(map[uuid.UUID]struct{}, len(backlog))
	for _, a := range backlog {
		seen[a.ID] = struct{}{}
		sendLatest(out, a)
	}

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				a, err := models.DecodeAction([]byte(msg.Payload))
				if err != nil {
					s.log.WithError(err).WithField("match", matchID).Warn("dropping bad queued action")
					continue
				}
				if _, dup := seen[a.ID]; dup {
					continue
				}
				seen[a.ID] = struct{}{}
				sendLatest(out, a)
			}
		}
	}()
	return out, nil
}

// DeleteAction removes a consumed intent.
func (s *Redis) DeleteAction(ctx context.Context, matchID uuid.UUID, actionID uuid.UUID) error {
	if err := s.rdb.HDel(ctx, actionsKey(matchID), actionID.String()).Err(); err != nil {
		return fmt.Errorf("store: delete action: %w", err)
	}
	return nil
}

// UpsertPresence replaces one player's record and notifies watchers.
func (s *Redis) UpsertPresence(ctx context.Context, matchID uuid.UUID, rec models.PresenceRecord) error {
	data, err := models.EncodePresence(rec)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, presenceKey(matchID), rec.PlayerID, data)
	pipe.Expire(ctx, presenceKey(matchID), matchTTL)
	pipe.Publish(ctx, presChan(matchID), rec.PlayerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: upsert presence: %w", err)
	}
	return nil
}

// ListPresence fetches the full presence map.
func (s *Redis) ListPresence(ctx context.Context, matchID uuid.UUID) (map[string]models.PresenceRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, presenceKey(matchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list presence: %w", err)
	}
	recs := make(map[string]models.PresenceRecord, len(fields))
	for player, raw := range fields {
		rec, err := models.DecodePresence([]byte(raw))
		if err != nil {
			s.log.WithError(err).WithField("match", matchID).Warn("dropping bad presence record")
			continue
		}
		recs[player] = rec
	}
	return recs, nil
}

// WatchPresence delivers the full presence map after every upsert.
func (s *Redis) WatchPresence(ctx context.Context, matchID uuid.UUID) (<-chan map[string]models.PresenceRecord, error) {
	sub := s.rdb.Subscribe(ctx, presChan(matchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("store: subscribe presence: %w", err)
	}

	out := make(chan map[string]models.PresenceRecord, watchBuffer)
	cur, err := s.ListPresence(ctx, matchID)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	out <- cur

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Channel():
				if !ok {
					return
				}
				recs, err := s.ListPresence(ctx, matchID)
				if err != nil {
					s.log.WithError(err).WithField("match", matchID).Warn("presence refresh failed")
					continue
				}
				sendLatest(out, recs)
			}
		}
	}()
	return out, nil
}
