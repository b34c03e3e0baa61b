package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ludoverse/ludo/internal/models"
)

// watchBuffer sizes subscriber channels. A subscriber that falls further
// behind than this loses intermediate documents; the latest one still lands
// because senders drop the oldest pending delivery first.
const watchBuffer = 64

// Memory is a process-local Store for offline sessions and tests. All
// methods are safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*memMatch
}

type memMatch struct {
	state    *models.StateDoc
	stateSub []chan *models.StateDoc

	actions   map[uuid.UUID]*models.Action
	order     []uuid.UUID
	actionSub []chan *models.Action

	presence    map[string]models.PresenceRecord
	presenceSub []chan map[string]models.PresenceRecord
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{matches: make(map[uuid.UUID]*memMatch)}
}

func (m *Memory) match(id uuid.UUID) *memMatch {
	mm, ok := m.matches[id]
	if !ok {
		mm = &memMatch{
			actions:  make(map[uuid.UUID]*models.Action),
			presence: make(map[string]models.PresenceRecord),
		}
		m.matches[id] = mm
	}
	return mm
}

// PublishState replaces the canonical document and fans it out.
func (m *Memory) PublishState(_ context.Context, matchID uuid.UUID, doc *models.StateDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm := m.match(matchID)
	mm.state = doc
	for _, ch := range mm.stateSub {
		sendLatest(ch, doc)
	}
	return nil
}

// LoadState returns the current canonical document.
func (m *Memory) LoadState(_ context.Context, matchID uuid.UUID) (*models.StateDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm := m.match(matchID)
	if mm.state == nil {
		return nil, ErrNoState
	}
	return mm.state, nil
}

// WatchState subscribes to canonical-state publishes. The current document,
// if any, is delivered first.
func (m *Memory) WatchState(ctx context.Context, matchID uuid.UUID) (<-chan *models.StateDoc, error) {
	m.mu.Lock()
	mm := m.match(matchID)
	ch := make(chan *models.StateDoc, watchBuffer)
	if mm.state != nil {
		ch <- mm.state
	}
	mm.stateSub = append(mm.stateSub, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		mm.stateSub = removeSub(mm.stateSub, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Enqueue appends an intent and fans it out to queue watchers.
func (m *Memory) Enqueue(_ context.Context, matchID uuid.UUID, a *models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm := m.match(matchID)
	mm.actions[a.ID] = a
	mm.order = append(mm.order, a.ID)
	for _, ch := range mm.actionSub {
		sendLatest(ch, a)
	}
	return nil
}

// WatchActions replays undeleted actions in enqueue order, then streams new
// ones.
func (m *Memory) WatchActions(ctx context.Context, matchID uuid.UUID) (<-chan *models.Action, error) {
	m.mu.Lock()
	mm := m.match(matchID)
	ch := make(chan *models.Action, watchBuffer)
	for _, id := range mm.order {
		if a, ok := mm.actions[id]; ok {
			sendLatest(ch, a)
		}
	}
	mm.actionSub = append(mm.actionSub, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		mm.actionSub = removeSub(mm.actionSub, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// DeleteAction removes a consumed intent. Deleting an unknown id is a no-op.
func (m *Memory) DeleteAction(_ context.Context, matchID uuid.UUID, actionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm := m.match(matchID)
	delete(mm.actions, actionID)
	for i, id := range mm.order {
		if id == actionID {
			mm.order = append(mm.order[:i], mm.order[i+1:]...)
			break
		}
	}
	return nil
}

// UpsertPresence replaces one player's record and fans out the full map.
func (m *Memory) UpsertPresence(_ context.Context, matchID uuid.UUID, rec models.PresenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm := m.match(matchID)
	mm.presence[rec.PlayerID] = rec
	snap := clonePresence(mm.presence)
	for _, ch := range mm.presenceSub {
		sendLatest(ch, snap)
	}
	return nil
}

// ListPresence returns a copy of the presence map.
func (m *Memory) ListPresence(_ context.Context, matchID uuid.UUID) (map[string]models.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePresence(m.match(matchID).presence), nil
}

// WatchPresence subscribes to presence updates. The current map is delivered
// first.
func (m *Memory) WatchPresence(ctx context.Context, matchID uuid.UUID) (<-chan map[string]models.PresenceRecord, error) {
	m.mu.Lock()
	mm := m.match(matchID)
	ch := make(chan map[string]models.PresenceRecord, watchBuffer)
	ch <- clonePresence(mm.presence)
	mm.presenceSub = append(mm.presenceSub, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		mm.presenceSub = removeSub(mm.presenceSub, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// sendLatest delivers without blocking, evicting the oldest pending item if
// the subscriber is full.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func removeSub[T any](subs []chan T, ch chan T) []chan T {
	for i, c := range subs {
		if c == ch {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

func clonePresence(src map[string]models.PresenceRecord) map[string]models.PresenceRecord {
	dst := make(map[string]models.PresenceRecord, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
