package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoverse/ludo/internal/config"
	"github.com/ludoverse/ludo/internal/models"
	"github.com/ludoverse/ludo/internal/store"
)

// flakyStore fails the first N presence writes, then succeeds.
type flakyStore struct {
	store.Store
	failures int
	writes   int
}

func (f *flakyStore) UpsertPresence(ctx context.Context, matchID uuid.UUID, rec models.PresenceRecord) error {
	f.writes++
	if f.failures > 0 {
		f.failures--
		return errors.New("transient write failure")
	}
	return f.Store.UpsertPresence(ctx, matchID, rec)
}

func TestClientSubmitsIntents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := store.NewMemory()
	match := uuid.New()
	c := NewClient(match, "p2", mem, config.Default(), testLogger())

	ch, err := mem.WatchActions(ctx, match)
	require.NoError(t, err)

	require.NoError(t, c.SubmitRoll(ctx))
	a := <-ch
	assert.Equal(t, models.ActionRollDice, a.Type)
	assert.Equal(t, "p2", a.PlayerID)

	require.NoError(t, c.SubmitMove(ctx, 3))
	a = <-ch
	assert.Equal(t, models.ActionMoveToken, a.Type)
	assert.Equal(t, 3, a.TokenID)
}

func TestClientLeaveWritesPresenceAndIntent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	match := uuid.New()
	c := NewClient(match, "p2", mem, config.Default(), testLogger())

	require.NoError(t, c.Leave(ctx))

	recs, err := mem.ListPresence(ctx, match)
	require.NoError(t, err)
	require.Contains(t, recs, "p2")
	assert.False(t, recs["p2"].IsOnline)
	require.NotNil(t, recs["p2"].DisconnectedAt)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := mem.WatchActions(watchCtx, match)
	require.NoError(t, err)
	a := <-ch
	assert.Equal(t, models.ActionLeave, a.Type)
}

// TestHeartbeatRetriesNextTick: a failed heartbeat write is swallowed and
// the next tick lands normally.
func TestHeartbeatRetriesNextTick(t *testing.T) {
	mem := store.NewMemory()
	fs := &flakyStore{Store: mem, failures: 1}
	match := uuid.New()

	cfg := config.Default()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	c := NewClient(match, "p1", fs, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c.RunHeartbeat(ctx)

	assert.GreaterOrEqual(t, fs.writes, 2)
	recs, err := mem.ListPresence(context.Background(), match)
	require.NoError(t, err)
	require.Contains(t, recs, "p1")
	assert.True(t, recs["p1"].IsOnline)
}
