package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoverse/ludo/engine"
	"github.com/ludoverse/ludo/internal/config"
	"github.com/ludoverse/ludo/internal/models"
	"github.com/ludoverse/ludo/internal/store"
)

// scriptRoller replays a fixed dice sequence.
type scriptRoller struct {
	values []int
	i      int
}

func (r *scriptRoller) Roll() int {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type hostFixture struct {
	h     *Host
	mem   *store.Memory
	clk   *fakeClock
	match uuid.UUID
}

// newHostFixture builds a two-human match hosted by p1, with a scripted
// roller and a frozen clock.
func newHostFixture(t *testing.T, starter string, rolls ...int) *hostFixture {
	t.Helper()
	g, err := engine.NewOnlineGame([]engine.Seat{
		{ID: "p1", DisplayName: "Ada"},
		{ID: "p2", DisplayName: "Grace"},
	}, starter)
	require.NoError(t, err)

	clk := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	g.TurnStartedAt = clk.t
	mem := store.NewMemory()
	match := uuid.New()
	h := NewHost(match, "p1", g, mem, config.Default(), nil, testLogger()).
		With(WithDice(&scriptRoller{values: rolls}), WithHostClock(clk.Now))
	return &hostFixture{h: h, mem: mem, clk: clk, match: match}
}

// TestStaleActionSilentlyDropped: two actions from the same player queued
// close together; the first advances the turn, so the second is stale and
// must vanish without any visible error.
func TestStaleActionSilentlyDropped(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p2", 3) // 3 releases nothing, turn advances

	roll := models.NewAction("p2", models.ActionRollDice, 0)
	move := models.NewAction("p2", models.ActionMoveToken, 0)
	move.CreatedAt = roll.CreatedAt.Add(50 * time.Millisecond)
	require.NoError(t, f.mem.Enqueue(ctx, f.match, roll))
	require.NoError(t, f.mem.Enqueue(ctx, f.match, move))

	f.h.handleAction(ctx, roll)
	require.Equal(t, "p1", f.h.State().CurrentTurnPlayerID)
	doc, err := f.mem.LoadState(ctx, f.match)
	require.NoError(t, err)
	firstVersion := doc.Version

	f.h.handleAction(ctx, move)

	// State untouched, nothing republished, both actions consumed.
	assert.Equal(t, "p1", f.h.State().CurrentTurnPlayerID)
	doc, err = f.mem.LoadState(ctx, f.match)
	require.NoError(t, err)
	assert.Equal(t, firstVersion, doc.Version)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := f.mem.WatchActions(watchCtx, f.match)
	require.NoError(t, err)
	select {
	case a := <-ch:
		t.Fatalf("queue not empty, found %s", a.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRollAndMoveApplied(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p2", 6)

	f.h.handleAction(ctx, models.NewAction("p2", models.ActionRollDice, 0))
	require.True(t, f.h.State().MustSelectToken)

	f.h.handleAction(ctx, models.NewAction("p2", models.ActionMoveToken, 0))
	tok := f.h.State().PlayerByID("p2").Tokens[0]
	assert.Equal(t, engine.TokenActive, tok.State)
	assert.Equal(t, 0, tok.Position)
	// Six grants the bonus turn.
	assert.Equal(t, "p2", f.h.State().CurrentTurnPlayerID)

	doc, err := f.mem.LoadState(ctx, f.match)
	require.NoError(t, err)
	assert.Equal(t, "p2", doc.State.CurrentTurnPlayerID)
}

func TestAFKForceAdvance(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p2", 1)

	f.clk.Advance(config.DefaultAFKTimeout - time.Second)
	f.h.tick(ctx)
	assert.Equal(t, "p2", f.h.State().CurrentTurnPlayerID, "window not yet elapsed")

	f.clk.Advance(2 * time.Second)
	f.h.tick(ctx)
	assert.Equal(t, "p1", f.h.State().CurrentTurnPlayerID)
	require.NotNil(t, f.h.State().LastMove)
	assert.Equal(t, engine.MoveSkip, f.h.State().LastMove.Type)
	// The fresh turn gets a fresh AFK window.
	assert.True(t, f.h.State().TurnStartedAt.Equal(f.clk.t))
}

func TestDisconnectAndRejoinInsideWindow(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p1", 1)

	// p2 heartbeated once, then went silent past the stale threshold.
	require.NoError(t, f.mem.UpsertPresence(ctx, f.match, models.PresenceRecord{
		PlayerID: "p2", IsOnline: true, LastSeenAt: f.clk.t,
	}))
	f.clk.Advance(3*config.DefaultHeartbeatInterval + time.Second)
	f.h.tick(ctx)

	recs, err := f.mem.ListPresence(ctx, f.match)
	require.NoError(t, err)
	require.False(t, recs["p2"].IsOnline)
	require.NotNil(t, recs["p2"].DisconnectedAt)
	assert.False(t, f.h.State().PlayerByID("p2").IsOnline)

	// Heartbeats resume inside the 60s window: seat restored, state
	// otherwise untouched.
	f.clk.Advance(10 * time.Second)
	require.NoError(t, f.mem.UpsertPresence(ctx, f.match, models.PresenceRecord{
		PlayerID: "p2", IsOnline: true, LastSeenAt: f.clk.t,
	}))
	f.h.tick(ctx)

	assert.True(t, f.h.State().PlayerByID("p2").IsOnline)
	assert.True(t, f.h.State().InProgress())
	assert.Equal(t, "p1", f.h.State().CurrentTurnPlayerID)
}

func TestDropoutLoneSurvivorWins(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p1", 1)

	require.NoError(t, f.mem.UpsertPresence(ctx, f.match, models.PresenceRecord{
		PlayerID: "p2", IsOnline: true, LastSeenAt: f.clk.t,
	}))

	// Silence long enough to both mark the disconnect and expire the
	// rejoin window.
	f.clk.Advance(3*config.DefaultHeartbeatInterval + time.Second)
	f.h.tick(ctx)
	require.False(t, f.h.State().PlayerByID("p2").IsOnline)
	require.True(t, f.h.State().InProgress())

	f.clk.Advance(config.DefaultRejoinWindow + time.Second)
	f.h.tick(ctx)

	st := f.h.State()
	assert.Equal(t, engine.StatusFinished, st.Status)
	assert.Equal(t, "p1", st.WinnerID)
	assert.False(t, st.CanRollDice)
	assert.Contains(t, st.FinishOrder, "p1")

	doc, err := f.mem.LoadState(ctx, f.match)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusFinished, doc.State.Status)
}

func TestLeaveResolvesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p2", 1)

	f.h.handleAction(ctx, models.NewAction("p2", models.ActionLeave, 0))

	st := f.h.State()
	assert.Equal(t, engine.StatusFinished, st.Status)
	assert.Equal(t, "p1", st.WinnerID)
}

// TestPublishedSnapshotImmutable: once a StateDoc is delivered, the host
// must never change it underneath the subscriber. Seat-flag updates from
// leaves and presence sweeps land on the next published document only.
func TestPublishedSnapshotImmutable(t *testing.T) {
	ctx := context.Background()
	g, err := engine.NewOnlineGame([]engine.Seat{
		{ID: "p1", DisplayName: "Ada"},
		{ID: "p2", DisplayName: "Grace"},
		{ID: "p3", DisplayName: "Edsger"},
	}, "p1")
	require.NoError(t, err)

	clk := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	g.TurnStartedAt = clk.t
	mem := store.NewMemory()
	match := uuid.New()
	h := NewHost(match, "p1", g, mem, config.Default(), nil, testLogger()).
		With(WithDice(&scriptRoller{values: []int{3}}), WithHostClock(clk.Now))

	h.handleAction(ctx, models.NewAction("p1", models.ActionRollDice, 0))
	before, err := mem.LoadState(ctx, match)
	require.NoError(t, err)
	require.True(t, before.State.PlayerByID("p3").IsOnline)

	h.handleAction(ctx, models.NewAction("p3", models.ActionLeave, 0))
	assert.True(t, before.State.PlayerByID("p3").IsOnline, "delivered snapshot changed by leave")
	after, err := mem.LoadState(ctx, match)
	require.NoError(t, err)
	assert.False(t, after.State.PlayerByID("p3").IsOnline)
	assert.True(t, after.State.InProgress())

	// Same contract for the presence sweep marking a disconnect.
	require.NoError(t, mem.UpsertPresence(ctx, match, models.PresenceRecord{
		PlayerID: "p2", IsOnline: true, LastSeenAt: clk.t,
	}))
	before, err = mem.LoadState(ctx, match)
	require.NoError(t, err)
	clk.Advance(3*config.DefaultHeartbeatInterval + time.Second)
	h.tick(ctx)

	assert.True(t, before.State.PlayerByID("p2").IsOnline, "delivered snapshot changed by sweep")
	assert.False(t, h.State().PlayerByID("p2").IsOnline)
}

// TestNeverHeartbeatedClientExpires: a client that dies before its first
// heartbeat still runs through the disconnect and rejoin timers. The first
// sweep seeds its presence record.
func TestNeverHeartbeatedClientExpires(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p1", 1)

	f.h.tick(ctx)
	recs, err := f.mem.ListPresence(ctx, f.match)
	require.NoError(t, err)
	require.Contains(t, recs, "p2")
	require.True(t, recs["p2"].IsOnline)

	f.clk.Advance(3*config.DefaultHeartbeatInterval + time.Second)
	f.h.tick(ctx)
	require.False(t, f.h.State().PlayerByID("p2").IsOnline)
	require.True(t, f.h.State().InProgress())

	f.clk.Advance(config.DefaultRejoinWindow + time.Second)
	f.h.tick(ctx)
	assert.Equal(t, engine.StatusFinished, f.h.State().Status)
	assert.Equal(t, "p1", f.h.State().WinnerID)
}

func TestHostDrivesBotSeat(t *testing.T) {
	ctx := context.Background()
	g, err := engine.NewOnlineGame([]engine.Seat{
		{ID: "p1", DisplayName: "Ada"},
		{ID: "bot-1", DisplayName: "Milo", IsBot: true},
	}, "bot-1")
	require.NoError(t, err)

	clk := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	g.TurnStartedAt = clk.t
	mem := store.NewMemory()
	match := uuid.New()
	h := NewHost(match, "p1", g, mem, config.Default(), nil, testLogger()).
		With(WithDice(&scriptRoller{values: []int{6}}), WithHostClock(clk.Now))

	// Inside the think delay nothing happens.
	h.tick(ctx)
	assert.True(t, h.State().CanRollDice)

	clk.Advance(config.DefaultBotThinkDelay + time.Millisecond)
	h.tick(ctx) // roll
	require.True(t, h.State().MustSelectToken)
	h.tick(ctx) // select and move
	tok := h.State().PlayerByID("bot-1").Tokens
	released := 0
	for _, tk := range tok {
		if tk.State == engine.TokenActive {
			released++
		}
	}
	assert.Equal(t, 1, released)
}

func TestArchiveCalledOnDropout(t *testing.T) {
	ctx := context.Background()
	f := newHostFixture(t, "p1", 1)
	sink := &captureArchiver{}
	f.h.With(WithArchiver(sink))

	f.h.handleAction(ctx, models.NewAction("p2", models.ActionLeave, 0))
	require.False(t, f.h.State().InProgress())

	f.h.archiveResult(ctx)
	require.NotNil(t, sink.last)
	assert.Equal(t, "p1", sink.last.WinnerID)
	assert.Equal(t, f.match, sink.last.MatchID)
}

type captureArchiver struct {
	last *models.MatchResult
}

func (c *captureArchiver) SaveMatchResult(_ context.Context, res *models.MatchResult) error {
	c.last = res
	return nil
}
