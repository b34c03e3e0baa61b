// Package game runs Ludo matches over the document store: the
// host-authoritative online session, the thin non-host client, and the
// single-threaded offline session.
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ludoverse/ludo/engine"
	"github.com/ludoverse/ludo/engine/agent"
	"github.com/ludoverse/ludo/internal/config"
	"github.com/ludoverse/ludo/internal/models"
	"github.com/ludoverse/ludo/internal/store"
)

// Archiver persists the final match result. The database package provides
// the production implementation.
type Archiver interface {
	SaveMatchResult(ctx context.Context, res *models.MatchResult) error
}

// Host owns write authority over one match's canonical state. It is the sole
// consumer of the action queue and the sole executor of engine transitions;
// everything it decides on timeouts is recomputed from persisted timestamps,
// so a restarted host resumes correctly.
//
// Host failure has no migration path: remaining clients observe the host's
// presence going stale and abandon the match.
type Host struct {
	matchID  uuid.UUID
	playerID string

	st  store.Store
	eng *engine.Engine
	cfg *config.Config
	log *logrus.Entry

	state   *engine.GameState
	version int64

	dice    Roller
	rng     *rand.Rand
	botDiff agent.Difficulty

	archive Archiver
	now     func() time.Time

	// departed seats are out for good: explicit leave or expired rejoin
	// window. Distinct from a disconnect, which is still inside the window.
	departed map[string]bool
}

// HostOption customizes a Host.
type HostOption func(*Host)

// WithArchiver enables final-result archiving.
func WithArchiver(a Archiver) HostOption { return func(h *Host) { h.archive = a } }

// WithDice overrides the dice roller, for tests.
func WithDice(d Roller) HostOption { return func(h *Host) { h.dice = d } }

// WithHostClock overrides the wall clock, for tests.
func WithHostClock(now func() time.Time) HostOption {
	return func(h *Host) {
		h.now = now
		h.eng = h.eng.WithClock(now)
	}
}

// WithBotDifficulty sets the tier for host-driven bot seats.
func WithBotDifficulty(d agent.Difficulty) HostOption { return func(h *Host) { h.botDiff = d } }

// NewHost builds the host session for a freshly created match state. obs may
// be nil; pass the cache publisher to log notable transitions.
func NewHost(matchID uuid.UUID, hostPlayerID string, initial *engine.GameState, st store.Store, cfg *config.Config, obs engine.Observer, log *logrus.Logger) *Host {
	h := &Host{
		matchID:  matchID,
		playerID: hostPlayerID,
		st:       st,
		eng:      engine.New(obs),
		cfg:      cfg,
		log:      log.WithFields(logrus.Fields{"component": "host", "match": matchID}),
		state:    initial,
		dice:     NewTimeDice(),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		botDiff:  agent.Normal,
		now:      time.Now,
		departed: make(map[string]bool),
	}
	return h
}

// Apply options after construction so WithHostClock can rewrap the engine.
func (h *Host) With(opts ...HostOption) *Host {
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run publishes the initial state, then drains actions and runs the
// watchdog until the match ends or ctx is done.
func (h *Host) Run(ctx context.Context) error {
	if err := h.publish(ctx); err != nil {
		return err
	}
	actions, err := h.st.WatchActions(ctx, h.matchID)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(h.cfg.WatchdogInterval)
	defer ticker.Stop()

	h.log.Info("host running")
	for h.state.InProgress() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-actions:
			if !ok {
				return errors.New("game: action subscription closed")
			}
			h.handleAction(ctx, a)
		case <-ticker.C:
			h.tick(ctx)
		}
	}

	h.log.WithField("winner", h.state.WinnerID).Info("match ended")
	h.archiveResult(ctx)
	return nil
}

// handleAction validates and applies one queued intent, republishes on
// success, and always deletes the consumed document. Invalid or stale
// intents are dropped silently: the submitter sees the authoritative state
// move on, other clients see nothing.
func (h *Host) handleAction(ctx context.Context, a *models.Action) {
	defer func() {
		if err := h.st.DeleteAction(ctx, h.matchID, a.ID); err != nil {
			h.log.WithError(err).Warn("could not delete consumed action")
		}
	}()

	log := h.log.WithFields(logrus.Fields{"player": a.PlayerID, "action": a.Type})
	if h.departed[a.PlayerID] {
		log.Debug("dropping action from departed player")
		return
	}

	switch a.Type {
	case models.ActionHeartbeat:
		h.refreshPresence(ctx, a.PlayerID)
		return
	case models.ActionLeave:
		h.handleLeave(ctx, a.PlayerID)
		return
	case models.ActionRollDice:
		value := h.dice.Roll()
		next, out, err := h.eng.RollDice(h.state, a.PlayerID, value)
		if err != nil {
			log.WithError(err).Debug("dropping illegal roll")
			return
		}
		h.state = next
		log.WithFields(logrus.Fields{"value": out.Value, "advanced": out.TurnAdvanced}).Info("roll applied")
	case models.ActionMoveToken:
		next, out, err := h.eng.MoveToken(h.state, a.PlayerID, a.TokenID)
		if err != nil {
			log.WithError(err).Debug("dropping illegal move")
			return
		}
		h.state = next
		log.WithFields(logrus.Fields{"token": a.TokenID, "type": out.Move.Type, "won": out.Won}).Info("move applied")
	default:
		log.Debug("dropping unknown action type")
		return
	}

	if err := h.publish(ctx); err != nil {
		h.log.WithError(err).Error("publish failed, will retry on next transition")
	}
}

// tick is the watchdog pass: detect stale heartbeats, expire rejoin windows,
// force-advance AFK turns, and drive bot seats.
func (h *Host) tick(ctx context.Context) {
	now := h.now()
	// The running host is its own liveness signal.
	h.refreshPresence(ctx, h.playerID)
	h.sweepPresence(ctx, now)
	if !h.state.InProgress() {
		return
	}

	cur := h.state.CurrentPlayer()
	if cur == nil {
		return
	}

	if cur.IsBot {
		h.driveBot(ctx, now, cur)
		return
	}

	// AFK: no action from the player to move within the window, measured
	// from the persisted turn timestamp.
	if now.Sub(h.state.TurnStartedAt) >= h.cfg.AFKTimeout {
		h.log.WithField("player", cur.ID).Info("afk timeout, forcing turn advance")
		next, err := h.eng.AdvanceToNextPlayer(h.state)
		if err != nil {
			h.log.WithError(err).Warn("afk advance rejected")
			return
		}
		h.state = next
		if err := h.publish(ctx); err != nil {
			h.log.WithError(err).Error("publish failed after afk advance")
		}
	}
}

// driveBot plays one step of a bot turn per tick, which spaces roll and
// move by the watchdog cadence and keeps play watchable.
func (h *Host) driveBot(ctx context.Context, now time.Time, bot *engine.Player) {
	if now.Sub(h.state.TurnStartedAt) < h.cfg.BotThinkDelay {
		return
	}

	switch {
	case h.state.CanRollDice:
		next, _, err := h.eng.RollDice(h.state, bot.ID, h.dice.Roll())
		if err != nil {
			h.log.WithError(err).WithField("player", bot.ID).Warn("bot roll rejected")
			return
		}
		h.state = next
	case h.state.MustSelectToken:
		movable := engine.MovableTokens(h.state, h.state.DiceValue)
		if len(movable) == 0 {
			return
		}
		tokenID := agent.ChooseToken(h.state, movable, h.botDiff, h.rng)
		next, _, err := h.eng.MoveToken(h.state, bot.ID, tokenID)
		if err != nil {
			h.log.WithError(err).WithField("player", bot.ID).Warn("bot move rejected")
			return
		}
		h.state = next
	default:
		return
	}

	if err := h.publish(ctx); err != nil {
		h.log.WithError(err).Error("publish failed after bot step")
	}
}

// sweepPresence recomputes the disconnect and rejoin timers from persisted
// timestamps only. Clients cannot reliably signal their own death, so the
// host infers it from heartbeat silence.
func (h *Host) sweepPresence(ctx context.Context, now time.Time) {
	recs, err := h.st.ListPresence(ctx, h.matchID)
	if err != nil {
		h.log.WithError(err).Warn("presence sweep failed")
		return
	}

	staleAfter := 3 * h.cfg.HeartbeatInterval
	// Seat flags change on a clone; already delivered snapshots stay
	// untouched.
	next := h.state.Clone()
	changed := false
	for i := range next.Players {
		p := &next.Players[i]
		if p.IsBot || h.departed[p.ID] {
			continue
		}
		rec, ok := recs[p.ID]
		if !ok {
			// Never heartbeated. Seed the record so the stale and rejoin
			// timers cover a client that dies before its first heartbeat.
			rec = models.PresenceRecord{PlayerID: p.ID, IsOnline: true, LastSeenAt: now}
			if err := h.st.UpsertPresence(ctx, h.matchID, rec); err != nil {
				h.log.WithError(err).Warn("could not seed presence")
			}
			continue
		}

		switch {
		case rec.IsOnline && now.Sub(rec.LastSeenAt) >= staleAfter:
			h.markDisconnected(ctx, now, p, rec)
			changed = true
		case rec.IsOnline && !p.IsOnline:
			// The client resumed heartbeating on its own inside the window.
			h.log.WithField("player", p.ID).Info("player rejoined inside window")
			p.IsOnline = true
			changed = true
		case !rec.IsOnline && now.Sub(rec.LastSeenAt) < staleAfter:
			// Heartbeats resumed inside the rejoin window.
			h.markRejoined(ctx, p, rec)
			changed = true
		case !rec.IsOnline && rec.DisconnectedAt != nil && now.Sub(*rec.DisconnectedAt) >= h.cfg.RejoinWindow:
			h.log.WithField("player", p.ID).Info("rejoin window expired")
			h.departed[p.ID] = true
			p.IsOnline = false
			changed = true
		}
	}
	if changed {
		h.state = next
	}

	if h.resolveDropout(ctx) {
		return
	}
	if changed && h.state.InProgress() {
		if err := h.publish(ctx); err != nil {
			h.log.WithError(err).Error("publish failed after presence change")
		}
	}
}

func (h *Host) markDisconnected(ctx context.Context, now time.Time, p *engine.Player, rec models.PresenceRecord) {
	h.log.WithField("player", p.ID).Info("heartbeats stale, marking disconnected")
	dc := now
	rec.IsOnline = false
	rec.DisconnectedAt = &dc
	if err := h.st.UpsertPresence(ctx, h.matchID, rec); err != nil {
		h.log.WithError(err).Warn("could not persist disconnect")
	}
	p.IsOnline = false
}

func (h *Host) markRejoined(ctx context.Context, p *engine.Player, rec models.PresenceRecord) {
	h.log.WithField("player", p.ID).Info("player rejoined inside window")
	rec.IsOnline = true
	rec.DisconnectedAt = nil
	if err := h.st.UpsertPresence(ctx, h.matchID, rec); err != nil {
		h.log.WithError(err).Warn("could not persist rejoin")
	}
	p.IsOnline = true
}

// handleLeave removes the seat immediately: no rejoin window applies.
func (h *Host) handleLeave(ctx context.Context, playerID string) {
	p := h.state.PlayerByID(playerID)
	if p == nil || h.departed[playerID] {
		return
	}
	h.log.WithField("player", playerID).Info("player left the match")
	h.departed[playerID] = true

	now := h.now()
	if err := h.st.UpsertPresence(ctx, h.matchID, models.PresenceRecord{
		PlayerID: playerID, IsOnline: false, LastSeenAt: now, DisconnectedAt: &now,
	}); err != nil {
		h.log.WithError(err).Warn("could not persist leave")
	}

	if h.resolveDropout(ctx) {
		return
	}
	next := h.state.Clone()
	if next.InProgress() && next.CurrentTurnPlayerID == playerID {
		if advanced, err := h.eng.AdvanceToNextPlayer(next); err == nil {
			next = advanced
		}
	}
	h.syncSeatPresence(next)
	h.state = next
	if err := h.publish(ctx); err != nil {
		h.log.WithError(err).Error("publish failed after leave")
	}
}

// resolveDropout ends the match when departures leave fewer than two
// playable seats, declaring the lone survivor the winner. Reports whether
// the match ended here.
func (h *Host) resolveDropout(ctx context.Context) bool {
	if !h.state.InProgress() {
		return false
	}
	var survivors []*engine.Player
	for i := range h.state.Players {
		p := &h.state.Players[i]
		if !h.departed[p.ID] && !p.HasFinished() {
			survivors = append(survivors, p)
		}
	}
	if len(survivors) >= engine.MinPlayers {
		return false
	}

	next := h.state.Clone()
	next.Status = engine.StatusFinished
	next.CanRollDice = false
	next.MustSelectToken = false
	next.DiceValue = engine.DiceNone
	if len(survivors) == 1 {
		next.WinnerID = survivors[0].ID
		next.FinishOrder = append(next.FinishOrder, survivors[0].ID)
		h.log.WithField("winner", next.WinnerID).Info("dropout resolution, lone survivor wins")
	} else {
		next.Status = engine.StatusAbandoned
		h.log.Info("dropout resolution, no survivors, match abandoned")
	}
	h.syncSeatPresence(next)
	h.state = next
	if err := h.publish(ctx); err != nil {
		h.log.WithError(err).Error("publish failed after dropout resolution")
	}
	return true
}

// refreshPresence handles a heartbeat that arrived as a queued action
// rather than a direct presence upsert.
func (h *Host) refreshPresence(ctx context.Context, playerID string) {
	if err := h.st.UpsertPresence(ctx, h.matchID, models.PresenceRecord{
		PlayerID: playerID, IsOnline: true, LastSeenAt: h.now(),
	}); err != nil {
		h.log.WithError(err).Debug("heartbeat upsert failed")
	}
}

// syncSeatPresence mirrors departure flags onto the seats of a not yet
// published state so subscribers render them without reading the presence
// collection.
func (h *Host) syncSeatPresence(g *engine.GameState) {
	for i := range g.Players {
		if h.departed[g.Players[i].ID] {
			g.Players[i].IsOnline = false
		}
	}
}

// publish writes the canonical state with the next version number.
func (h *Host) publish(ctx context.Context) error {
	h.version++
	return h.st.PublishState(ctx, h.matchID, &models.StateDoc{
		MatchID:     h.matchID,
		Version:     h.version,
		State:       h.state,
		PublishedAt: h.now(),
	})
}

// archiveResult persists the final summary, best effort.
func (h *Host) archiveResult(ctx context.Context) {
	if h.archive == nil {
		return
	}
	res := models.ResultFromState(h.matchID, h.state, h.now())
	if err := h.archive.SaveMatchResult(ctx, res); err != nil {
		h.log.WithError(err).Error("could not archive match result")
	}
}

// State returns the host's current canonical snapshot.
func (h *Host) State() *engine.GameState { return h.state }
