package game

import (
	"math/rand/v2"
	"time"

	"github.com/ludoverse/ludo/engine"
	"github.com/ludoverse/ludo/engine/agent"
)

// OfflineSession runs a local match against bots: single-threaded, the
// caller invokes transitions synchronously and bot turns run inline with a
// pacing pause. Only one state mutation is ever in flight.
type OfflineSession struct {
	eng   *engine.Engine
	state *engine.GameState
	dice  Roller
	rng   *rand.Rand
	diff  agent.Difficulty

	humanID string

	thinkDelay time.Duration
	pause      func(time.Duration)
}

// OfflineOption customizes an OfflineSession.
type OfflineOption func(*OfflineSession)

// WithOfflineDice overrides the roller, for tests.
func WithOfflineDice(d Roller) OfflineOption { return func(s *OfflineSession) { s.dice = d } }

// WithThinkDelay sets the bot pacing pause. Zero disables it.
func WithThinkDelay(d time.Duration) OfflineOption {
	return func(s *OfflineSession) { s.thinkDelay = d }
}

// WithPause overrides the pacing sleep, for tests.
func WithPause(f func(time.Duration)) OfflineOption {
	return func(s *OfflineSession) { s.pause = f }
}

// NewOfflineSession creates a match of one human against 1..3 bots at the
// given difficulty. obs may be nil.
func NewOfflineSession(humanName string, botCount int, diff agent.Difficulty, obs engine.Observer, opts ...OfflineOption) (*OfflineSession, error) {
	g, err := engine.NewOfflineGame(humanName, botCount)
	if err != nil {
		return nil, err
	}
	s := &OfflineSession{
		eng:        engine.New(obs),
		state:      g,
		dice:       NewTimeDice(),
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
		diff:       diff,
		humanID:    g.CurrentTurnPlayerID,
		thinkDelay: 600 * time.Millisecond,
		pause:      time.Sleep,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// State returns the current snapshot.
func (s *OfflineSession) State() *engine.GameState { return s.state }

// Roll rolls for the human seat, then lets any bot turns play out before
// returning control.
func (s *OfflineSession) Roll() (engine.RollOutcome, error) {
	next, out, err := s.eng.RollDice(s.state, s.humanID, s.dice.Roll())
	if err != nil {
		return engine.RollOutcome{}, err
	}
	s.state = next
	if out.TurnAdvanced {
		s.runBots()
	}
	return out, nil
}

// Move applies the human's token selection, then lets any bot turns play
// out before returning control.
func (s *OfflineSession) Move(tokenID int) (engine.MoveOutcome, error) {
	next, out, err := s.eng.MoveToken(s.state, s.humanID, tokenID)
	if err != nil {
		return engine.MoveOutcome{}, err
	}
	s.state = next
	if out.TurnAdvanced {
		s.runBots()
	}
	return out, nil
}

// runBots plays bot turns until the human is to move again or the match
// ends. The pacing pause is cosmetic only.
func (s *OfflineSession) runBots() {
	for s.state.InProgress() {
		cur := s.state.CurrentPlayer()
		if cur == nil || !cur.IsBot {
			return
		}
		if s.thinkDelay > 0 {
			s.pause(s.thinkDelay)
		}

		if s.state.CanRollDice {
			next, _, err := s.eng.RollDice(s.state, cur.ID, s.dice.Roll())
			if err != nil {
				return
			}
			s.state = next
			continue
		}

		movable := engine.MovableTokens(s.state, s.state.DiceValue)
		if len(movable) == 0 {
			return
		}
		tokenID := agent.ChooseToken(s.state, movable, s.diff, s.rng)
		next, _, err := s.eng.MoveToken(s.state, cur.ID, tokenID)
		if err != nil {
			return
		}
		s.state = next
	}
}
