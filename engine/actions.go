package engine

import "time"

// maxSixStreak is the number of consecutive sixes that forfeits the roll's
// move. Anti-stalling rule: the third six skips the turn outright.
const maxSixStreak = 3

// Engine applies transitions and reports them to an optional Observer. It
// holds no match state of its own; every method consumes one GameState and
// returns the next snapshot, leaving the input untouched.
type Engine struct {
	obs Observer
	now func() time.Time
}

// New returns an Engine reporting to obs. A nil obs discards observations.
func New(obs Observer) *Engine {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{obs: obs, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// RollOutcome describes what a roll produced.
type RollOutcome struct {
	Value            int
	Movable          []int // token ids the roller may now select; nil if the turn advanced
	SixStreakForfeit bool  // third consecutive six forfeited the move
	TurnAdvanced     bool  // no selection pending; play moved to the next seat
}

// RollDice applies a dice roll of value 1..6 for playerID. If no token can
// move, or a third consecutive six forfeits the roll, the turn silently
// advances to the next non-finished seat; otherwise the state awaits token
// selection.
func (e *Engine) RollDice(g *GameState, playerID string, value int) (*GameState, RollOutcome, error) {
	if rerr := e.checkRoll(g, playerID, value); rerr != nil {
		return nil, RollOutcome{}, rerr
	}

	next := g.Clone()
	next.DiceValue = value
	out := RollOutcome{Value: value}

	if value == 6 {
		if g.ConsecutiveSixCount >= maxSixStreak-1 {
			// Third six in a row: forfeit the move and pass the turn.
			e.recordSkip(next, playerID, value)
			e.advance(next)
			out.SixStreakForfeit = true
			out.TurnAdvanced = true
			return next, out, nil
		}
		next.ConsecutiveSixCount = g.ConsecutiveSixCount + 1
	} else {
		next.ConsecutiveSixCount = 0
	}

	movable := MovableTokens(next, value)
	if len(movable) == 0 {
		e.recordSkip(next, playerID, value)
		e.advance(next)
		out.TurnAdvanced = true
		return next, out, nil
	}

	next.MustSelectToken = true
	next.CanRollDice = false
	out.Movable = movable
	return next, out, nil
}

func (e *Engine) checkRoll(g *GameState, playerID string, value int) *RuleError {
	var rerr *RuleError
	switch {
	case !g.InProgress():
		rerr = ruleErr(ReasonMatchOver, "match is not in progress")
	case g.PlayerByID(playerID) == nil:
		rerr = ruleErr(ReasonUnknownPlayer, "player %q not in roster", playerID)
	case playerID != g.CurrentTurnPlayerID:
		rerr = ruleErr(ReasonNotYourTurn, "turn belongs to %q", g.CurrentTurnPlayerID)
	case !g.CanRollDice:
		rerr = ruleErr(ReasonAlreadyRolled, "a roll of %d is awaiting token selection", g.DiceValue)
	case value < 1 || value > 6:
		rerr = ruleErr(ReasonBadDiceValue, "dice value %d out of range", value)
	}
	if rerr != nil {
		e.obs.OnValidationFailure(g, playerID, rerr)
	}
	return rerr
}

// MoveOutcome describes what a token selection produced.
type MoveOutcome struct {
	Move         Move
	BonusTurn    bool // mover keeps the turn and rolls again
	Won          bool // this move finished the mover's fourth token
	TurnAdvanced bool
}

// MoveToken moves the selected token by the pending dice value, resolving
// capture, bonus-turn, and win detection. Win detection runs before the
// bonus-turn rule: a move that both wins and captures grants no extra roll.
func (e *Engine) MoveToken(g *GameState, playerID string, tokenID int) (*GameState, MoveOutcome, error) {
	if v := ValidateMove(g, playerID, tokenID); !v.Valid {
		rerr := &RuleError{Reason: v.Reason, Detail: v.Detail}
		e.obs.OnValidationFailure(g, playerID, rerr)
		return nil, MoveOutcome{}, rerr
	}

	next := g.Clone()
	p := next.PlayerByID(playerID)
	tok := p.Tokens[tokenID]
	dice := next.DiceValue

	var moveType MoveType
	var newPos int
	switch {
	case tok.State == TokenHome:
		// Spawn on the color's own ring start.
		newPos = 0
		moveType = MoveExitHome
	default:
		newPos = tok.Position + dice
		switch {
		case newPos > PosFinished:
			// Unreachable when MovableTokens prefiltered; reject and leave
			// the token unchanged.
			rerr := ruleErr(ReasonTokenBlocked, "token %d would overshoot the finish", tokenID)
			e.obs.OnValidationFailure(g, playerID, rerr)
			return nil, MoveOutcome{}, rerr
		case newPos == PosFinished:
			moveType = MoveFinish
		case newPos > PosRingMax:
			if tok.Position <= PosRingMax {
				moveType = MoveEnterLane
			} else {
				moveType = MoveNormal
			}
		default:
			moveType = MoveNormal
		}
	}

	if moveType == MoveFinish {
		p.Tokens[tokenID] = Token{ID: tokenID, State: TokenFinished, Position: PosFinished}
	} else {
		p.Tokens[tokenID] = Token{ID: tokenID, State: TokenActive, Position: newPos}
	}

	// Capture is a ring-only concept; lane and finish moves never capture.
	var captured *CapturedToken
	if newPos <= PosRingMax && moveType != MoveFinish {
		captured = e.resolveCapture(next, p, newPos)
	}

	move := Move{
		PlayerID:      playerID,
		TokenID:       tokenID,
		DiceValue:     dice,
		FromPosition:  tok.Position,
		ToPosition:    p.Tokens[tokenID].Position,
		Type:          moveType,
		CapturedToken: captured,
	}
	next.MoveHistory = append(next.MoveHistory, move)
	next.LastMove = &move

	out := MoveOutcome{Move: move}

	if p.HasFinished() {
		// Win detection runs before bonus-turn logic.
		next.Status = StatusFinished
		next.WinnerID = playerID
		next.FinishOrder = append(next.FinishOrder, playerID)
		next.CanRollDice = false
		next.MustSelectToken = false
		next.DiceValue = DiceNone
		out.Won = true
	} else if dice == 6 || captured != nil || moveType == MoveFinish {
		// Bonus turn: same player rolls again. Conditions OR together; they
		// never stack extra turns. The six streak carries across the bonus.
		next.MustSelectToken = false
		next.CanRollDice = true
		next.DiceValue = DiceNone
		next.TurnStartedAt = e.now()
		out.BonusTurn = true
	} else {
		e.advance(next)
		out.TurnAdvanced = true
	}

	e.obs.OnMove(next, move)
	if captured != nil {
		e.obs.OnCapture(next, move)
	}
	return next, out, nil
}

// resolveCapture sends home the first opposing active ring token sharing the
// mover's destination cell, unless that cell is safe. Board geometry admits
// at most one legitimate victim, since stacking only survives on safe cells.
func (e *Engine) resolveCapture(g *GameState, mover *Player, relPos int) *CapturedToken {
	abs := ToAbsolute(relPos, mover.Color)
	if IsSafeCell(abs) {
		return nil
	}
	for i := range g.Players {
		opp := &g.Players[i]
		if opp.ID == mover.ID {
			continue
		}
		for _, t := range opp.Tokens {
			if t.OnRing() && ToAbsolute(t.Position, opp.Color) == abs {
				opp.Tokens[t.ID] = Token{ID: t.ID, State: TokenHome, Position: PosHome}
				return &CapturedToken{PlayerID: opp.ID, TokenID: t.ID}
			}
		}
	}
	return nil
}

// AdvanceToNextPlayer rotates the turn to the next non-finished seat,
// recording a Skip for the seat that lost its move. This is the same
// transition the host applies on an AFK timeout. On a state whose only
// remaining active seat is already current, the turn stays put.
func (e *Engine) AdvanceToNextPlayer(g *GameState) (*GameState, error) {
	if !g.InProgress() {
		return nil, ruleErr(ReasonMatchOver, "match is not in progress")
	}
	next := g.Clone()
	e.recordSkip(next, next.CurrentTurnPlayerID, next.DiceValue)
	e.advance(next)
	return next, nil
}

// recordSkip appends a no-token-moved log entry for a forfeited turn.
func (e *Engine) recordSkip(g *GameState, playerID string, dice int) {
	move := Move{
		PlayerID:     playerID,
		TokenID:      -1,
		DiceValue:    dice,
		FromPosition: PosHome,
		ToPosition:   PosHome,
		Type:         MoveSkip,
	}
	g.MoveHistory = append(g.MoveHistory, move)
	g.LastMove = &move
	e.obs.OnMove(g, move)
}

// advance rotates the turn in fixed seating order, skipping finished seats,
// and resets the per-turn fields. Mutates the (already cloned) state.
func (e *Engine) advance(g *GameState) {
	idx := g.playerIndex(g.CurrentTurnPlayerID)
	n := len(g.Players)
	for step := 1; step <= n; step++ {
		cand := &g.Players[(idx+step)%n]
		if !cand.HasFinished() {
			g.CurrentTurnPlayerID = cand.ID
			break
		}
	}
	g.DiceValue = DiceNone
	g.ConsecutiveSixCount = 0
	g.MustSelectToken = false
	g.CanRollDice = true
	g.TurnStartedAt = e.now()
}
