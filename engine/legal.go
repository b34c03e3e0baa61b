package engine

// CanTokenMove reports whether a single token may move with the given dice
// value: a home token needs a six to spawn, an active token needs room to
// land on or before the finish cell.
func CanTokenMove(t Token, dice int) bool {
	switch t.State {
	case TokenHome:
		return dice == 6
	case TokenActive:
		return t.Position+dice <= PosFinished
	default:
		return false
	}
}

// MovableTokens returns the ids of the current player's tokens that can
// legally move with the given dice value, in declaration order.
func MovableTokens(g *GameState, dice int) []int {
	cur := g.CurrentPlayer()
	if cur == nil {
		return nil
	}
	var ids []int
	for _, t := range cur.Tokens {
		if CanTokenMove(t, dice) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Validation is the result of a dry-run legality check.
type Validation struct {
	Valid  bool
	Reason RuleReason
	Detail string
}

func invalid(reason RuleReason, detail string) Validation {
	return Validation{Reason: reason, Detail: detail}
}

// ValidateMove checks whether the given player could select the given token
// right now, without applying anything. The same checks gate MoveToken, so a
// Valid result here means the move would be accepted against this snapshot.
func ValidateMove(g *GameState, playerID string, tokenID int) Validation {
	if !g.InProgress() {
		return invalid(ReasonMatchOver, "match is not in progress")
	}
	if playerID != g.CurrentTurnPlayerID {
		return invalid(ReasonNotYourTurn, "it is not this player's turn")
	}
	if !g.MustSelectToken || g.DiceValue == DiceNone {
		return invalid(ReasonRollFirst, "no dice value awaiting selection")
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return invalid(ReasonUnknownPlayer, "player not in roster")
	}
	if tokenID < 0 || tokenID >= TokensPerPlayer {
		return invalid(ReasonUnknownToken, "token id out of range")
	}
	if !CanTokenMove(p.Tokens[tokenID], g.DiceValue) {
		return invalid(ReasonTokenBlocked, "token cannot move with the rolled value")
	}
	return Validation{Valid: true}
}
