package engine

import "fmt"

// Color identifies one of the four fixed seat colors. A player's color is
// fixed for the match and determines its ring start offset and lane geometry.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
)

// SeatOrder is the fixed seating rotation used for turn advancement.
var SeatOrder = [4]Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// ParseColor converts a wire string to a Color. Unknown values are a
// data-integrity fault and fail loudly rather than defaulting, since a
// coerced color would desynchronize capture and lane logic.
func ParseColor(s string) (Color, error) {
	switch Color(s) {
	case ColorRed, ColorBlue, ColorGreen, ColorYellow:
		return Color(s), nil
	}
	return "", fmt.Errorf("engine: unknown player color %q", s)
}

// TokenState describes where a token is in its lifecycle.
type TokenState string

const (
	TokenHome     TokenState = "home"     // in the home yard, position -1
	TokenActive   TokenState = "active"   // on the ring or in the lane, position 0..56
	TokenFinished TokenState = "finished" // arrived at center, position 57
)

// Token positions, relative to the owning color's own start cell.
const (
	PosHome      = -1 // TokenHome
	PosRingMax   = 51 // last ring cell before the lane
	PosLaneStart = 52 // first lane cell
	PosFinished  = 57 // lane cell 5, the center
)

// Token is one of a player's four pieces. Tokens are value types: engine
// transitions never mutate a Token in place, they produce a new one.
type Token struct {
	ID       int        `json:"id"` // 0..3
	State    TokenState `json:"state"`
	Position int        `json:"position"` // PosHome, 0..51 ring-relative, 52..57 lane
}

// Validate enforces the state/position agreement invariant:
// Home ⇔ -1, Finished ⇔ 57, Active ⇔ [0,57).
func (t Token) Validate() error {
	switch t.State {
	case TokenHome:
		if t.Position != PosHome {
			return fmt.Errorf("engine: token %d is home but at position %d", t.ID, t.Position)
		}
	case TokenFinished:
		if t.Position != PosFinished {
			return fmt.Errorf("engine: token %d is finished but at position %d", t.ID, t.Position)
		}
	case TokenActive:
		if t.Position < 0 || t.Position >= PosFinished {
			return fmt.Errorf("engine: token %d is active but at position %d", t.ID, t.Position)
		}
	default:
		return fmt.Errorf("engine: token %d has unknown state %q", t.ID, t.State)
	}
	return nil
}

// InLane reports whether the token is on its color's private final stretch.
func (t Token) InLane() bool {
	return t.State == TokenActive && t.Position > PosRingMax
}

// OnRing reports whether the token occupies a shared ring cell.
func (t Token) OnRing() bool {
	return t.State == TokenActive && t.Position >= 0 && t.Position <= PosRingMax
}

// TokensPerPlayer is fixed by the board.
const TokensPerPlayer = 4

// Player is one seat in the match.
type Player struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Color       Color                  `json:"color"`
	IsBot       bool                   `json:"isBot"`
	Tokens      [TokensPerPlayer]Token `json:"tokens"`
	IsOnline    bool                   `json:"isOnline"`
}

// HasFinished reports whether all four of the player's tokens are finished.
func (p *Player) HasFinished() bool {
	for _, t := range p.Tokens {
		if t.State != TokenFinished {
			return false
		}
	}
	return true
}

// TokensAtHome counts tokens still in the home yard.
func (p *Player) TokensAtHome() int {
	n := 0
	for _, t := range p.Tokens {
		if t.State == TokenHome {
			n++
		}
	}
	return n
}

// MoveType classifies a successful move for the move log.
type MoveType string

const (
	MoveExitHome  MoveType = "exit_home"
	MoveNormal    MoveType = "normal"
	MoveEnterLane MoveType = "enter_lane"
	MoveFinish    MoveType = "finish"
	MoveSkip      MoveType = "skip" // forfeited or force-advanced turn, no token moved
)

// ParseMoveType converts a wire string to a MoveType, failing loudly on
// unknown values.
func ParseMoveType(s string) (MoveType, error) {
	switch MoveType(s) {
	case MoveExitHome, MoveNormal, MoveEnterLane, MoveFinish, MoveSkip:
		return MoveType(s), nil
	}
	return "", fmt.Errorf("engine: unknown move type %q", s)
}

// CapturedToken identifies a token sent back home by a capture.
type CapturedToken struct {
	PlayerID string `json:"playerId"`
	TokenID  int    `json:"tokenId"`
}

// Move is an immutable log entry describing one applied move. Produced once
// per successful transition and appended to the state's history; never
// mutated afterwards.
type Move struct {
	PlayerID      string         `json:"playerId"`
	TokenID       int            `json:"tokenId"` // -1 for MoveSkip
	DiceValue     int            `json:"diceValue"`
	FromPosition  int            `json:"fromPosition"`
	ToPosition    int            `json:"toPosition"`
	Type          MoveType       `json:"type"`
	CapturedToken *CapturedToken `json:"capturedToken,omitempty"`
}
