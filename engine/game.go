// Package engine implements the Ludo board-race rules as pure state
// transitions.
//
// The package is dependency-free and side-effect-free: every
// transition consumes one GameState and produces the next, board geometry is
// static, and anything observational (logging, event feeds) goes through the
// Observer interface. This makes the same engine usable by the offline turn
// loop and by the online host without either trusting the other's plumbing.
package engine

import (
	"fmt"
	"time"
)

// GameStatus describes the match lifecycle.
type GameStatus string

const (
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
	StatusAbandoned  GameStatus = "abandoned"
)

// DiceNone marks the absence of a rolled value.
const DiceNone = 0

// Match roster bounds.
const (
	MinPlayers = 2
	MaxPlayers = 4
)

// GameState is one complete match snapshot. It is mutated exclusively
// through the transition functions in this package, each of which clones the
// state and returns the next snapshot.
type GameState struct {
	Players             []Player   `json:"players"`
	CurrentTurnPlayerID string     `json:"currentTurnPlayerId"`
	DiceValue           int        `json:"diceValue"` // DiceNone when no roll is pending selection
	ConsecutiveSixCount int        `json:"consecutiveSixCount"`
	MustSelectToken     bool       `json:"mustSelectToken"`
	CanRollDice         bool       `json:"canRollDice"`
	Status              GameStatus `json:"status"`
	WinnerID            string     `json:"winnerId,omitempty"`
	FinishOrder         []string   `json:"finishOrder,omitempty"`
	LastMove            *Move      `json:"lastMove,omitempty"`
	MoveHistory         []Move     `json:"moveHistory,omitempty"`
	TurnStartedAt       time.Time  `json:"turnStartedAt"`
}

// Seat describes one roster entry for match setup.
type Seat struct {
	ID          string
	DisplayName string
	IsBot       bool
}

// botNames fills the remaining seats of an offline match.
var botNames = [3]string{"Milo", "Pixel", "Juno"}

// NewOfflineGame builds a match with one human seat and botCount (1..3) bot
// seats. The human always takes the first seat color and the opening turn.
func NewOfflineGame(humanName string, botCount int) (*GameState, error) {
	if botCount < 1 || botCount > 3 {
		return nil, fmt.Errorf("engine: bot count %d out of range 1..3", botCount)
	}
	seats := []Seat{{ID: "human", DisplayName: humanName}}
	for i := 0; i < botCount; i++ {
		seats = append(seats, Seat{
			ID:          fmt.Sprintf("bot-%d", i+1),
			DisplayName: botNames[i],
			IsBot:       true,
		})
	}
	return NewOnlineGame(seats, "human")
}

// NewOnlineGame builds a match from an explicit roster of 2..4 seats. Colors
// are assigned in fixed seat order; startingPlayerID takes the opening turn.
func NewOnlineGame(seats []Seat, startingPlayerID string) (*GameState, error) {
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, fmt.Errorf("engine: roster size %d out of range %d..%d", len(seats), MinPlayers, MaxPlayers)
	}
	players := make([]Player, len(seats))
	seen := make(map[string]bool, len(seats))
	startingFound := false
	for i, s := range seats {
		if s.ID == "" {
			return nil, fmt.Errorf("engine: seat %d has empty player id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("engine: duplicate player id %q in roster", s.ID)
		}
		seen[s.ID] = true
		if s.ID == startingPlayerID {
			startingFound = true
		}
		p := Player{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			Color:       SeatOrder[i],
			IsBot:       s.IsBot,
			IsOnline:    true,
		}
		for tid := 0; tid < TokensPerPlayer; tid++ {
			p.Tokens[tid] = Token{ID: tid, State: TokenHome, Position: PosHome}
		}
		players[i] = p
	}
	if !startingFound {
		return nil, fmt.Errorf("engine: starting player %q not in roster", startingPlayerID)
	}
	return &GameState{
		Players:             players,
		CurrentTurnPlayerID: startingPlayerID,
		DiceValue:           DiceNone,
		CanRollDice:         true,
		Status:              StatusInProgress,
		TurnStartedAt:       time.Now(),
	}, nil
}

// Rematch builds a fresh match from the finished state's roster, keeping
// seats and colors. The previous winner leads off; if the match had no
// winner the first seat does.
func Rematch(prev *GameState) (*GameState, error) {
	seats := make([]Seat, len(prev.Players))
	for i, p := range prev.Players {
		seats[i] = Seat{ID: p.ID, DisplayName: p.DisplayName, IsBot: p.IsBot}
	}
	starter := prev.WinnerID
	if starter == "" {
		starter = seats[0].ID
	}
	return NewOnlineGame(seats, starter)
}

// Clone returns a deep copy. Transitions clone before mutating so that every
// published snapshot stays immutable to its readers.
func (g *GameState) Clone() *GameState {
	next := *g
	next.Players = make([]Player, len(g.Players))
	copy(next.Players, g.Players) // Tokens is an array, so this copies pieces too
	next.FinishOrder = append([]string(nil), g.FinishOrder...)
	next.MoveHistory = append([]Move(nil), g.MoveHistory...)
	if g.LastMove != nil {
		m := *g.LastMove
		next.LastMove = &m
	}
	return &next
}

// PlayerByID returns the player with the given id, or nil.
func (g *GameState) PlayerByID(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil after the match
// has ended with no current seat.
func (g *GameState) CurrentPlayer() *Player {
	return g.PlayerByID(g.CurrentTurnPlayerID)
}

// playerIndex returns the seat index of the given player id, or -1.
func (g *GameState) playerIndex(id string) int {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// InProgress reports whether the match is still being played.
func (g *GameState) InProgress() bool { return g.Status == StatusInProgress }

// ActiveSeats counts players that have not finished all four tokens.
func (g *GameState) ActiveSeats() int {
	n := 0
	for i := range g.Players {
		if !g.Players[i].HasFinished() {
			n++
		}
	}
	return n
}

// Validate checks the cross-field state invariants: flag exclusivity while
// in progress, a live current player, and per-token agreement.
func (g *GameState) Validate() error {
	if g.Status == StatusInProgress {
		if g.CanRollDice == g.MustSelectToken {
			return fmt.Errorf("engine: canRollDice=%v and mustSelectToken=%v must differ while in progress", g.CanRollDice, g.MustSelectToken)
		}
		cur := g.CurrentPlayer()
		if cur == nil {
			return fmt.Errorf("engine: current turn player %q not in roster", g.CurrentTurnPlayerID)
		}
		if cur.HasFinished() {
			return fmt.Errorf("engine: current turn player %q has already finished", g.CurrentTurnPlayerID)
		}
	}
	if g.ConsecutiveSixCount < 0 || g.ConsecutiveSixCount > 2 {
		return fmt.Errorf("engine: consecutiveSixCount = %d, want 0..2", g.ConsecutiveSixCount)
	}
	for i := range g.Players {
		for _, t := range g.Players[i].Tokens {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("engine: player %q: %w", g.Players[i].ID, err)
			}
		}
	}
	return nil
}
