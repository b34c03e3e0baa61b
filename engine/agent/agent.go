// Package agent implements the heuristic bot that picks a token to move for
// a given match snapshot and difficulty tier.
//
// The agent is a pure read of the engine state: it never applies a
// transition itself, it only chooses which one the owning turn loop should
// apply.
package agent

import (
	"math/rand/v2"

	"github.com/ludoverse/ludo/engine"
)

// Difficulty selects the bot tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// Scorer rates one candidate token for the current player. Pluggable so
// additional tiers or alternate heuristics can be added without touching the
// engine or the chooser.
type Scorer interface {
	ScoreToken(g *engine.GameState, tokenID int) float64
}

// jitterSpan bounds the random score noise that keeps Normal/Hard play from
// being fully deterministic and exploitable.
const jitterSpan = 2.0

// ChooseToken picks one of the movable token ids for the current player.
// Easy picks uniformly at random; Normal and Hard score every candidate and
// take the best, breaking ties by declaration order. movable must be
// non-empty and come from the engine's legal-move computation.
func ChooseToken(g *engine.GameState, movable []int, diff Difficulty, rng *rand.Rand) int {
	if len(movable) == 1 {
		return movable[0]
	}
	if diff == Easy {
		return movable[rng.IntN(len(movable))]
	}

	scorer := NewHeuristicScorer(diff)
	best := movable[0]
	bestScore := scorer.ScoreToken(g, movable[0]) + rng.Float64()*jitterSpan
	for _, id := range movable[1:] {
		s := scorer.ScoreToken(g, id) + rng.Float64()*jitterSpan
		if s > bestScore {
			best, bestScore = id, s
		}
	}
	return best
}

// Heuristic weights, hand-tuned. Hard is the only tier that values captures,
// and it values them more the further the victim had progressed.
const (
	weightExitHomeBase    = 12.0
	weightExitHomePerTok  = 4.0 // per token still at home
	weightFinish          = 60.0
	weightEnterLane       = 30.0
	weightCaptureBase     = 40.0
	weightCaptureProgress = 0.5 // per relative cell of victim progress
	weightSafeLanding     = 15.0
	weightEscapeThreat    = 20.0
	weightProgress        = 0.5 // per relative cell of forward motion
	penaltyLeaveSafe      = 8.0
	penaltyCrowdFinish    = 6.0 // advancing a lane token short of the finish
)

// HeuristicScorer is the weighted-sum Scorer behind Normal and Hard.
type HeuristicScorer struct {
	diff Difficulty
}

// NewHeuristicScorer builds the scorer for the given tier.
func NewHeuristicScorer(diff Difficulty) *HeuristicScorer {
	return &HeuristicScorer{diff: diff}
}

// ScoreToken rates moving the given token of the current player by the
// pending dice value.
func (h *HeuristicScorer) ScoreToken(g *engine.GameState, tokenID int) float64 {
	p := g.CurrentPlayer()
	tok := p.Tokens[tokenID]
	dice := g.DiceValue
	score := 0.0

	if tok.State == engine.TokenHome {
		score += weightExitHomeBase + weightExitHomePerTok*float64(p.TokensAtHome())
		// Spawning lands on the own start cell, which is safe by geometry.
		score += weightSafeLanding
		return score
	}

	newPos := tok.Position + dice
	switch {
	case newPos == engine.PosFinished:
		score += weightFinish
	case newPos > engine.PosRingMax:
		if tok.Position <= engine.PosRingMax {
			score += weightEnterLane
		} else {
			// Shuffling inside the lane without finishing rarely helps.
			score -= penaltyCrowdFinish
		}
	}

	score += weightProgress * float64(newPos-tok.Position)

	if newPos <= engine.PosRingMax {
		destAbs := engine.ToAbsolute(newPos, p.Color)
		if engine.IsSafeCell(destAbs) {
			score += weightSafeLanding
		}
		if h.diff == Hard {
			if victimProgress, ok := captureAt(g, p, destAbs); ok {
				score += weightCaptureBase + weightCaptureProgress*float64(victimProgress)
			}
		}
		if threatened(g, p, engine.ToAbsolute(tok.Position, p.Color)) && !threatened(g, p, destAbs) {
			score += weightEscapeThreat
		}
	}

	if tok.OnRing() && engine.IsSafeCell(engine.ToAbsolute(tok.Position, p.Color)) {
		score -= penaltyLeaveSafe
	}

	return score
}

// captureAt reports whether an opposing active ring token sits on the given
// absolute cell, and how far it had progressed in its own frame.
func captureAt(g *engine.GameState, mover *engine.Player, abs int) (progress int, ok bool) {
	if engine.IsSafeCell(abs) {
		return 0, false
	}
	for i := range g.Players {
		opp := &g.Players[i]
		if opp.ID == mover.ID {
			continue
		}
		for _, t := range opp.Tokens {
			if t.OnRing() && engine.ToAbsolute(t.Position, opp.Color) == abs {
				return t.Position, true
			}
		}
	}
	return 0, false
}

// threatened reports whether any opposing active token could land on the
// given absolute ring cell with a single roll of 1..6. Safe cells are never
// threatened.
func threatened(g *engine.GameState, mover *engine.Player, abs int) bool {
	if engine.IsSafeCell(abs) {
		return false
	}
	for i := range g.Players {
		opp := &g.Players[i]
		if opp.ID == mover.ID {
			continue
		}
		for _, t := range opp.Tokens {
			if !t.OnRing() {
				continue
			}
			for d := 1; d <= 6; d++ {
				if t.Position+d > engine.PosRingMax {
					break // would enter its lane, no longer a ring threat
				}
				if engine.ToAbsolute(t.Position+d, opp.Color) == abs {
					return true
				}
			}
		}
	}
	return false
}
