package engine

// Observer receives notable transitions as they are applied. It replaces any
// notion of a process-wide debug log: the engine owns no global state, and a
// caller that wants a feed injects a sink here. All callbacks run
// synchronously on the transition path and must not mutate the state they
// are handed.
type Observer interface {
	OnMove(g *GameState, m Move)
	OnCapture(g *GameState, m Move)
	OnValidationFailure(g *GameState, playerID string, rerr *RuleError)
}

// NopObserver is the default sink; it discards everything.
type NopObserver struct{}

func (NopObserver) OnMove(*GameState, Move)                            {}
func (NopObserver) OnCapture(*GameState, Move)                         {}
func (NopObserver) OnValidationFailure(*GameState, string, *RuleError) {}
