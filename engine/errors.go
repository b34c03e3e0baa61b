package engine

import "fmt"

// RuleReason is a machine-readable code for a rejected transition. Illegal
// moves are expected and frequent; they are reported as values, never as
// panics, so the turn loop is undisturbed.
type RuleReason string

const (
	ReasonMatchOver     RuleReason = "match_over"
	ReasonNotYourTurn   RuleReason = "not_your_turn"
	ReasonRollFirst     RuleReason = "roll_first"     // selected a token before rolling
	ReasonAlreadyRolled RuleReason = "already_rolled" // rolled twice without selecting
	ReasonUnknownPlayer RuleReason = "unknown_player"
	ReasonUnknownToken  RuleReason = "unknown_token"
	ReasonTokenBlocked  RuleReason = "token_blocked" // the token cannot legally move
	ReasonBadDiceValue  RuleReason = "bad_dice_value"
)

// RuleError is the structured rejection for an illegal transition.
type RuleError struct {
	Reason RuleReason
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func ruleErr(reason RuleReason, format string, args ...any) *RuleError {
	return &RuleError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsRuleError reports whether err is a rule rejection and returns it.
func IsRuleError(err error) (*RuleError, bool) {
	re, ok := err.(*RuleError)
	return re, ok
}
