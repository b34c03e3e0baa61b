package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoverse/ludo/engine"
	"github.com/ludoverse/ludo/engine/agent"
)

func newOfflineFixture(t *testing.T, rolls ...int) *OfflineSession {
	t.Helper()
	s, err := NewOfflineSession("Ada", 1, agent.Normal, nil,
		WithOfflineDice(&scriptRoller{values: rolls}),
		WithThinkDelay(0),
	)
	require.NoError(t, err)
	return s
}

func TestOfflineHumanLeadsOff(t *testing.T) {
	s := newOfflineFixture(t, 6)
	assert.Equal(t, "human", s.State().CurrentTurnPlayerID)
	assert.Len(t, s.State().Players, 2)
	assert.True(t, s.State().Players[1].IsBot)
}

func TestOfflineRollAndMove(t *testing.T) {
	s := newOfflineFixture(t, 6)

	out, err := s.Roll()
	require.NoError(t, err)
	assert.Equal(t, 6, out.Value)
	assert.Len(t, out.Movable, engine.TokensPerPlayer)

	mv, err := s.Move(0)
	require.NoError(t, err)
	assert.Equal(t, engine.MoveExitHome, mv.Move.Type)
	assert.True(t, mv.BonusTurn)
	// Bonus turn: still the human, no bot play happened.
	assert.Equal(t, "human", s.State().CurrentTurnPlayerID)
}

func TestOfflineBotsPlayUntilHumanTurn(t *testing.T) {
	// A constant six makes the bot exit, take two bonus moves, then forfeit
	// on the third six, which hands the turn back.
	s := newOfflineFixture(t, 6, 6, 6, 6)

	_, err := s.Roll()
	require.NoError(t, err)
	_, err = s.Move(0)
	require.NoError(t, err) // bonus, human again
	_, err = s.Roll()
	require.NoError(t, err)
	_, err = s.Move(0)
	require.NoError(t, err)
	_, err = s.Roll() // third six forfeits, bots take over
	require.NoError(t, err)

	assert.Equal(t, "human", s.State().CurrentTurnPlayerID)
	assert.True(t, s.State().InProgress())
	// The bot acted while control was away.
	botMoved := false
	for _, m := range s.State().MoveHistory {
		if m.PlayerID == "bot-1" {
			botMoved = true
			break
		}
	}
	assert.True(t, botMoved)
}

func TestOfflineRejectsWrongTurnMove(t *testing.T) {
	s := newOfflineFixture(t, 6)
	_, err := s.Move(0) // no roll yet
	require.Error(t, err)
	rerr, ok := engine.IsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.ReasonRollFirst, rerr.Reason)
}

func TestOfflinePauseUsedForPacing(t *testing.T) {
	var paused int
	s, err := NewOfflineSession("Ada", 1, agent.Easy, nil,
		WithOfflineDice(&scriptRoller{values: []int{6, 6, 6, 6}}),
		WithThinkDelay(200*time.Millisecond),
		WithPause(func(time.Duration) { paused++ }),
	)
	require.NoError(t, err)

	_, err = s.Roll()
	require.NoError(t, err)
	_, err = s.Move(0)
	require.NoError(t, err)
	_, err = s.Roll()
	require.NoError(t, err)
	_, err = s.Move(0)
	require.NoError(t, err)
	_, err = s.Roll() // forfeits to the bot
	require.NoError(t, err)

	assert.Greater(t, paused, 0)
}
