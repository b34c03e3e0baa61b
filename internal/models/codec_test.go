package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoverse/ludo/engine"
)

func testState(t *testing.T) *engine.GameState {
	t.Helper()
	g, err := engine.NewOnlineGame([]engine.Seat{
		{ID: "p1", DisplayName: "Ada"},
		{ID: "p2", DisplayName: "Grace"},
	}, "p1")
	require.NoError(t, err)
	return g
}

func TestStateDocRoundTrip(t *testing.T) {
	doc := &StateDoc{
		MatchID:     uuid.New(),
		Version:     7,
		State:       testState(t),
		PublishedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := EncodeStateDoc(doc)
	require.NoError(t, err)

	got, err := DecodeStateDoc(data)
	require.NoError(t, err)
	assert.Equal(t, doc.MatchID, got.MatchID)
	assert.Equal(t, doc.Version, got.Version)
	assert.Equal(t, doc.State.CurrentTurnPlayerID, got.State.CurrentTurnPlayerID)
	assert.Len(t, got.State.Players, 2)
}

func TestDecodeStateDocRejectsUnknownColor(t *testing.T) {
	doc := &StateDoc{MatchID: uuid.New(), State: testState(t)}
	doc.State.Players[1].Color = "chartreuse"
	data, err := EncodeStateDoc(doc)
	require.NoError(t, err)

	_, err = DecodeStateDoc(data)
	require.Error(t, err)
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "players[1].color", ferr.Field)
	assert.Equal(t, "chartreuse", ferr.Value)
}

func TestDecodeStateDocRejectsUnknownMoveType(t *testing.T) {
	doc := &StateDoc{MatchID: uuid.New(), State: testState(t)}
	doc.State.MoveHistory = []engine.Move{{PlayerID: "p1", Type: "teleport"}}
	data, err := EncodeStateDoc(doc)
	require.NoError(t, err)

	_, err = DecodeStateDoc(data)
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "moveHistory[0].type", ferr.Field)
}

func TestDecodeStateDocRejectsBrokenToken(t *testing.T) {
	doc := &StateDoc{MatchID: uuid.New(), State: testState(t)}
	// Home token with a ring position violates the state/position invariant.
	doc.State.Players[0].Tokens[2].Position = 14
	data, err := EncodeStateDoc(doc)
	require.NoError(t, err)

	_, err = DecodeStateDoc(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "players[0]")
}

func TestDecodeStateDocRejectsMissingState(t *testing.T) {
	_, err := DecodeStateDoc([]byte(`{"matchId":"` + uuid.NewString() + `","version":1}`))
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "state", ferr.Field)
}

func TestActionRoundTrip(t *testing.T) {
	a := NewAction("p2", ActionMoveToken, 3)
	data, err := EncodeAction(a)
	require.NoError(t, err)

	got, err := DecodeAction(data)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, ActionMoveToken, got.Type)
	assert.Equal(t, 3, got.TokenID)
}

func TestDecodeActionRejectsUnknownType(t *testing.T) {
	_, err := DecodeAction([]byte(`{"id":"` + uuid.NewString() + `","playerId":"p1","type":"undo"}`))
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "type", ferr.Field)
	assert.Equal(t, "undo", ferr.Value)
}

func TestDecodeActionRejectsMissingPlayer(t *testing.T) {
	_, err := DecodeAction([]byte(`{"id":"` + uuid.NewString() + `","playerId":"","type":"roll_dice"}`))
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "playerId", ferr.Field)
}

func TestPresenceRoundTrip(t *testing.T) {
	dc := time.Now().UTC().Truncate(time.Second)
	p := PresenceRecord{PlayerID: "p1", IsOnline: false, LastSeenAt: dc, DisconnectedAt: &dc}
	data, err := EncodePresence(p)
	require.NoError(t, err)

	got, err := DecodePresence(data)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)
	require.NotNil(t, got.DisconnectedAt)
	assert.True(t, got.DisconnectedAt.Equal(dc))
}
