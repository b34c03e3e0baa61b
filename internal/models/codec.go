package models

import (
	"encoding/json"
	"fmt"

	"github.com/ludoverse/ludo/engine"
)

// FieldError reports a wire value outside the known set for its field.
// Corruption here must surface loudly: silently coercing a bad color or move
// type would desynchronize capture and lane logic across clients.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("models: field %q holds unknown value %q", e.Field, e.Value)
}

// EncodeStateDoc serializes the canonical-state envelope.
func EncodeStateDoc(doc *StateDoc) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeStateDoc deserializes and strictly validates a canonical-state
// envelope. Any enum outside the known set is a data-integrity error naming
// the corrupted field.
func DecodeStateDoc(data []byte) (*StateDoc, error) {
	var doc StateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("models: decode state doc: %w", err)
	}
	if doc.State == nil {
		return nil, &FieldError{Field: "state", Value: "null"}
	}
	if err := validateState(doc.State); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validateState(g *engine.GameState) error {
	switch g.Status {
	case engine.StatusInProgress, engine.StatusFinished, engine.StatusAbandoned:
	default:
		return &FieldError{Field: "state.status", Value: string(g.Status)}
	}
	for i := range g.Players {
		p := &g.Players[i]
		if _, err := engine.ParseColor(string(p.Color)); err != nil {
			return &FieldError{Field: fmt.Sprintf("players[%d].color", i), Value: string(p.Color)}
		}
		for _, tok := range p.Tokens {
			if err := tok.Validate(); err != nil {
				return fmt.Errorf("models: players[%d]: %w", i, err)
			}
		}
	}
	for i, m := range g.MoveHistory {
		if _, err := engine.ParseMoveType(string(m.Type)); err != nil {
			return &FieldError{Field: fmt.Sprintf("moveHistory[%d].type", i), Value: string(m.Type)}
		}
	}
	if g.LastMove != nil {
		if _, err := engine.ParseMoveType(string(g.LastMove.Type)); err != nil {
			return &FieldError{Field: "lastMove.type", Value: string(g.LastMove.Type)}
		}
	}
	return nil
}

// EncodeAction serializes one queued intent.
func EncodeAction(a *Action) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeAction deserializes and validates one queued intent.
func DecodeAction(data []byte) (*Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("models: decode action: %w", err)
	}
	if _, err := ParseActionType(string(a.Type)); err != nil {
		return nil, err
	}
	if a.PlayerID == "" {
		return nil, &FieldError{Field: "playerId", Value: ""}
	}
	return &a, nil
}

// EncodePresence serializes one presence record.
func EncodePresence(p PresenceRecord) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePresence deserializes one presence record.
func DecodePresence(data []byte) (PresenceRecord, error) {
	var p PresenceRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return PresenceRecord{}, fmt.Errorf("models: decode presence: %w", err)
	}
	if p.PlayerID == "" {
		return PresenceRecord{}, &FieldError{Field: "playerId", Value: ""}
	}
	return p, nil
}
