package streaming

import (
	"encoding/json"
	"fmt"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartBattle    = "start_battle"
	TypeEndBattle      = "end_battle"
	TypeAddCombatant   = "add_combatant"
	TypeStackState     = "stack_state"
	TypeFireEvent      = "fire_event"
	TypeMissileEvent   = "missile_event"
	TypeDestroyedEvent = "destroyed_event"
	TypeRetreatEvent   = "retreat_event"

	TypeAck = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Unmarshal decodes an envelope and, when v is non-nil, its payload.
func Unmarshal(data []byte, v any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if v != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return env, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return env, nil
}

// Ack builds the acknowledgement a server sends for msgType.
func Ack(msgType string) []byte {
	data, _ := json.Marshal(AckMessage{Type: TypeAck, For: msgType})
	return data
}
