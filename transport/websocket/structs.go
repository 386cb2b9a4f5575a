package websocket

import (
	"encoding/json"

	"github.com/lunarforge/gamesession-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreatePayload struct {
	SessionID    string `json:"session_id,omitempty"`
	FirstPlayer  string `json:"first_player"`
	SecondPlayer string `json:"second_player"`
}

type TurnPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Cell      int    `json:"cell"`
}

type StatePayload struct {
	SessionID string `json:"session_id"`
}

type ResponsePayload struct {
	SessionID string              `json:"session_id,omitempty"`
	Game      *entity.ClientState `json:"game,omitempty"`
	Error     string              `json:"error,omitempty"`
}
