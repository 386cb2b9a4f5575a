package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
)

// handleCreateSession - creates (or resumes) a session for two players.
func (that *Server) handleCreateSession(_ context.Context, conn *websocket.Conn, message *Message) error {
	var payload CreatePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.FirstPlayer == "" || payload.SecondPlayer == "" {
		return that.sendError(conn, message.Action, "both players are required")
	}

	sess, err := that.manager.Create(payload.SessionID, payload.FirstPlayer, payload.SecondPlayer)
	if err != nil {
		return that.sendError(conn, message.Action, err.Error())
	}

	return that.sendMessage(conn, message.Action, ResponsePayload{SessionID: sess.ID()})
}

// handleGameTurn - submits a move and replies with the resulting state. The
// reply carries the final board alongside the error when the game is already
// over.
func (that *Server) handleGameTurn(ctx context.Context, conn *websocket.Conn, message *Message) error {
	var payload TurnPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	state, err := that.manager.MakeMove(ctx, payload.SessionID, payload.PlayerID, payload.Cell)
	if errors.Is(err, apperror.ErrGameFinished) {
		return that.sendMessage(conn, message.Action, ResponsePayload{
			SessionID: payload.SessionID,
			Game:      &state,
			Error:     err.Error(),
		})
	}

	if err != nil {
		return that.sendError(conn, message.Action, err.Error())
	}

	return that.sendMessage(conn, message.Action, ResponsePayload{
		SessionID: payload.SessionID,
		Game:      &state,
	})
}

// handleGameState - replies with the current state of the session.
func (that *Server) handleGameState(ctx context.Context, conn *websocket.Conn, message *Message) error {
	var payload StatePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	state, err := that.manager.State(ctx, payload.SessionID)
	if err != nil {
		return that.sendError(conn, message.Action, err.Error())
	}

	return that.sendMessage(conn, message.Action, ResponsePayload{
		SessionID: payload.SessionID,
		Game:      &state,
	})
}
