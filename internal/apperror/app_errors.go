package apperror

import "errors"

var (
	ErrGameFinished    = errors.New("game is already finished")
	ErrSessionNotReady = errors.New("session is not ready")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrUnknownPlayer   = errors.New("player is not part of this game")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")

	ErrSnapshotNotFound = errors.New("snapshot not found")
)
