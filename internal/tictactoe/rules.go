package tictactoe

import (
	"fmt"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
)

// GameTag identifies this game type in persistence keys.
const GameTag = "tictactoe"

var winCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Rules is the tic-tac-toe rules capability. All methods are pure: they never
// mutate their input and hold no state between calls.
type Rules struct{}

func (Rules) Initial() entity.Game {
	return entity.Game{
		Turn:   entity.PlayerX,
		Status: entity.StatusInProgress,
	}
}

// Apply validates the move and returns the resulting game. The input game is
// returned unchanged on any error.
func (Rules) Apply(game entity.Game, mark string, cell int) (entity.Game, error) {
	if cell < 0 || cell >= len(game.Board) {
		return game, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.Board[cell] != entity.EmptyCell {
		return game, apperror.ErrCellOccupied
	}

	game.Board[cell] = mark

	switch winner := boardResult(game.Board); winner {
	case entity.PlayerX, entity.PlayerO:
		game.Winner = winner
		game.Status = entity.StatusWon
		game.Turn = ""
	case drawResult:
		game.Status = entity.StatusDraw
		game.Turn = ""
	default:
		game.Turn = toggleMark(mark)
	}

	return game, nil
}

func (Rules) Status(game entity.Game) string {
	return game.Status
}

func (Rules) CurrentTurn(game entity.Game) string {
	return game.Turn
}

func (Rules) ClientView(game entity.Game) entity.ClientState {
	return entity.ClientState{
		Board:  game.Board,
		Turn:   game.Turn,
		Winner: game.Winner,
		Draw:   game.Status == entity.StatusDraw,
	}
}

const drawResult = "-"

func toggleMark(currentMark string) string {
	if currentMark == entity.PlayerX {
		return entity.PlayerO
	}
	return entity.PlayerX
}

// boardResult returns the winning mark, drawResult for a full board with no
// winner, or an empty string while the game is still open.
func boardResult(board [9]string) string {
	for _, combo := range winCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range board {
		if cell == entity.EmptyCell {
			return ""
		}
	}

	return drawResult
}
