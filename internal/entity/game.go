package entity

const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusDraw       = "draw"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""
)

// Game is a snapshot of a game at a point in time. It is passed and returned
// by value: every accepted move produces a new Game, the previous one is never
// mutated.
type Game struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"player_turn,omitempty"`
	Winner string    `json:"winner,omitempty"`
	Status string    `json:"status"`
}

func (that Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that Game) IsFinished() bool {
	return that.Status == StatusWon || that.Status == StatusDraw
}

// ClientState is the projection of a Game sent to clients.
type ClientState struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"player_turn,omitempty"`
	Winner string    `json:"winner,omitempty"`
	Draw   bool      `json:"draw,omitempty"`
}
