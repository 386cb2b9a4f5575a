package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
	"github.com/lunarforge/gamesession-backend/internal/tictactoe"
)

const (
	playerOne = "player-1"
	playerTwo = "player-2"
)

// fakeStore is an in-memory SnapshotStore with switchable failures and a
// gate to hold the startup load open.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]entity.Game

	loadErr  error
	saveErr  error
	loadGate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]entity.Game)}
}

func (that *fakeStore) Load(ctx context.Context, id, gameTag string) (entity.Game, error) {
	if that.loadGate != nil {
		select {
		case <-that.loadGate:
		case <-ctx.Done():
			return entity.Game{}, ctx.Err()
		}
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.loadErr != nil {
		return entity.Game{}, that.loadErr
	}

	game, ok := that.snapshots[gameTag+":"+id]
	if !ok {
		return entity.Game{}, apperror.ErrSnapshotNotFound
	}

	return game, nil
}

func (that *fakeStore) Save(_ context.Context, id, gameTag string, game entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.saveErr != nil {
		return that.saveErr
	}

	that.snapshots[gameTag+":"+id] = game

	return nil
}

func (that *fakeStore) snapshot(id, gameTag string) (entity.Game, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.snapshots[gameTag+":"+id]

	return game, ok
}

func testPlayers() []entity.Player {
	return []entity.Player{
		{ID: playerOne, Mark: entity.PlayerX},
		{ID: playerTwo, Mark: entity.PlayerO},
	}
}

func startSession(t *testing.T, store SnapshotStore) (context.Context, *Session) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sess := New(logger, "game-1", tictactoe.GameTag, testPlayers(), tictactoe.Rules{}, store)
	sess.Start(ctx)

	return ctx, sess
}

func waitActive(t *testing.T, ctx context.Context, sess *Session) {
	t.Helper()

	require.Eventually(t, func() bool {
		_, err := sess.State(ctx)
		return err == nil
	}, time.Second, time.Millisecond, "session never became active")
}

func TestSession_StartsFresh(t *testing.T) {
	// Given: a session with no prior snapshot
	ctx, sess := startSession(t, newFakeStore())
	waitActive(t, ctx, sess)

	// When: the state is read
	state, err := sess.State(ctx)
	require.NoError(t, err)

	// Then: empty board, X to move
	assert.Equal(t, [9]string{"", "", "", "", "", "", "", "", ""}, state.Board)
	assert.Equal(t, entity.PlayerX, state.Turn)
	assert.Empty(t, state.Winner)
	assert.False(t, state.Draw)
}

func TestSession_MakeMove(t *testing.T) {
	t.Run("Accepted move replies with the new state", func(t *testing.T) {
		ctx, sess := startSession(t, newFakeStore())
		waitActive(t, ctx, sess)

		// When: the first player takes cell 0
		state, err := sess.MakeMove(ctx, playerOne, 0)
		require.NoError(t, err)

		// Then: the reply carries the move and the turn change
		assert.Equal(t, entity.PlayerX, state.Board[0])
		assert.Equal(t, entity.PlayerO, state.Turn)
	})

	t.Run("Occupied cell is rejected and state is unchanged", func(t *testing.T) {
		ctx, sess := startSession(t, newFakeStore())
		waitActive(t, ctx, sess)

		_, err := sess.MakeMove(ctx, playerOne, 0)
		require.NoError(t, err)

		// When: the second player plays the same cell
		_, err = sess.MakeMove(ctx, playerTwo, 0)

		// Then: ErrCellOccupied, board as after the first move
		require.ErrorIs(t, err, apperror.ErrCellOccupied)

		state, err := sess.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, state.Board[0])
		assert.Equal(t, entity.PlayerO, state.Turn)
	})

	t.Run("Out of turn is rejected", func(t *testing.T) {
		ctx, sess := startSession(t, newFakeStore())
		waitActive(t, ctx, sess)

		_, err := sess.MakeMove(ctx, playerOne, 0)
		require.NoError(t, err)

		// When: the first player moves again before the second resolves
		_, err = sess.MakeMove(ctx, playerOne, 4)

		// Then: ErrNotYourTurn, board unchanged
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		state, err := sess.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, entity.EmptyCell, state.Board[4])
	})

	t.Run("Unknown player is rejected regardless of turn", func(t *testing.T) {
		ctx, sess := startSession(t, newFakeStore())
		waitActive(t, ctx, sess)

		// When: someone outside the roster submits a move
		_, err := sess.MakeMove(ctx, "intruder", 0)

		// Then: ErrUnknownPlayer, board unchanged
		require.ErrorIs(t, err, apperror.ErrUnknownPlayer)

		state, err := sess.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, entity.EmptyCell, state.Board[0])
	})
}

func TestSession_WinningLine(t *testing.T) {
	ctx, sess := startSession(t, newFakeStore())
	waitActive(t, ctx, sess)

	// Given: X takes the top row while O plays the middle row
	moves := []struct {
		playerID string
		cell     int
	}{
		{playerOne, 0},
		{playerTwo, 3},
		{playerOne, 1},
		{playerTwo, 4},
	}
	for _, move := range moves {
		_, err := sess.MakeMove(ctx, move.playerID, move.cell)
		require.NoError(t, err)
	}

	// When: X completes the line
	state, err := sess.MakeMove(ctx, playerOne, 2)
	require.NoError(t, err)

	// Then: X wins
	assert.Equal(t, entity.PlayerX, state.Winner)
	assert.Empty(t, state.Turn)

	// Then: any further move by either player is rejected
	_, err = sess.MakeMove(ctx, playerTwo, 5)
	require.ErrorIs(t, err, apperror.ErrGameFinished)
	_, err = sess.MakeMove(ctx, playerOne, 5)
	require.ErrorIs(t, err, apperror.ErrGameFinished)

	// Then: the final board is still readable
	state, err = sess.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Winner)
	assert.Equal(t, entity.PlayerX, state.Board[2])
}

func TestSession_ResumeFromSnapshot(t *testing.T) {
	// Given: a persisted game with O to move
	store := newFakeStore()
	store.snapshots[tictactoe.GameTag+":game-1"] = entity.Game{
		Board:  [9]string{entity.PlayerX, "", "", "", "", "", "", "", ""},
		Turn:   entity.PlayerO,
		Status: entity.StatusInProgress,
	}

	ctx, sess := startSession(t, store)
	waitActive(t, ctx, sess)

	// When: X tries to move first after the restart
	_, err := sess.MakeMove(ctx, playerOne, 4)

	// Then: rejected, it is O's turn
	require.ErrorIs(t, err, apperror.ErrNotYourTurn)

	// When: O moves
	state, err := sess.MakeMove(ctx, playerTwo, 4)

	// Then: accepted on top of the recovered board
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Board[0])
	assert.Equal(t, entity.PlayerO, state.Board[4])
}

func TestSession_LoadFailureStartsFresh(t *testing.T) {
	// Given: a store whose load always fails
	store := newFakeStore()
	store.loadErr = errors.New("connection refused")

	ctx, sess := startSession(t, store)
	waitActive(t, ctx, sess)

	// Then: the session is active with a fresh game
	state, err := sess.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Turn)
}

func TestSession_SaveFailureDoesNotAffectReplies(t *testing.T) {
	// Given: a store whose saves always fail
	store := newFakeStore()
	store.saveErr = errors.New("connection refused")

	ctx, sess := startSession(t, store)
	waitActive(t, ctx, sess)

	// When: a valid move is made
	state, err := sess.MakeMove(ctx, playerOne, 0)

	// Then: the reply succeeds and reflects the move
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Board[0])

	// Then: the in-memory state stays ahead of the broken store
	state, err = sess.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Board[0])
}

func TestSession_NotReadyWhileLoading(t *testing.T) {
	// Given: a store that holds the startup load open
	store := newFakeStore()
	store.loadGate = make(chan struct{})

	ctx, sess := startSession(t, store)

	// When: commands arrive before the load completes
	_, err := sess.MakeMove(ctx, playerOne, 0)
	require.ErrorIs(t, err, apperror.ErrSessionNotReady)

	_, err = sess.State(ctx)
	require.ErrorIs(t, err, apperror.ErrSessionNotReady)

	// When: the load completes
	close(store.loadGate)
	waitActive(t, ctx, sess)

	// Then: the same command now succeeds
	state, err := sess.MakeMove(ctx, playerOne, 0)
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerX, state.Board[0])
}

func TestSession_PersistsSnapshotsPerMove(t *testing.T) {
	store := newFakeStore()
	ctx, sess := startSession(t, store)
	waitActive(t, ctx, sess)

	// When: two moves are accepted
	_, err := sess.MakeMove(ctx, playerOne, 0)
	require.NoError(t, err)
	_, err = sess.MakeMove(ctx, playerTwo, 4)
	require.NoError(t, err)

	// Then: the store eventually holds the latest accepted state
	require.Eventually(t, func() bool {
		game, ok := store.snapshot("game-1", tictactoe.GameTag)
		return ok && game.Board[0] == entity.PlayerX && game.Board[4] == entity.PlayerO
	}, time.Second, time.Millisecond)
}

func TestSession_SerializesConcurrentMoves(t *testing.T) {
	ctx, sess := startSession(t, newFakeStore())
	waitActive(t, ctx, sess)

	// When: both players hammer the session concurrently
	var wg sync.WaitGroup
	for _, playerID := range []string{playerOne, playerTwo} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			for cell := 0; cell < 9; cell++ {
				_, _ = sess.MakeMove(ctx, playerID, cell)
			}
		}(playerID)
	}
	wg.Wait()

	// Then: the resulting board is legal: mark counts differ by at most one
	state, err := sess.State(ctx)
	require.NoError(t, err)

	var xCount, oCount int
	for _, cell := range state.Board {
		switch cell {
		case entity.PlayerX:
			xCount++
		case entity.PlayerO:
			oCount++
		}
	}

	assert.LessOrEqual(t, xCount-oCount, 1)
	assert.GreaterOrEqual(t, xCount-oCount, 0)
}
