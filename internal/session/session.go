package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
)

const mailboxSize = 32

// Rules is the game-specific capability a session is parameterized with.
// Implementations must be pure: no call may mutate its input game or keep
// state between calls.
type Rules interface {
	Initial() entity.Game
	Apply(game entity.Game, mark string, cell int) (entity.Game, error)
	Status(game entity.Game) string
	CurrentTurn(game entity.Game) string
	ClientView(game entity.Game) entity.ClientState
}

// SnapshotStore persists game snapshots keyed by session id and game tag.
// Load returns apperror.ErrSnapshotNotFound when no snapshot exists. The
// store must tolerate overlapping Save calls for the same session.
type SnapshotStore interface {
	Load(ctx context.Context, id, gameTag string) (entity.Game, error)
	Save(ctx context.Context, id, gameTag string, game entity.Game) error
}

// Session serializes all access to one game. A single goroutine drains the
// mailbox, so the game is mutated without locks; load and save run in their
// own goroutines and report back through the same mailbox.
type Session struct {
	logger *slog.Logger

	id      string
	gameTag string
	players []entity.Player

	rules Rules
	store SnapshotStore

	mailbox chan message

	// Owned by the run loop. Never touched from any other goroutine.
	game    entity.Game
	loading bool
}

func New(logger *slog.Logger, id, gameTag string, players []entity.Player, rules Rules, store SnapshotStore) *Session {
	return &Session{
		logger: logger.With("component", "session", "session_id", id),

		id:      id,
		gameTag: gameTag,
		players: players,

		rules: rules,
		store: store,

		mailbox: make(chan message, mailboxSize),
		loading: true,
	}
}

func (that *Session) ID() string {
	return that.id
}

// Start launches the session. It returns immediately; the session keeps
// running until ctx is canceled. Commands sent before the startup load
// completes are answered with apperror.ErrSessionNotReady.
func (that *Session) Start(ctx context.Context) {
	go that.run(ctx)
	go that.loadSnapshot(ctx)
}

// MakeMove submits a move for the given player and waits for the session's
// reply. The reply carries the state after the move; it is never delayed by
// snapshot persistence.
func (that *Session) MakeMove(ctx context.Context, playerID string, cell int) (entity.ClientState, error) {
	return that.command(ctx, func(reply chan commandReply) message {
		return makeMoveMsg{playerID: playerID, cell: cell, reply: reply}
	})
}

// State returns the current client view of the game.
func (that *Session) State(ctx context.Context) (entity.ClientState, error) {
	return that.command(ctx, func(reply chan commandReply) message {
		return getStateMsg{reply: reply}
	})
}

func (that *Session) command(ctx context.Context, build func(chan commandReply) message) (entity.ClientState, error) {
	reply := make(chan commandReply, 1)

	if err := that.enqueue(ctx, build(reply)); err != nil {
		return entity.ClientState{}, err
	}

	select {
	case res := <-reply:
		return res.state, res.err
	case <-ctx.Done():
		return entity.ClientState{}, fmt.Errorf("session %s: %w", that.id, ctx.Err())
	}
}

func (that *Session) enqueue(ctx context.Context, msg message) error {
	select {
	case that.mailbox <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session %s: %w", that.id, ctx.Err())
	}
}

// run is the session's single thread of execution. Every read or write of
// that.game happens here, one message at a time, in arrival order.
func (that *Session) run(ctx context.Context) {
	for {
		select {
		case msg := <-that.mailbox:
			that.handle(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (that *Session) handle(ctx context.Context, msg message) {
	switch m := msg.(type) {
	case makeMoveMsg:
		that.handleMakeMove(ctx, m)
	case getStateMsg:
		that.handleGetState(m)
	case snapshotLoadedMsg:
		that.handleLoaded(m)
	case snapshotSavedMsg:
		if m.err != nil {
			that.logger.Error("failed to save snapshot", "error", m.err)
		}
	default:
		that.logger.Warn("dropping unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

func (that *Session) handleMakeMove(ctx context.Context, msg makeMoveMsg) {
	if that.loading {
		msg.reply <- commandReply{err: apperror.ErrSessionNotReady}
		return
	}

	if that.rules.Status(that.game) != entity.StatusInProgress {
		msg.reply <- commandReply{state: that.rules.ClientView(that.game), err: apperror.ErrGameFinished}
		return
	}

	mark, ok := that.markOf(msg.playerID)
	if !ok {
		msg.reply <- commandReply{err: apperror.ErrUnknownPlayer}
		return
	}

	if that.rules.CurrentTurn(that.game) != mark {
		msg.reply <- commandReply{err: apperror.ErrNotYourTurn}
		return
	}

	next, err := that.rules.Apply(that.game, mark, msg.cell)
	if err != nil {
		msg.reply <- commandReply{err: fmt.Errorf("failed to make turn: %w", err)}
		return
	}

	// The new game must be in place before the save is issued: the next
	// message in the mailbox already sees it, whether or not the save ever
	// lands.
	that.game = next

	go that.saveSnapshot(ctx, next)

	msg.reply <- commandReply{state: that.rules.ClientView(next)}
}

func (that *Session) handleGetState(msg getStateMsg) {
	if that.loading {
		msg.reply <- commandReply{err: apperror.ErrSessionNotReady}
		return
	}

	msg.reply <- commandReply{state: that.rules.ClientView(that.game)}
}

func (that *Session) handleLoaded(msg snapshotLoadedMsg) {
	if !that.loading {
		that.logger.Warn("dropping duplicate load completion")
		return
	}

	that.loading = false

	if msg.found {
		that.game = msg.game
		that.logger.Info("session resumed from snapshot", "status", that.rules.Status(that.game))
		return
	}

	that.game = that.rules.Initial()
	that.logger.Info("session started with a fresh game")
}

// loadSnapshot runs outside the run loop and reports back through the
// mailbox. A failed load is not fatal: the session starts fresh.
func (that *Session) loadSnapshot(ctx context.Context) {
	game, err := that.store.Load(ctx, that.id, that.gameTag)
	if err != nil {
		if !errors.Is(err, apperror.ErrSnapshotNotFound) {
			that.logger.Error("failed to load snapshot, starting fresh", "error", err)
		}

		_ = that.enqueue(ctx, snapshotLoadedMsg{})

		return
	}

	_ = that.enqueue(ctx, snapshotLoadedMsg{game: game, found: true})
}

// saveSnapshot runs outside the run loop. Saves are fire-and-forget: failures
// only surface as a log line, and overlapping saves for the same session are
// allowed.
func (that *Session) saveSnapshot(ctx context.Context, game entity.Game) {
	err := that.store.Save(ctx, that.id, that.gameTag, game)

	_ = that.enqueue(ctx, snapshotSavedMsg{err: err})
}

func (that *Session) markOf(playerID string) (string, bool) {
	for _, player := range that.players {
		if player.ID == playerID {
			return player.Mark, true
		}
	}

	return "", false
}
