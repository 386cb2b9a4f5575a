package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
)

// ArchiveStore records finished games. Like snapshot saves, archive writes
// are best-effort and never surface to the client.
type ArchiveStore interface {
	Record(ctx context.Context, sessionID, gameTag, result string) error
}

// Manager owns the live sessions of one game type. Sessions run until the
// context given to NewManager is canceled.
type Manager struct {
	ctx    context.Context
	logger *slog.Logger

	gameTag string
	rules   Rules
	store   SnapshotStore
	archive ArchiveStore

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(ctx context.Context, logger *slog.Logger, gameTag string, rules Rules, store SnapshotStore, archive ArchiveStore) *Manager {
	return &Manager{
		ctx:    ctx,
		logger: logger.With("component", "session-manager"),

		gameTag: gameTag,
		rules:   rules,
		store:   store,
		archive: archive,

		sessions: make(map[string]*Session),
	}
}

// Create starts a session for the two players, first player moves first. An
// empty id gets a generated one; passing the id of a previously persisted
// session resumes it from its snapshot.
func (that *Manager) Create(id, firstPlayerID, secondPlayerID string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	players := []entity.Player{
		{ID: firstPlayerID, Mark: entity.PlayerX},
		{ID: secondPlayerID, Mark: entity.PlayerO},
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionExists, id)
	}

	sess := New(that.logger, id, that.gameTag, players, that.rules, that.store)
	sess.Start(that.ctx)

	that.sessions[id] = sess

	that.logger.Info("session created", "session_id", id)

	return sess, nil
}

func (that *Manager) Get(id string) (*Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	return sess, nil
}

// MakeMove routes a move to the session and archives the game once it
// reaches a terminal state.
func (that *Manager) MakeMove(ctx context.Context, sessionID, playerID string, cell int) (entity.ClientState, error) {
	sess, err := that.Get(sessionID)
	if err != nil {
		return entity.ClientState{}, err
	}

	state, err := sess.MakeMove(ctx, playerID, cell)
	if err != nil {
		return state, err
	}

	if state.Winner != "" || state.Draw {
		go that.archiveGame(sessionID, state)
	}

	return state, nil
}

func (that *Manager) State(ctx context.Context, sessionID string) (entity.ClientState, error) {
	sess, err := that.Get(sessionID)
	if err != nil {
		return entity.ClientState{}, err
	}

	return sess.State(ctx)
}

func (that *Manager) archiveGame(sessionID string, state entity.ClientState) {
	log := that.logger.With("method", "archiveGame", "session_id", sessionID)

	result := state.Winner
	if state.Draw {
		result = "-"
	}

	if err := that.archive.Record(that.ctx, sessionID, that.gameTag, result); err != nil {
		log.Error("failed to archive finished game", "error", err)
		return
	}

	log.Info("game archived", "result", result)
}
