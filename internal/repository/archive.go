package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrRecordNotFound = errors.New("archive record not found")

// ArchiveRepository keeps a durable log of finished games in SQLite. A draw
// is stored with the result "-".
type ArchiveRepository interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, sessionID, gameTag, result string) error
	ResultByID(ctx context.Context, sessionID string) (string, error)
}

type dbArchive struct {
	conn *sql.DB
}

func NewArchiveRepository(conn *sql.DB) ArchiveRepository {
	return &dbArchive{
		conn: conn,
	}
}

func (that *dbArchive) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS finished_games (
		session_id TEXT PRIMARY KEY,
		game_tag TEXT NOT NULL,
		result TEXT NOT NULL,
		finished_at TIMESTAMP NOT NULL
	)`

	if _, err := that.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *dbArchive) Record(ctx context.Context, sessionID, gameTag, result string) error {
	query := `INSERT OR REPLACE INTO finished_games (session_id, game_tag, result, finished_at) VALUES (?, ?, ?, ?)`

	if _, err := that.conn.ExecContext(ctx, query, sessionID, gameTag, result, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record finished game: %w", err)
	}

	return nil
}

func (that *dbArchive) ResultByID(ctx context.Context, sessionID string) (string, error) {
	query := `SELECT result FROM finished_games WHERE session_id = ?`

	var result string
	err := that.conn.QueryRowContext(ctx, query, sessionID).Scan(&result)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRecordNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to get archive record: %w", err)
	}

	return result, nil
}
