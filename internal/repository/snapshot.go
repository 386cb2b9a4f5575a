package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
)

// SnapshotRepository stores game snapshots in Redis as JSON, keyed by game
// tag and session id. It is safe for concurrent use; overlapping saves for
// the same session simply overwrite each other.
type SnapshotRepository interface {
	Load(ctx context.Context, id, gameTag string) (entity.Game, error)
	Save(ctx context.Context, id, gameTag string, game entity.Game) error
	Delete(ctx context.Context, id, gameTag string) error
}

type dbSnapshot struct {
	client *redis.Client
}

func NewSnapshotRepository(client *redis.Client) SnapshotRepository {
	return &dbSnapshot{
		client: client,
	}
}

func (that *dbSnapshot) Load(ctx context.Context, id, gameTag string) (entity.Game, error) {
	response, err := that.client.Get(ctx, snapshotKey(id, gameTag)).Result()

	if errors.Is(err, redis.Nil) {
		return entity.Game{}, apperror.ErrSnapshotNotFound
	}

	if err != nil {
		return entity.Game{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return entity.Game{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return game, nil
}

func (that *dbSnapshot) Save(ctx context.Context, id, gameTag string, game entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	if err = that.client.Set(ctx, snapshotKey(id, gameTag), gameJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (that *dbSnapshot) Delete(ctx context.Context, id, gameTag string) error {
	if err := that.client.Del(ctx, snapshotKey(id, gameTag)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return nil
}

func snapshotKey(id, gameTag string) string {
	return "snapshot:" + gameTag + ":" + id
}
