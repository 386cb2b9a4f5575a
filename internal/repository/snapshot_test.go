package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarforge/gamesession-backend/internal/apperror"
	"github.com/lunarforge/gamesession-backend/internal/entity"
	"github.com/lunarforge/gamesession-backend/testing/suite"
)

const gameTag = "tictactoe"

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	t.Run("Round trip preserves the game", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// Given: a mid-game snapshot with O to move
		game := entity.Game{
			Board:  [9]string{entity.PlayerX, "", "", "", "", "", "", "", ""},
			Turn:   entity.PlayerO,
			Status: entity.StatusInProgress,
		}

		// When: the snapshot is saved and loaded back
		err := snapshotRepo.Save(ctx, "123", gameTag, game)
		require.NoError(t, err)

		loaded, err := snapshotRepo.Load(ctx, "123", gameTag)

		// Then: board, turn and status survive the round trip
		require.NoError(t, err)
		require.Equal(t, game, loaded)
	})

	t.Run("Load without a snapshot", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// When: Load is called for an id that was never saved
		_, err := snapshotRepo.Load(ctx, "9999999", gameTag)

		// Then: ErrSnapshotNotFound is returned
		require.ErrorIs(t, err, apperror.ErrSnapshotNotFound)
	})

	t.Run("Overlapping saves keep the last write", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// Given: two consecutive snapshots of the same session
		first := entity.Game{
			Board:  [9]string{entity.PlayerX, "", "", "", "", "", "", "", ""},
			Turn:   entity.PlayerO,
			Status: entity.StatusInProgress,
		}
		second := entity.Game{
			Board:  [9]string{entity.PlayerX, "", "", "", entity.PlayerO, "", "", "", ""},
			Turn:   entity.PlayerX,
			Status: entity.StatusInProgress,
		}

		// When: both are saved under the same key
		require.NoError(t, snapshotRepo.Save(ctx, "123", gameTag, first))
		require.NoError(t, snapshotRepo.Save(ctx, "123", gameTag, second))

		// Then: the later snapshot wins
		loaded, err := snapshotRepo.Load(ctx, "123", gameTag)
		require.NoError(t, err)
		assert.Equal(t, second, loaded)
	})
}

func TestSnapshotRepository_Delete(t *testing.T) {
	ctx, st := suite.New(t)

	snapshotRepo := NewSnapshotRepository(st.Storage)

	// Given: a saved snapshot
	game := entity.Game{
		Turn:   entity.PlayerX,
		Status: entity.StatusInProgress,
	}
	require.NoError(t, snapshotRepo.Save(ctx, "123", gameTag, game))

	// When: the snapshot is deleted
	err := snapshotRepo.Delete(ctx, "123", gameTag)
	require.NoError(t, err)

	// Then: a later load starts fresh
	_, err = snapshotRepo.Load(ctx, "123", gameTag)
	require.ErrorIs(t, err, apperror.ErrSnapshotNotFound)
}
