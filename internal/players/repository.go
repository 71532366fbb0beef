package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/glougarou/backend/internal/gamedb"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/sqlutil"
)

// ErrNotFound is returned when a player id does not resolve.
var ErrNotFound = errors.New("player not found")

// Repository implements player data access.
type Repository struct {
	db      *sql.DB
	queries *gamedb.Queries
}

// NewRepository creates a new players repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gamedb.New(db),
	}
}

// Player retrieves a single player by id.
func (r *Repository) Player(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := r.queries.GetPlayer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return dbPlayerToModel(player), nil
}

// ListByGame retrieves every player of a game.
func (r *Repository) ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	rows, err := r.queries.ListPlayersByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	players := make([]models.Player, len(rows))
	for i, row := range rows {
		players[i] = *dbPlayerToModel(row)
	}
	return players, nil
}

// ApplyUpdate writes the merged player row, appends the action log
// entries and queues the relay events, all inside one transaction.
func (r *Repository) ApplyUpdate(ctx context.Context, roomCode string, player *models.Player, logs []ActionLog, items []OutboxItem) (*models.Player, error) {
	var updated gamedb.Player
	err := sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		var err error
		updated, err = q.UpdatePlayer(ctx, gamedb.UpdatePlayerParams{
			ID:             player.ID,
			Role:           string(player.Role),
			Status:         string(player.Status),
			IsLover:        player.IsLover,
			LoverID:        toNullUUID(player.LoverID),
			HasUsedAbility: player.HasUsedAbility,
			VoteTarget:     toNullUUID(player.VoteTarget),
		})
		if err != nil {
			return fmt.Errorf("failed to update player: %w", err)
		}

		for _, entry := range logs {
			if _, err := q.CreateGameAction(ctx, gamedb.CreateGameActionParams{
				GameID:     player.GameID,
				PlayerID:   player.ID,
				ActionType: string(entry.ActionType),
				TargetID:   toNullUUID(entry.TargetID),
				ActionData: toNullRaw(entry.Data),
			}); err != nil {
				return fmt.Errorf("failed to log %s action: %w", entry.ActionType, err)
			}
		}

		for _, item := range items {
			if _, err := q.CreateOutboxEvent(ctx, gamedb.CreateOutboxEventParams{
				RoomCode:  roomCode,
				EventType: string(item.Type),
				Payload:   item.Payload,
			}); err != nil {
				return fmt.Errorf("failed to queue %s event: %w", item.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dbPlayerToModel(updated), nil
}

// PairLovers sets the symmetric lover link on both players in one
// transaction.
func (r *Repository) PairLovers(ctx context.Context, a, b *models.Player) error {
	return sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		if _, err := q.UpdatePlayer(ctx, gamedb.UpdatePlayerParams{
			ID:             a.ID,
			Role:           string(a.Role),
			Status:         string(a.Status),
			IsLover:        true,
			LoverID:        uuid.NullUUID{UUID: b.ID, Valid: true},
			HasUsedAbility: a.HasUsedAbility,
			VoteTarget:     toNullUUID(a.VoteTarget),
		}); err != nil {
			return fmt.Errorf("failed to update first lover: %w", err)
		}
		if _, err := q.UpdatePlayer(ctx, gamedb.UpdatePlayerParams{
			ID:             b.ID,
			Role:           string(b.Role),
			Status:         string(b.Status),
			IsLover:        true,
			LoverID:        uuid.NullUUID{UUID: a.ID, Valid: true},
			HasUsedAbility: b.HasUsedAbility,
			VoteTarget:     toNullUUID(b.VoteTarget),
		}); err != nil {
			return fmt.Errorf("failed to update second lover: %w", err)
		}
		return nil
	})
}

func dbPlayerToModel(p gamedb.Player) *models.Player {
	return &models.Player{
		ID:             p.ID,
		GameID:         p.GameID,
		Name:           p.Name,
		Role:           models.Role(p.Role),
		Status:         models.PlayerStatus(p.Status),
		IsGameMaster:   p.IsGameMaster,
		IsLover:        p.IsLover,
		LoverID:        fromNullUUID(p.LoverID),
		HasUsedAbility: p.HasUsedAbility,
		VoteTarget:     fromNullUUID(p.VoteTarget),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}

func toNullRaw(data []byte) pqtype.NullRawMessage {
	if len(data) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}
}
