package actions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/gamedb"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/sqlutil"
)

// Repository implements game-action log access. The log is append-only
// and never read back to rebuild state.
type Repository struct {
	db      *sql.DB
	queries *gamedb.Queries
}

// NewRepository creates a new actions repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gamedb.New(db),
	}
}

// ListByGame returns the full action history of a game in insert order.
func (r *Repository) ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameAction, error) {
	rows, err := r.queries.ListGameActions(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game actions: %w", err)
	}

	actions := make([]models.GameAction, len(rows))
	for i, row := range rows {
		actions[i] = dbActionToModel(row)
	}
	return actions, nil
}

// Append inserts one action row and queues the matching relay event in
// the same transaction.
func (r *Repository) Append(ctx context.Context, roomCode string, action models.GameAction) (*models.GameAction, error) {
	var inserted gamedb.GameAction
	err := sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		var err error
		inserted, err = q.CreateGameAction(ctx, gamedb.CreateGameActionParams{
			GameID:     action.GameID,
			PlayerID:   action.PlayerID,
			ActionType: string(action.ActionType),
			TargetID:   toNullUUID(action.TargetID),
			ActionData: toNullRaw(action.ActionData),
		})
		if err != nil {
			return fmt.Errorf("failed to insert game action: %w", err)
		}

		payload, err := json.Marshal(events.PlayerActionPayload{Action: actionJSON(inserted)})
		if err != nil {
			return fmt.Errorf("failed to marshal action payload: %w", err)
		}
		if _, err := q.CreateOutboxEvent(ctx, gamedb.CreateOutboxEventParams{
			RoomCode:  roomCode,
			EventType: string(events.TypePlayerActionReceived),
			Payload:   payload,
		}); err != nil {
			return fmt.Errorf("failed to queue action event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := dbActionToModel(inserted)
	return &result, nil
}

func actionJSON(a gamedb.GameAction) json.RawMessage {
	data, err := json.Marshal(dbActionToModel(a))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func dbActionToModel(a gamedb.GameAction) models.GameAction {
	action := models.GameAction{
		ID:         a.ID,
		GameID:     a.GameID,
		PlayerID:   a.PlayerID,
		ActionType: models.ActionType(a.ActionType),
		CreatedAt:  a.CreatedAt,
	}
	if a.TargetID.Valid {
		id := a.TargetID.UUID
		action.TargetID = &id
	}
	if a.ActionData.Valid {
		action.ActionData = json.RawMessage(a.ActionData.RawMessage)
	}
	return action
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func toNullRaw(data json.RawMessage) pqtype.NullRawMessage {
	if len(data) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}
}
