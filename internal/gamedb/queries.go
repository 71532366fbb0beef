package gamedb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries holds the raw SQL access layer for the game schema.
type Queries struct {
	db DBTX
}

// New creates a query layer bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// NewTx binds the query layer to an open transaction.
func NewTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const gameColumns = `id, room_code, phase, game_master_id, current_night, settings, created_at, updated_at`

func scanGame(row *sql.Row) (Game, error) {
	var g Game
	err := row.Scan(&g.ID, &g.RoomCode, &g.Phase, &g.GameMasterID, &g.CurrentNight, &g.Settings, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

type CreateGameParams struct {
	RoomCode string
	Phase    string
	Settings []byte
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO games (room_code, phase, settings)
		VALUES ($1, $2, $3)
		RETURNING `+gameColumns,
		arg.RoomCode, arg.Phase, arg.Settings)
	return scanGame(row)
}

func (q *Queries) GetGame(ctx context.Context, id uuid.UUID) (Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	return scanGame(row)
}

func (q *Queries) GetGameByRoomCode(ctx context.Context, roomCode string) (Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE room_code = $1`, roomCode)
	return scanGame(row)
}

type UpdateGamePhaseParams struct {
	ID           uuid.UUID
	Phase        string
	CurrentNight int32
}

func (q *Queries) UpdateGamePhase(ctx context.Context, arg UpdateGamePhaseParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE games
		SET phase = $2, current_night = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+gameColumns,
		arg.ID, arg.Phase, arg.CurrentNight)
	return scanGame(row)
}

func (q *Queries) UpdateGameMaster(ctx context.Context, id uuid.UUID, gameMasterID uuid.UUID) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE games
		SET game_master_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+gameColumns,
		id, gameMasterID)
	return scanGame(row)
}

const playerColumns = `id, game_id, name, role, status, is_game_master, is_lover, lover_id, has_used_ability, vote_target, created_at, updated_at`

func scanPlayerRow(row *sql.Row) (Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.GameID, &p.Name, &p.Role, &p.Status, &p.IsGameMaster,
		&p.IsLover, &p.LoverID, &p.HasUsedAbility, &p.VoteTarget, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreatePlayerParams struct {
	GameID       uuid.UUID
	Name         string
	Role         string
	IsGameMaster bool
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO players (game_id, name, role, is_game_master)
		VALUES ($1, $2, $3, $4)
		RETURNING `+playerColumns,
		arg.GameID, arg.Name, arg.Role, arg.IsGameMaster)
	return scanPlayerRow(row)
}

func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayerRow(row)
}

func (q *Queries) ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+playerColumns+` FROM players WHERE game_id = $1 ORDER BY created_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.Role, &p.Status, &p.IsGameMaster,
			&p.IsLover, &p.LoverID, &p.HasUsedAbility, &p.VoteTarget, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (q *Queries) CountPlayersByGame(ctx context.Context, gameID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM players WHERE game_id = $1`, gameID).Scan(&count)
	return count, err
}

// UpdatePlayerParams carries every mutable player column. Updates are
// unconditional full-field writes, last write wins.
type UpdatePlayerParams struct {
	ID             uuid.UUID
	Role           string
	Status         string
	IsLover        bool
	LoverID        uuid.NullUUID
	HasUsedAbility bool
	VoteTarget     uuid.NullUUID
}

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE players
		SET role = $2, status = $3, is_lover = $4, lover_id = $5,
		    has_used_ability = $6, vote_target = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+playerColumns,
		arg.ID, arg.Role, arg.Status, arg.IsLover, arg.LoverID, arg.HasUsedAbility, arg.VoteTarget)
	return scanPlayerRow(row)
}

const actionColumns = `id, game_id, player_id, action_type, target_id, action_data, created_at`

type CreateGameActionParams struct {
	GameID     uuid.UUID
	PlayerID   uuid.UUID
	ActionType string
	TargetID   uuid.NullUUID
	ActionData pqtype.NullRawMessage
}

func (q *Queries) CreateGameAction(ctx context.Context, arg CreateGameActionParams) (GameAction, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO game_actions (game_id, player_id, action_type, target_id, action_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+actionColumns,
		arg.GameID, arg.PlayerID, arg.ActionType, arg.TargetID, arg.ActionData)
	var a GameAction
	err := row.Scan(&a.ID, &a.GameID, &a.PlayerID, &a.ActionType, &a.TargetID, &a.ActionData, &a.CreatedAt)
	return a, err
}

func (q *Queries) ListGameActions(ctx context.Context, gameID uuid.UUID) ([]GameAction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM game_actions WHERE game_id = $1 ORDER BY created_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []GameAction
	for rows.Next() {
		var a GameAction
		if err := rows.Scan(&a.ID, &a.GameID, &a.PlayerID, &a.ActionType, &a.TargetID, &a.ActionData, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

type CreateOutboxEventParams struct {
	RoomCode  string
	EventType string
	Payload   []byte
}

func (q *Queries) CreateOutboxEvent(ctx context.Context, arg CreateOutboxEventParams) (OutboxEvent, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO game_outbox (room_code, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, room_code, event_type, payload, created_at, sent_at`,
		arg.RoomCode, arg.EventType, arg.Payload)
	var e OutboxEvent
	err := row.Scan(&e.ID, &e.RoomCode, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt)
	return e, err
}

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (OutboxEvent, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, room_code, event_type, payload, created_at, sent_at
		FROM game_outbox WHERE id = $1`, id)
	var e OutboxEvent
	err := row.Scan(&e.ID, &e.RoomCode, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt)
	return e, err
}

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, room_code, event_type, payload, created_at, sent_at
		FROM game_outbox WHERE sent_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.RoomCode, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `UPDATE game_outbox SET sent_at = now() WHERE id = $1`, id)
	return err
}
