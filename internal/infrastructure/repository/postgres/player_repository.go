package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/player"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const playersTable = "frost_leaderboard_players"

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Upsert(ctx context.Context, p player.Player) error {
	insertModel := playerInsertModel{
		ID:           p.ID,
		Name:         p.Name,
		LinkedUserID: p.LinkedUserID,
	}

	query, args, err := qb.InsertModel(playersTable, insertModel, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert player query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert player %s: %w", p.ID, err)
	}

	return nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (player.Player, bool, error) {
	query, args, err := qb.Select("*").From(playersTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player %s: %w", id, err)
	}

	return player.Player{
		ID:           row.ID,
		Name:         row.Name,
		LinkedUserID: row.LinkedUserID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, true, nil
}

type playerTableModel struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	LinkedUserID string    `db:"linked_user_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type playerInsertModel struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	LinkedUserID string `db:"linked_user_id"`
}
