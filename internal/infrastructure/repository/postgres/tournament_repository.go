package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const tournamentsTable = "frost_leaderboard_tournaments"

type TournamentRepository struct {
	db *sqlx.DB
}

func NewTournamentRepository(db *sqlx.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func (r *TournamentRepository) Upsert(ctx context.Context, t tournament.Tournament) error {
	insertModel := tournamentInsertModel{
		ID:          t.ID,
		Name:        t.Name,
		TeamCount:   t.TeamCount,
		PlayerCount: t.PlayerCount,
	}

	query, args, err := qb.InsertModel(tournamentsTable, insertModel, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert tournament query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert tournament %s: %w", t.ID, err)
	}

	return nil
}

func (r *TournamentRepository) GetByID(ctx context.Context, id string) (tournament.Tournament, bool, error) {
	query, args, err := qb.Select("*").From(tournamentsTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return tournament.Tournament{}, false, fmt.Errorf("build select tournament query: %w", err)
	}

	var row tournamentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tournament.Tournament{}, false, nil
		}
		return tournament.Tournament{}, false, fmt.Errorf("select tournament %s: %w", id, err)
	}

	return row.toDomain(), true, nil
}

type tournamentInsertModel struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	TeamCount   int    `db:"teams"`
	PlayerCount int    `db:"players"`
}
