package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const matchesTable = "frost_leaderboard_matches"

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Upsert(ctx context.Context, m match.Match) error {
	insertModel := matchInsertModel{
		ID:           m.ID,
		TournamentID: m.TournamentID,
		Team1:        m.Team1,
		Team2:        m.Team2,
		Team1Score:   m.Team1Score,
		Team2Score:   m.Team2Score,
		Winner:       m.Winner,
	}

	query, args, err := qb.InsertModel(matchesTable, insertModel, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match %s: %w", m.ID, err)
	}

	return nil
}

func (r *MatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]match.Match, error) {
	query, args, err := qb.Select("*").From(matchesTable).
		Where(qb.Eq("tournament_id", tournamentID)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches by tournament %s: %w", tournamentID, err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

type matchInsertModel struct {
	ID           string `db:"id"`
	TournamentID string `db:"tournament_id"`
	Team1        string `db:"team1"`
	Team2        string `db:"team2"`
	Team1Score   int    `db:"team1_score"`
	Team2Score   int    `db:"team2_score"`
	Winner       string `db:"winner"`
}
