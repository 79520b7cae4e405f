package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const gamesTable = "frost_leaderboard_games"

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Upsert(ctx context.Context, g game.Game) error {
	insertModel := gameInsertModel{
		ID:             g.ID,
		MatchID:        g.MatchID,
		Team1:          g.Team1,
		Team2:          g.Team2,
		Team1Score:     g.Team1Score,
		Team2Score:     g.Team2Score,
		Winner:         g.Winner,
		MapName:        g.MapName,
		MapSlug:        g.MapSlug,
		DurationMillis: g.DurationMillis,
		PlantsA:        g.PlantsA,
		PlantsB:        g.PlantsB,
		PlantsC:        g.PlantsC,
		DefusesA:       g.DefusesA,
		DefusesB:       g.DefusesB,
		DefusesC:       g.DefusesC,
	}

	query, args, err := qb.InsertModel(gamesTable, insertModel, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert game query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert game %s: %w", g.ID, err)
	}

	return nil
}

func (r *GameRepository) ListByMatch(ctx context.Context, matchID string) ([]game.Game, error) {
	query, args, err := qb.Select("*").From(gamesTable).
		Where(qb.Eq("match_id", matchID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select games by match %s: %w", matchID, err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

type gameInsertModel struct {
	ID             string `db:"id"`
	MatchID        string `db:"match_id"`
	Team1          string `db:"team1"`
	Team2          string `db:"team2"`
	Team1Score     int    `db:"team1_score"`
	Team2Score     int    `db:"team2_score"`
	Winner         string `db:"winner"`
	MapName        string `db:"map_name"`
	MapSlug        string `db:"map_slug"`
	DurationMillis int64  `db:"duration_millis"`
	PlantsA        *int   `db:"plants_a"`
	PlantsB        *int   `db:"plants_b"`
	PlantsC        *int   `db:"plants_c"`
	DefusesA       *int   `db:"defuses_a"`
	DefusesB       *int   `db:"defuses_b"`
	DefusesC       *int   `db:"defuses_c"`
}
