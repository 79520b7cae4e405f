package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/statline"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const statlinesTable = "frost_leaderboard_statlines"

type StatlineRepository struct {
	db *sqlx.DB
}

func NewStatlineRepository(db *sqlx.DB) *StatlineRepository {
	return &StatlineRepository{db: db}
}

func (r *StatlineRepository) Upsert(ctx context.Context, s statline.Statline) error {
	insertModel := statlineInsertModel{
		GameID:             s.GameID,
		PlayerID:           s.PlayerID,
		TeamID:             s.TeamID,
		Kills:              s.Kills,
		Deaths:             s.Deaths,
		Assists:            s.Assists,
		KDA:                s.KDA,
		HeadshotPercentage: s.HeadshotPercentage,
	}

	query, args, err := qb.InsertModel(statlinesTable, insertModel, "ON CONFLICT (game_id, player_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert statline query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert statline game=%s player=%s: %w", s.GameID, s.PlayerID, err)
	}

	return nil
}

func (r *StatlineRepository) ListByGame(ctx context.Context, gameID string) ([]statline.Statline, error) {
	query, args, err := qb.Select("*").From(statlinesTable).
		Where(qb.Eq("game_id", gameID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select statlines query: %w", err)
	}

	var rows []statlineTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select statlines by game %s: %w", gameID, err)
	}

	out := make([]statline.Statline, 0, len(rows))
	for _, row := range rows {
		out = append(out, statline.Statline{
			GameID:             row.GameID,
			PlayerID:           row.PlayerID,
			TeamID:             row.TeamID,
			Kills:              row.Kills,
			Deaths:             row.Deaths,
			Assists:            row.Assists,
			KDA:                row.KDA,
			HeadshotPercentage: row.HeadshotPercentage,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
		})
	}

	return out, nil
}

type statlineTableModel struct {
	GameID             string    `db:"game_id"`
	PlayerID           string    `db:"player_id"`
	TeamID             string    `db:"team_id"`
	Kills              int       `db:"kills"`
	Deaths             int       `db:"deaths"`
	Assists            int       `db:"assists"`
	KDA                float64   `db:"kda"`
	HeadshotPercentage float64   `db:"headshot_percentage"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

type statlineInsertModel struct {
	GameID             string  `db:"game_id"`
	PlayerID           string  `db:"player_id"`
	TeamID             string  `db:"team_id"`
	Kills              int     `db:"kills"`
	Deaths             int     `db:"deaths"`
	Assists            int     `db:"assists"`
	KDA                float64 `db:"kda"`
	HeadshotPercentage float64 `db:"headshot_percentage"`
}
