package postgres

import (
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
)

type gameTableModel struct {
	ID             string    `db:"id"`
	MatchID        string    `db:"match_id"`
	Team1          string    `db:"team1"`
	Team2          string    `db:"team2"`
	Team1Score     int       `db:"team1_score"`
	Team2Score     int       `db:"team2_score"`
	Winner         string    `db:"winner"`
	MapName        string    `db:"map_name"`
	MapSlug        string    `db:"map_slug"`
	DurationMillis int64     `db:"duration_millis"`
	PlantsA        *int      `db:"plants_a"`
	PlantsB        *int      `db:"plants_b"`
	PlantsC        *int      `db:"plants_c"`
	DefusesA       *int      `db:"defuses_a"`
	DefusesB       *int      `db:"defuses_b"`
	DefusesC       *int      `db:"defuses_c"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (m gameTableModel) toDomain() game.Game {
	return game.Game{
		ID:             m.ID,
		MatchID:        m.MatchID,
		Team1:          m.Team1,
		Team2:          m.Team2,
		Team1Score:     m.Team1Score,
		Team2Score:     m.Team2Score,
		Winner:         m.Winner,
		MapName:        m.MapName,
		MapSlug:        m.MapSlug,
		DurationMillis: m.DurationMillis,
		PlantsA:        m.PlantsA,
		PlantsB:        m.PlantsB,
		PlantsC:        m.PlantsC,
		DefusesA:       m.DefusesA,
		DefusesB:       m.DefusesB,
		DefusesC:       m.DefusesC,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
