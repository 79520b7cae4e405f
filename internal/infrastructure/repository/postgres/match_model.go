package postgres

import (
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
)

type matchTableModel struct {
	ID           string    `db:"id"`
	TournamentID string    `db:"tournament_id"`
	Team1        string    `db:"team1"`
	Team2        string    `db:"team2"`
	Team1Score   int       `db:"team1_score"`
	Team2Score   int       `db:"team2_score"`
	Winner       string    `db:"winner"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:           m.ID,
		TournamentID: m.TournamentID,
		Team1:        m.Team1,
		Team2:        m.Team2,
		Team1Score:   m.Team1Score,
		Team2Score:   m.Team2Score,
		Winner:       m.Winner,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
