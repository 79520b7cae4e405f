package postgres

import (
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
)

type tournamentTableModel struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	TeamCount   int       `db:"teams"`
	PlayerCount int       `db:"players"`
	CreatedAt   time.Time `db:"created_at"`
}

func (m tournamentTableModel) toDomain() tournament.Tournament {
	return tournament.Tournament{
		ID:          m.ID,
		Name:        m.Name,
		TeamCount:   m.TeamCount,
		PlayerCount: m.PlayerCount,
		CreatedAt:   m.CreatedAt,
	}
}
