package match

import (
	"fmt"
	"time"
)

// Match is one best-of-N series between two teams.
type Match struct {
	ID           string
	TournamentID string
	Team1        string
	Team2        string
	Team1Score   int
	Team2Score   int
	Winner       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.TournamentID == "" {
		return fmt.Errorf("match tournament id is required")
	}
	if m.Team1 == "" || m.Team2 == "" {
		return fmt.Errorf("match requires both team ids")
	}
	if m.Team1Score < 0 || m.Team2Score < 0 {
		return fmt.Errorf("match scores cannot be negative")
	}
	if m.Winner != m.Team1 && m.Winner != m.Team2 {
		return fmt.Errorf("match winner %q is neither team1 %q nor team2 %q", m.Winner, m.Team1, m.Team2)
	}

	return nil
}
