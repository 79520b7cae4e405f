package game

import (
	"fmt"
	"time"
)

// Game is one played map within a match. The optional per-site counters are
// only present when the provider reported them for that map.
type Game struct {
	ID             string
	MatchID        string
	Team1          string
	Team2          string
	Team1Score     int
	Team2Score     int
	Winner         string
	MapName        string
	MapSlug        string
	DurationMillis int64
	PlantsA        *int
	PlantsB        *int
	PlantsC        *int
	DefusesA       *int
	DefusesB       *int
	DefusesC       *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.MatchID == "" {
		return fmt.Errorf("game match id is required")
	}
	if g.Team1 == "" || g.Team2 == "" {
		return fmt.Errorf("game requires both team ids")
	}
	if g.Team1Score < 0 || g.Team2Score < 0 {
		return fmt.Errorf("game scores cannot be negative")
	}
	if g.Winner != g.Team1 && g.Winner != g.Team2 {
		return fmt.Errorf("game winner %q is neither team1 %q nor team2 %q", g.Winner, g.Team1, g.Team2)
	}

	return nil
}
