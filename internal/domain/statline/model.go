package statline

import (
	"fmt"
	"time"
)

// Statline is one player's performance in one game. The (GameID, PlayerID)
// pair is the identity; a player never has two lines for the same game.
type Statline struct {
	GameID             string
	PlayerID           string
	TeamID             string
	Kills              int
	Deaths             int
	Assists            int
	KDA                float64
	HeadshotPercentage float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s Statline) Validate() error {
	if s.GameID == "" {
		return fmt.Errorf("statline game id is required")
	}
	if s.PlayerID == "" {
		return fmt.Errorf("statline player id is required")
	}
	if s.TeamID == "" {
		return fmt.Errorf("statline team id is required")
	}
	if s.Kills < 0 || s.Deaths < 0 || s.Assists < 0 {
		return fmt.Errorf("statline counters cannot be negative")
	}

	return nil
}
