package team

import (
	"fmt"
	"time"
)

// Team is one roster team, keyed by its external Battlefy team id. The same
// team referenced across many matches resolves to a single row.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
