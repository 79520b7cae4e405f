package player

import (
	"fmt"
	"time"
)

// Player is a resolved participant. ID is the stable profile id recovered
// from the stage roster; LinkedUserID is the per-game platform UUID the
// statlines reference.
type Player struct {
	ID           string
	Name         string
	LinkedUserID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.LinkedUserID == "" {
		return fmt.Errorf("player linked user id is required")
	}

	return nil
}
