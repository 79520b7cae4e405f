package tournament

import (
	"fmt"
	"time"
)

// Tournament is one ingested bracket stage. The counts are derived from the
// deduplicated team/player registries of the run that created it, not from
// the stage metadata.
type Tournament struct {
	ID          string
	Name        string
	TeamCount   int
	PlayerCount int
	CreatedAt   time.Time
}

func (t Tournament) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tournament id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("tournament name is required")
	}
	if t.TeamCount < 0 {
		return fmt.Errorf("tournament team count cannot be negative")
	}
	if t.PlayerCount < 0 {
		return fmt.Errorf("tournament player count cannot be negative")
	}

	return nil
}
