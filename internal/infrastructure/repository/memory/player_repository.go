package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/player"
)

type PlayerRepository struct {
	mu   sync.RWMutex
	rows map[string]player.Player
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{rows: make(map[string]player.Player)}
}

func (r *PlayerRepository) Upsert(_ context.Context, p player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[p.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	r.rows[p.ID] = p

	return nil
}

func (r *PlayerRepository) GetByID(_ context.Context, id string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	return row, ok, nil
}

func (r *PlayerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
