package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
)

type GameRepository struct {
	mu    sync.RWMutex
	rows  map[string]game.Game
	order []string
}

func NewGameRepository() *GameRepository {
	return &GameRepository{rows: make(map[string]game.Game)}
}

func (r *GameRepository) Upsert(_ context.Context, g game.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[g.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}
	r.rows[g.ID] = g
	r.order = append(r.order, g.ID)

	return nil
}

func (r *GameRepository) ListByMatch(_ context.Context, matchID string) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, len(r.order))
	for _, id := range r.order {
		if row := r.rows[id]; row.MatchID == matchID {
			out = append(out, row)
		}
	}

	return out, nil
}

func (r *GameRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
