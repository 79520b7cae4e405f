package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/statline"
)

type statlineKey struct {
	gameID   string
	playerID string
}

type StatlineRepository struct {
	mu      sync.RWMutex
	rows    map[statlineKey]statline.Statline
	order   []statlineKey
	failErr error
}

func NewStatlineRepository() *StatlineRepository {
	return &StatlineRepository{rows: make(map[statlineKey]statline.Statline)}
}

// FailUpsertsWith makes every subsequent Upsert return err. Used to exercise
// degraded-success reporting in tests.
func (r *StatlineRepository) FailUpsertsWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failErr = err
}

// Upsert keys rows by (game, player), mirroring the composite primary key
// of the SQL table.
func (r *StatlineRepository) Upsert(_ context.Context, s statline.Statline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}
	key := statlineKey{gameID: s.GameID, playerID: s.PlayerID}
	if _, ok := r.rows[key]; ok {
		return nil
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	r.rows[key] = s
	r.order = append(r.order, key)

	return nil
}

func (r *StatlineRepository) ListByGame(_ context.Context, gameID string) ([]statline.Statline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]statline.Statline, 0, len(r.order))
	for _, key := range r.order {
		if key.gameID == gameID {
			out = append(out, r.rows[key])
		}
	}

	return out, nil
}

func (r *StatlineRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
