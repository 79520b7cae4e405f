package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/team"
)

type TeamRepository struct {
	mu      sync.RWMutex
	rows    map[string]team.Team
	failErr error
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{rows: make(map[string]team.Team)}
}

// FailUpsertsWith makes every subsequent Upsert return err. Used to exercise
// degraded-success reporting in tests.
func (r *TeamRepository) FailUpsertsWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failErr = err
}

func (r *TeamRepository) Upsert(_ context.Context, t team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}
	if _, ok := r.rows[t.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	r.rows[t.ID] = t

	return nil
}

func (r *TeamRepository) GetByID(_ context.Context, id string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	return row, ok, nil
}

func (r *TeamRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
