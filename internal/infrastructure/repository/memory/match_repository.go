package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
)

type MatchRepository struct {
	mu      sync.RWMutex
	rows    map[string]match.Match
	order   []string
	failErr error
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{rows: make(map[string]match.Match)}
}

// FailUpsertsWith makes every subsequent Upsert return err. Used to exercise
// degraded-success reporting in tests.
func (r *MatchRepository) FailUpsertsWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failErr = err
}

func (r *MatchRepository) Upsert(_ context.Context, m match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}
	if _, ok := r.rows[m.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	r.rows[m.ID] = m
	r.order = append(r.order, m.ID)

	return nil
}

func (r *MatchRepository) ListByTournament(_ context.Context, tournamentID string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(r.order))
	for _, id := range r.order {
		if row := r.rows[id]; row.TournamentID == tournamentID {
			out = append(out, row)
		}
	}

	return out, nil
}

func (r *MatchRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
