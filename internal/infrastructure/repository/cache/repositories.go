package cache

import (
	"context"

	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
	basecache "github.com/frostleaf/frost-leaderboard/internal/platform/cache"
)

// TournamentRepository is a read-through cache in front of a tournament store.
// Upserts invalidate the cached entry so a completed ingestion run is visible
// on the next read.
type TournamentRepository struct {
	next  tournament.Repository
	cache *basecache.Store
}

func NewTournamentRepository(next tournament.Repository, cache *basecache.Store) *TournamentRepository {
	return &TournamentRepository{next: next, cache: cache}
}

func (r *TournamentRepository) Upsert(ctx context.Context, t tournament.Tournament) error {
	if err := r.next.Upsert(ctx, t); err != nil {
		return err
	}
	r.cache.Delete(ctx, tournamentKey(t.ID))
	return nil
}

func (r *TournamentRepository) GetByID(ctx context.Context, id string) (tournament.Tournament, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, tournamentKey(id), func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedTournamentByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return tournament.Tournament{}, false, err
	}

	cached, _ := v.(cachedTournamentByID)
	return cached.value, cached.exists, nil
}

type cachedTournamentByID struct {
	value  tournament.Tournament
	exists bool
}

func tournamentKey(id string) string {
	return "tournament:id:" + id
}
