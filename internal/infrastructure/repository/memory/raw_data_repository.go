package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frostleaf/frost-leaderboard/internal/domain/rawdata"
)

type rawDataKey struct {
	source     string
	entityType string
	entityKey  string
}

type RawDataRepository struct {
	mu   sync.RWMutex
	rows map[rawDataKey]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{rows: make(map[rawDataKey]rawdata.Payload)}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, payloads []rawdata.Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range payloads {
		key := rawDataKey{source: p.Source, entityType: p.EntityType, entityKey: p.EntityKey}
		if _, ok := r.rows[key]; ok {
			continue
		}
		if p.FetchedAt.IsZero() {
			p.FetchedAt = time.Now().UTC()
		}
		r.rows[key] = p
	}

	return nil
}

func (r *RawDataRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
