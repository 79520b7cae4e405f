package tournament

import "context"

// Repository describes tournament persistence needs from use cases.
// Upsert is insert-if-absent: re-ingesting an already persisted stage must
// not duplicate or mutate the existing row.
type Repository interface {
	Upsert(ctx context.Context, t Tournament) error
	GetByID(ctx context.Context, id string) (Tournament, bool, error)
}
