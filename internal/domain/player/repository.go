package player

import "context"

// Repository describes player persistence needs from use cases.
// Upsert is insert-if-absent keyed by the profile id.
type Repository interface {
	Upsert(ctx context.Context, p Player) error
	GetByID(ctx context.Context, id string) (Player, bool, error)
}
