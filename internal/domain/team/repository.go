package team

import "context"

// Repository describes team persistence needs from use cases.
// Upsert is insert-if-absent keyed by the external team id.
type Repository interface {
	Upsert(ctx context.Context, t Team) error
	GetByID(ctx context.Context, id string) (Team, bool, error)
}
