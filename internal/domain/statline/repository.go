package statline

import "context"

// Repository describes statline persistence needs from use cases.
type Repository interface {
	Upsert(ctx context.Context, s Statline) error
	ListByGame(ctx context.Context, gameID string) ([]Statline, error)
}
