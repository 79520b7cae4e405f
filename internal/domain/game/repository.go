package game

import "context"

// Repository describes game persistence needs from use cases.
type Repository interface {
	Upsert(ctx context.Context, g Game) error
	ListByMatch(ctx context.Context, matchID string) ([]Game, error)
}
