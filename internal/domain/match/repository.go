package match

import "context"

// Repository describes match persistence needs from use cases.
type Repository interface {
	Upsert(ctx context.Context, m Match) error
	ListByTournament(ctx context.Context, tournamentID string) ([]Match, error)
}
