package usecase

import (
	"errors"
	"fmt"

	"github.com/frostleaf/frost-leaderboard/external/battlefy"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Ingestion taxonomy. Fetch and validation failures on stage-level
	// documents are run-fatal; the same failures on a single match detail
	// only skip that match.
	ErrFetchFailed       = errors.New("remote fetch failed")
	ErrValidationFailed  = errors.New("remote payload validation failed")
	ErrResolutionFailed  = errors.New("entity resolution failed")
	ErrPersistenceFailed = errors.New("persistence failed")
)

// classifyRemoteErr folds provider sentinels into the service taxonomy so
// the transport layer never leaks past the use case boundary.
func classifyRemoteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, battlefy.ErrSchema):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	case errors.Is(err, battlefy.ErrTransport):
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	default:
		return err
	}
}
