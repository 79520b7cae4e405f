package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostleaf/frost-leaderboard/internal/domain/rawdata"
	qb "github.com/frostleaf/frost-leaderboard/internal/platform/querybuilder"
)

const rawPayloadsTable = "frost_leaderboard_raw_payloads"

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

// UpsertMany writes one run's payload snapshots in a single tx. A payload
// that already exists for (source, entity_type, entity_key) is kept as-is.
func (r *RawDataRepository) UpsertMany(ctx context.Context, payloads []rawdata.Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range payloads {
		insertModel := rawPayloadInsertModel{
			Source:      p.Source,
			EntityType:  p.EntityType,
			EntityKey:   p.EntityKey,
			StageID:     p.StageID,
			Payload:     p.PayloadJSON,
			PayloadHash: p.PayloadHash,
			FetchedAt:   p.FetchedAt,
		}

		query, args, err := qb.InsertModel(rawPayloadsTable, insertModel,
			"ON CONFLICT (source, entity_type, entity_key) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build upsert raw payload query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert raw payload entity=%s key=%s: %w", p.EntityType, p.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}

	return nil
}

type rawPayloadInsertModel struct {
	Source      string    `db:"source"`
	EntityType  string    `db:"entity_type"`
	EntityKey   string    `db:"entity_key"`
	StageID     string    `db:"stage_id"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}
