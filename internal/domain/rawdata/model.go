package rawdata

import "time"

// Payload is one archived provider document. Archiving is best effort and
// never blocks an ingestion run.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	StageID     string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}
