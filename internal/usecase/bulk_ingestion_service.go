package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	defaultBulkWorkers = 3
	maxBulkWorkers     = 8
	bulkStatusDone     = "done"
	bulkStatusDegraded = "degraded"
	bulkStatusFailed   = "failed"
)

// BulkRunRow is the outcome for one stage within a bulk run.
type BulkRunRow struct {
	StageID    string `json:"stageId"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	RunID      string `json:"runId,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// BulkRunReport aggregates per-stage outcomes. Rows are sorted by stage id
// so the report is stable regardless of completion order.
type BulkRunReport struct {
	StageCount    int          `json:"stageCount"`
	WorkerCount   int          `json:"workerCount"`
	DoneCount     int          `json:"doneCount"`
	DegradedCount int          `json:"degradedCount"`
	FailedCount   int          `json:"failedCount"`
	Rows          []BulkRunRow `json:"rows"`
}

// IngestStages runs independent ingestion runs for many stage ids on a
// bounded worker pool. Stages never share run state, so per-stage failures
// stay per-stage.
func (s *IngestionService) IngestStages(ctx context.Context, stageIDs []string) (BulkRunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.IngestStages")
	defer span.End()

	unique := make([]string, 0, len(stageIDs))
	seen := make(map[string]bool, len(stageIDs))
	for _, raw := range stageIDs {
		stageID := strings.TrimSpace(raw)
		if stageID == "" || seen[stageID] {
			continue
		}
		seen[stageID] = true
		unique = append(unique, stageID)
	}
	if len(unique) == 0 {
		return BulkRunReport{}, fmt.Errorf("%w: at least one stage id is required", ErrInvalidInput)
	}

	workerCount := normalizeBulkWorkerCount(s.bulkWorkers, len(unique))
	report := BulkRunReport{
		StageCount:  len(unique),
		WorkerCount: workerCount,
		Rows:        make([]BulkRunRow, 0, len(unique)),
	}

	results := make(chan BulkRunRow, len(unique))

	var doneCount atomic.Int32
	var degradedCount atomic.Int32
	var failedCount atomic.Int32

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return BulkRunReport{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	for _, stageID := range unique {
		stageID := stageID
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := BulkRunRow{StageID: stageID}

			runReport, runErr := s.IngestStage(ctx, stageID)
			row.RunID = runReport.RunID
			row.DurationMs = time.Since(start).Milliseconds()

			switch {
			case runErr != nil:
				row.Status = bulkStatusFailed
				row.Message = runErr.Error()
				failedCount.Add(1)
			case runReport.Degraded:
				row.Status = bulkStatusDegraded
				degradedCount.Add(1)
			default:
				row.Status = bulkStatusDone
				doneCount.Add(1)
			}

			results <- row
		}); err != nil {
			workers.Done()
			return BulkRunReport{}, fmt.Errorf("submit stage to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		report.Rows = append(report.Rows, row)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].StageID < report.Rows[j].StageID
	})

	report.DoneCount = int(doneCount.Load())
	report.DegradedCount = int(degradedCount.Load())
	report.FailedCount = int(failedCount.Load())
	return report, nil
}

func normalizeBulkWorkerCount(configured, taskCount int) int {
	count := configured
	if count < 1 {
		count = defaultBulkWorkers
	}
	if count > maxBulkWorkers {
		count = maxBulkWorkers
	}
	if count > taskCount {
		count = taskCount
	}
	return count
}
