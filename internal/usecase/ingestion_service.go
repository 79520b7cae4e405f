package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/frostleaf/frost-leaderboard/external/battlefy"
	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
	"github.com/frostleaf/frost-leaderboard/internal/domain/player"
	"github.com/frostleaf/frost-leaderboard/internal/domain/rawdata"
	"github.com/frostleaf/frost-leaderboard/internal/domain/statline"
	"github.com/frostleaf/frost-leaderboard/internal/domain/team"
	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
	idgen "github.com/frostleaf/frost-leaderboard/internal/platform/id"
	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// RunState tracks where a run is in its lifecycle. Failed is only reachable
// from the bracket and match-list fetches; everything after that degrades
// instead.
type RunState string

const (
	RunStateFetching   RunState = "fetching"
	RunStateResolving  RunState = "resolving"
	RunStatePersisting RunState = "persisting"
	RunStateDone       RunState = "done"
	RunStateFailed     RunState = "failed"
)

const (
	defaultDetailConcurrency = 4
	rawPayloadSource         = "battlefy"
)

// BracketFetcher is the outbound contract to the bracket provider.
// *battlefy.Client satisfies it.
type BracketFetcher interface {
	FetchBracket(ctx context.Context, stageID string) (*battlefy.Bracket, error)
	FetchMatchList(ctx context.Context, stageID string) ([]battlefy.MatchSummary, error)
	FetchMatchDetail(ctx context.Context, stageID, matchID string) (*battlefy.MatchDetail, error)
	FetchTeams(ctx context.Context, stageID string) ([]battlefy.RosterTeam, error)
}

// RunEventPublisher enqueues a webhook after a run finishes. Optional.
type RunEventPublisher interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type IngestionService struct {
	fetcher           BracketFetcher
	tournamentRepo    tournament.Repository
	matchRepo         match.Repository
	gameRepo          game.Repository
	teamRepo          team.Repository
	playerRepo        player.Repository
	statlineRepo      statline.Repository
	rawRepo           rawdata.Repository
	publisher         RunEventPublisher
	idGenerator       idgen.Generator
	logger            *logging.Logger
	detailConcurrency int
	bulkWorkers       int
}

type IngestionServiceConfig struct {
	DetailConcurrency int
	BulkWorkers       int
}

func NewIngestionService(
	fetcher BracketFetcher,
	tournamentRepo tournament.Repository,
	matchRepo match.Repository,
	gameRepo game.Repository,
	teamRepo team.Repository,
	playerRepo player.Repository,
	statlineRepo statline.Repository,
	rawRepo rawdata.Repository,
	publisher RunEventPublisher,
	idGenerator idgen.Generator,
	logger *logging.Logger,
	cfg IngestionServiceConfig,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGenerator == nil {
		idGenerator = idgen.NewRandomGenerator()
	}
	concurrency := cfg.DetailConcurrency
	if concurrency < 1 {
		concurrency = defaultDetailConcurrency
	}

	return &IngestionService{
		fetcher:           fetcher,
		tournamentRepo:    tournamentRepo,
		matchRepo:         matchRepo,
		gameRepo:          gameRepo,
		teamRepo:          teamRepo,
		playerRepo:        playerRepo,
		statlineRepo:      statlineRepo,
		rawRepo:           rawRepo,
		publisher:         publisher,
		idGenerator:       idGenerator,
		logger:            logger,
		detailConcurrency: concurrency,
		bulkWorkers:       cfg.BulkWorkers,
	}
}

// RowFailure records one persistence write that failed. The run continues
// past it and finishes degraded.
type RowFailure struct {
	Entity string `json:"entity"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// SkippedMatch records one match left out of the run.
type SkippedMatch struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

// RunReport is the outcome of one ingestion run. Degraded distinguishes a
// run that completed with skipped or failed sub-entities from a clean one.
type RunReport struct {
	RunID              string              `json:"runId"`
	StageID            string              `json:"stageId"`
	State              RunState            `json:"state"`
	TournamentID       string              `json:"tournamentId,omitempty"`
	MatchesTotal       int                 `json:"matchesTotal"`
	ByesExcluded       int                 `json:"byesExcluded"`
	RosterFailure      string              `json:"rosterFailure,omitempty"`
	MatchesPersisted   int                 `json:"matchesPersisted"`
	GamesPersisted     int                 `json:"gamesPersisted"`
	TeamsPersisted     int                 `json:"teamsPersisted"`
	PlayersPersisted   int                 `json:"playersPersisted"`
	StatlinesPersisted int                 `json:"statlinesPersisted"`
	SkippedMatches     []SkippedMatch      `json:"skippedMatches,omitempty"`
	DroppedStatlines   []ResolutionWarning `json:"droppedStatlines,omitempty"`
	RowFailures        []RowFailure        `json:"rowFailures,omitempty"`
	Degraded           bool                `json:"degraded"`
	StartedAt          time.Time           `json:"startedAt"`
	FinishedAt         time.Time           `json:"finishedAt"`
}

// IngestStage runs the full pipeline for one stage id: fetch, resolve,
// persist. Only bracket and match-list failures abort before any write;
// everything downstream is roster-, match-, statline- or row-scoped.
func (s *IngestionService) IngestStage(ctx context.Context, stageID string) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.IngestStage")
	defer span.End()

	stageID = strings.TrimSpace(stageID)
	if stageID == "" {
		return RunReport{}, fmt.Errorf("%w: stage id is required", ErrInvalidInput)
	}

	runID, err := s.idGenerator.NewID()
	if err != nil {
		return RunReport{}, fmt.Errorf("generate run id: %w", err)
	}

	report := RunReport{
		RunID:     runID,
		StageID:   stageID,
		State:     RunStateFetching,
		StartedAt: time.Now().UTC(),
	}

	bracket, err := s.fetcher.FetchBracket(ctx, stageID)
	if err != nil {
		return s.failRun(ctx, report, fmt.Errorf("fetch bracket %s: %w", stageID, classifyRemoteErr(err)))
	}
	matchList, err := s.fetcher.FetchMatchList(ctx, stageID)
	if err != nil {
		return s.failRun(ctx, report, fmt.Errorf("fetch match list %s: %w", stageID, classifyRemoteErr(err)))
	}
	// A missing roster cannot fail the run: matches and games do not need
	// it. Resolution runs against an empty index, so every statline drops
	// with a warning and the run finishes degraded.
	roster, err := s.fetcher.FetchTeams(ctx, stageID)
	if err != nil {
		classified := classifyRemoteErr(err)
		s.logger.WarnContext(ctx, "stage roster unavailable, statlines will be dropped",
			"stage_id", stageID,
			"error", classified,
		)
		report.RosterFailure = classified.Error()
		roster = nil
	}

	report.MatchesTotal = len(matchList)

	nonBye := make([]battlefy.MatchSummary, 0, len(matchList))
	for _, summary := range matchList {
		if summary.IsBye {
			report.ByesExcluded++
			continue
		}
		nonBye = append(nonBye, summary)
	}

	details := s.fetchDetails(ctx, stageID, nonBye, &report)

	s.archivePayloads(ctx, stageID, bracket, matchList, details)

	report.State = RunStateResolving
	resolution := Resolve(bracket.ID, details, roster)
	report.DroppedStatlines = resolution.Warnings

	report.State = RunStatePersisting
	s.persist(ctx, bracket, resolution, &report)

	report.State = RunStateDone
	report.Degraded = report.RosterFailure != "" ||
		len(report.SkippedMatches) > 0 ||
		len(report.DroppedStatlines) > 0 ||
		len(report.RowFailures) > 0
	report.FinishedAt = time.Now().UTC()

	s.logger.InfoContext(ctx, "ingestion run finished",
		"run_id", report.RunID,
		"stage_id", report.StageID,
		"degraded", report.Degraded,
		"matches_persisted", report.MatchesPersisted,
		"statlines_persisted", report.StatlinesPersisted,
		"skipped_matches", len(report.SkippedMatches),
		"dropped_statlines", len(report.DroppedStatlines),
		"row_failures", len(report.RowFailures),
	)

	s.publishRunCompleted(ctx, report)

	return report, nil
}

func (s *IngestionService) failRun(ctx context.Context, report RunReport, err error) (RunReport, error) {
	report.State = RunStateFailed
	report.FinishedAt = time.Now().UTC()
	s.logger.ErrorContext(ctx, "ingestion run failed",
		"run_id", report.RunID,
		"stage_id", report.StageID,
		"error", err,
	)
	return report, err
}

// fetchDetails retrieves every non-bye match detail with bounded
// parallelism. Results land in a slice indexed by match-list position, so
// downstream processing order stays deterministic no matter which fetch
// finishes first. A failed or invalid detail skips that match only.
func (s *IngestionService) fetchDetails(
	ctx context.Context,
	stageID string,
	summaries []battlefy.MatchSummary,
	report *RunReport,
) []*battlefy.MatchDetail {
	type outcome struct {
		detail *battlefy.MatchDetail
		err    error
	}

	outcomes := make([]outcome, len(summaries))
	fetchPool := pool.New().WithMaxGoroutines(s.detailConcurrency)
	for i, summary := range summaries {
		i, summary := i, summary
		fetchPool.Go(func() {
			detail, err := s.fetcher.FetchMatchDetail(ctx, stageID, summary.ID)
			outcomes[i] = outcome{detail: detail, err: err}
		})
	}
	fetchPool.Wait()

	details := make([]*battlefy.MatchDetail, 0, len(summaries))
	for i, summary := range summaries {
		if outcomes[i].err != nil {
			classified := classifyRemoteErr(outcomes[i].err)
			s.logger.WarnContext(ctx, "match detail skipped",
				"stage_id", stageID,
				"match_id", summary.ID,
				"error", classified,
			)
			report.SkippedMatches = append(report.SkippedMatches, SkippedMatch{
				MatchID: summary.ID,
				Reason:  classified.Error(),
			})
			continue
		}
		details = append(details, outcomes[i].detail)
	}

	return details
}

// archivePayloads stores the fetched documents for replay and debugging.
// Best effort: a failed archive write is logged and the run carries on.
func (s *IngestionService) archivePayloads(
	ctx context.Context,
	stageID string,
	bracket *battlefy.Bracket,
	matchList []battlefy.MatchSummary,
	details []*battlefy.MatchDetail,
) {
	if s.rawRepo == nil {
		return
	}

	now := time.Now().UTC()
	items := make([]rawdata.Payload, 0, len(details)+2)

	if item, err := buildRawPayload("bracket", bracket.ID, stageID, bracket, now); err == nil {
		items = append(items, item)
	}
	if item, err := buildRawPayload("match_list", stageID, stageID, matchList, now); err == nil {
		items = append(items, item)
	}
	for _, detail := range details {
		if detail == nil {
			continue
		}
		if item, err := buildRawPayload("match_detail", detail.ID, stageID, detail, now); err == nil {
			items = append(items, item)
		}
	}

	if err := s.rawRepo.UpsertMany(ctx, items); err != nil {
		s.logger.WarnContext(ctx, "raw payload archive failed", "stage_id", stageID, "error", err)
	}
}

func buildRawPayload(entityType, entityKey, stageID string, doc any, fetchedAt time.Time) (rawdata.Payload, error) {
	encoded, err := sonic.Marshal(doc)
	if err != nil {
		return rawdata.Payload{}, err
	}
	sum := sha256.Sum256(encoded)

	return rawdata.Payload{
		Source:      rawPayloadSource,
		EntityType:  entityType,
		EntityKey:   entityKey,
		StageID:     stageID,
		PayloadJSON: string(encoded),
		PayloadHash: hex.EncodeToString(sum[:]),
		FetchedAt:   fetchedAt,
	}, nil
}

// persist writes rows in dependency order: tournament, then per match the
// match row, then per game the game row, that game's teams, and finally
// players and statlines. A row failure is recorded and its dependents are
// skipped, but the run keeps going; nothing already written is retracted.
func (s *IngestionService) persist(ctx context.Context, bracket *battlefy.Bracket, res Resolution, report *RunReport) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.persist")
	defer span.End()

	row := tournament.Tournament{
		ID:          bracket.ID,
		Name:        bracket.Name,
		TeamCount:   res.Teams.Len(),
		PlayerCount: res.Players.Len(),
	}
	if err := s.upsertTournament(ctx, row, report); err == nil {
		report.TournamentID = row.ID
	}

	writtenTeams := make(map[string]bool, res.Teams.Len())
	writtenPlayers := make(map[string]bool, res.Players.Len())

	for _, resolved := range res.Matches {
		// A canceled context stops issuing writes; every remaining match is
		// still accounted for in the report.
		if err := ctx.Err(); err != nil {
			report.SkippedMatches = append(report.SkippedMatches, SkippedMatch{
				MatchID: resolved.Match.ID,
				Reason:  "run canceled: " + err.Error(),
			})
			continue
		}

		if err := s.upsertMatch(ctx, resolved.Match, report); err != nil {
			continue
		}
		report.MatchesPersisted++

		for _, resolvedGame := range resolved.Games {
			if err := s.upsertGame(ctx, resolvedGame.Game, report); err != nil {
				continue
			}
			report.GamesPersisted++

			failedTeams := make(map[string]bool)
			for _, gameTeam := range resolvedGame.Teams {
				if writtenTeams[gameTeam.ID] {
					continue
				}
				if err := s.upsertTeam(ctx, gameTeam, report); err != nil {
					failedTeams[gameTeam.ID] = true
					continue
				}
				writtenTeams[gameTeam.ID] = true
				report.TeamsPersisted++
			}

			for _, resolvedLine := range resolvedGame.Statlines {
				if failedTeams[resolvedLine.Line.TeamID] {
					report.RowFailures = append(report.RowFailures, RowFailure{
						Entity: "statline",
						Key:    resolvedLine.Line.GameID + "/" + resolvedLine.Line.PlayerID,
						Reason: "team row was not persisted",
					})
					continue
				}

				if !writtenPlayers[resolvedLine.Player.ID] {
					if err := s.upsertPlayer(ctx, resolvedLine.Player, report); err != nil {
						continue
					}
					writtenPlayers[resolvedLine.Player.ID] = true
					report.PlayersPersisted++
				}

				if err := s.upsertStatline(ctx, resolvedLine.Line, report); err != nil {
					continue
				}
				report.StatlinesPersisted++
			}
		}
	}
}

func (s *IngestionService) upsertTournament(ctx context.Context, row tournament.Tournament, report *RunReport) error {
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "tournament", row.ID, err)
	}
	if err := s.tournamentRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "tournament", row.ID, err)
	}
	return nil
}

func (s *IngestionService) upsertMatch(ctx context.Context, row match.Match, report *RunReport) error {
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "match", row.ID, err)
	}
	if err := s.matchRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "match", row.ID, err)
	}
	return nil
}

func (s *IngestionService) upsertGame(ctx context.Context, row game.Game, report *RunReport) error {
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "game", row.ID, err)
	}
	if err := s.gameRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "game", row.ID, err)
	}
	return nil
}

func (s *IngestionService) upsertTeam(ctx context.Context, row team.Team, report *RunReport) error {
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "team", row.ID, err)
	}
	if err := s.teamRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "team", row.ID, err)
	}
	return nil
}

func (s *IngestionService) upsertPlayer(ctx context.Context, row player.Player, report *RunReport) error {
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "player", row.ID, err)
	}
	if err := s.playerRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "player", row.ID, err)
	}
	return nil
}

func (s *IngestionService) upsertStatline(ctx context.Context, row statline.Statline, report *RunReport) error {
	key := row.GameID + "/" + row.PlayerID
	if err := row.Validate(); err != nil {
		return s.recordRowFailure(ctx, report, "statline", key, err)
	}
	if err := s.statlineRepo.Upsert(ctx, row); err != nil {
		return s.recordRowFailure(ctx, report, "statline", key, err)
	}
	return nil
}

func (s *IngestionService) recordRowFailure(ctx context.Context, report *RunReport, entity, key string, err error) error {
	wrapped := fmt.Errorf("%w: %s %s: %v", ErrPersistenceFailed, entity, key, err)
	s.logger.WarnContext(ctx, "row persistence failed", "entity", entity, "key", key, "error", err)
	report.RowFailures = append(report.RowFailures, RowFailure{
		Entity: entity,
		Key:    key,
		Reason: err.Error(),
	})
	return wrapped
}

func (s *IngestionService) publishRunCompleted(ctx context.Context, report RunReport) {
	if s.publisher == nil {
		return
	}

	payload := map[string]any{
		"runId":    report.RunID,
		"stageId":  report.StageID,
		"state":    report.State,
		"degraded": report.Degraded,
	}
	if err := s.publisher.Enqueue(ctx, "/api/v1/hooks/run-completed", payload, 0, report.RunID); err != nil {
		s.logger.WarnContext(ctx, "run completion publish failed", "run_id", report.RunID, "error", err)
	}
}

// GetTournament is the read-back path for persisted tournaments.
func (s *IngestionService) GetTournament(ctx context.Context, id string) (tournament.Tournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.GetTournament")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return tournament.Tournament{}, fmt.Errorf("%w: tournament id is required", ErrInvalidInput)
	}

	row, found, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return tournament.Tournament{}, fmt.Errorf("get tournament %s: %w", id, err)
	}
	if !found {
		return tournament.Tournament{}, fmt.Errorf("%w: tournament %s", ErrNotFound, id)
	}

	return row, nil
}

// ListTournamentMatches returns a tournament's persisted matches in the
// order they were ingested.
func (s *IngestionService) ListTournamentMatches(ctx context.Context, tournamentID string) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.ListTournamentMatches")
	defer span.End()

	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}

	rows, err := s.matchRepo.ListByTournament(ctx, strings.TrimSpace(tournamentID))
	if err != nil {
		return nil, fmt.Errorf("list matches for tournament %s: %w", tournamentID, err)
	}

	return rows, nil
}
