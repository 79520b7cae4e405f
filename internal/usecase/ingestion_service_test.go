package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/frostleaf/frost-leaderboard/external/battlefy"
	"github.com/frostleaf/frost-leaderboard/internal/infrastructure/repository/memory"
	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
)

type stubFetcher struct {
	bracket      *battlefy.Bracket
	bracketErr   error
	matchList    []battlefy.MatchSummary
	matchListErr error
	details      map[string]*battlefy.MatchDetail
	detailErrs   map[string]error
	roster       []battlefy.RosterTeam
	rosterErr    error
}

func (f *stubFetcher) FetchBracket(_ context.Context, _ string) (*battlefy.Bracket, error) {
	return f.bracket, f.bracketErr
}

func (f *stubFetcher) FetchMatchList(_ context.Context, _ string) ([]battlefy.MatchSummary, error) {
	return f.matchList, f.matchListErr
}

func (f *stubFetcher) FetchMatchDetail(_ context.Context, _, matchID string) (*battlefy.MatchDetail, error) {
	if err, ok := f.detailErrs[matchID]; ok {
		return nil, err
	}
	detail, ok := f.details[matchID]
	if !ok {
		return nil, fmt.Errorf("unexpected detail fetch for %s", matchID)
	}
	return detail, nil
}

func (f *stubFetcher) FetchTeams(_ context.Context, _ string) ([]battlefy.RosterTeam, error) {
	return f.roster, f.rosterErr
}

type capturePublisher struct {
	paths    []string
	payloads []any
}

func (p *capturePublisher) Enqueue(_ context.Context, path string, payload any, _ time.Duration, _ string) error {
	p.paths = append(p.paths, path)
	p.payloads = append(p.payloads, payload)
	return nil
}

type ingestionFixture struct {
	service     *IngestionService
	fetcher     *stubFetcher
	publisher   *capturePublisher
	tournaments *memory.TournamentRepository
	matches     *memory.MatchRepository
	games       *memory.GameRepository
	teams       *memory.TeamRepository
	players     *memory.PlayerRepository
	statlines   *memory.StatlineRepository
	rawPayloads *memory.RawDataRepository
}

func newIngestionFixture(fetcher *stubFetcher) *ingestionFixture {
	fx := &ingestionFixture{
		fetcher:     fetcher,
		publisher:   &capturePublisher{},
		tournaments: memory.NewTournamentRepository(),
		matches:     memory.NewMatchRepository(),
		games:       memory.NewGameRepository(),
		teams:       memory.NewTeamRepository(),
		players:     memory.NewPlayerRepository(),
		statlines:   memory.NewStatlineRepository(),
		rawPayloads: memory.NewRawDataRepository(),
	}
	fx.service = NewIngestionService(
		fetcher,
		fx.tournaments,
		fx.matches,
		fx.games,
		fx.teams,
		fx.players,
		fx.statlines,
		fx.rawPayloads,
		fx.publisher,
		nil,
		logging.NewNop(),
		IngestionServiceConfig{DetailConcurrency: 2, BulkWorkers: 2},
	)
	return fx
}

func healthyStubFetcher() *stubFetcher {
	return &stubFetcher{
		bracket: &battlefy.Bracket{ID: "tour-1", Name: "Frost Cup"},
		matchList: []battlefy.MatchSummary{
			{ID: "match-1", StageID: "stage-1"},
			{ID: "bye-1", StageID: "stage-1", IsBye: true},
		},
		details: map[string]*battlefy.MatchDetail{
			"match-1": testMatchDetail(),
		},
		roster: testRoster(),
	}
}

func TestIngestStage_HappyPath(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("ingest stage: %v", err)
	}

	if report.State != RunStateDone {
		t.Fatalf("unexpected run state: %s", report.State)
	}
	if report.Degraded {
		t.Fatalf("clean run must not be degraded: %+v", report)
	}
	if report.MatchesTotal != 2 || report.ByesExcluded != 1 {
		t.Fatalf("unexpected match accounting: total=%d byes=%d", report.MatchesTotal, report.ByesExcluded)
	}
	if report.MatchesPersisted != 1 || report.GamesPersisted != 2 {
		t.Fatalf("unexpected persistence counts: matches=%d games=%d", report.MatchesPersisted, report.GamesPersisted)
	}
	if report.TeamsPersisted != 2 || report.PlayersPersisted != 2 || report.StatlinesPersisted != 4 {
		t.Fatalf("unexpected entity counts: teams=%d players=%d statlines=%d",
			report.TeamsPersisted, report.PlayersPersisted, report.StatlinesPersisted)
	}
	if report.TournamentID != "tour-1" {
		t.Fatalf("unexpected tournament id: %s", report.TournamentID)
	}

	row, found, err := fx.tournaments.GetByID(context.Background(), "tour-1")
	if err != nil || !found {
		t.Fatalf("tournament not persisted: found=%v err=%v", found, err)
	}
	if row.Name != "Frost Cup" || row.TeamCount != 2 || row.PlayerCount != 2 {
		t.Fatalf("unexpected tournament row: %+v", row)
	}

	// Bracket, match list, and one detail snapshot.
	if fx.rawPayloads.Len() != 3 {
		t.Fatalf("unexpected raw payload count: %d", fx.rawPayloads.Len())
	}

	if len(fx.publisher.paths) != 1 || fx.publisher.paths[0] != "/api/v1/hooks/run-completed" {
		t.Fatalf("unexpected publisher calls: %+v", fx.publisher.paths)
	}
}

func TestIngestStage_ReIngestIsIdempotent(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())

	if _, err := fx.service.IngestStage(context.Background(), "stage-1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := fx.service.IngestStage(context.Background(), "stage-1"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if fx.matches.Len() != 1 || fx.games.Len() != 2 {
		t.Fatalf("duplicate rows after re-ingest: matches=%d games=%d", fx.matches.Len(), fx.games.Len())
	}
	if fx.teams.Len() != 2 || fx.players.Len() != 2 || fx.statlines.Len() != 4 {
		t.Fatalf("duplicate rows after re-ingest: teams=%d players=%d statlines=%d",
			fx.teams.Len(), fx.players.Len(), fx.statlines.Len())
	}
	if fx.rawPayloads.Len() != 3 {
		t.Fatalf("duplicate raw payloads after re-ingest: %d", fx.rawPayloads.Len())
	}
}

func TestIngestStage_StageFetchFailureIsRunFatal(t *testing.T) {
	t.Parallel()

	fetcher := healthyStubFetcher()
	fetcher.bracketErr = fmt.Errorf("%w: status=503", battlefy.ErrTransport)
	fx := newIngestionFixture(fetcher)

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if report.State != RunStateFailed {
		t.Fatalf("unexpected run state: %s", report.State)
	}
	if fx.tournaments.Len() != 0 || fx.matches.Len() != 0 {
		t.Fatalf("failed run must not write rows")
	}
	if len(fx.publisher.paths) != 0 {
		t.Fatalf("failed run must not publish, got %+v", fx.publisher.paths)
	}
}

func TestIngestStage_RosterFailureDegradesRun(t *testing.T) {
	t.Parallel()

	fetcher := healthyStubFetcher()
	fetcher.rosterErr = fmt.Errorf("%w: status=503", battlefy.ErrTransport)
	fx := newIngestionFixture(fetcher)

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("roster failure must not fail the run: %v", err)
	}

	if report.State != RunStateDone {
		t.Fatalf("unexpected run state: %s", report.State)
	}
	if !report.Degraded {
		t.Fatalf("expected degraded run: %+v", report)
	}
	if report.RosterFailure == "" {
		t.Fatalf("expected roster failure to be reported")
	}

	// Matches, games, and teams do not depend on the roster.
	if report.MatchesPersisted != 1 || report.GamesPersisted != 2 || report.TeamsPersisted != 2 {
		t.Fatalf("unexpected persistence counts: matches=%d games=%d teams=%d",
			report.MatchesPersisted, report.GamesPersisted, report.TeamsPersisted)
	}

	// Every statline resolves against an empty roster index and drops.
	if report.StatlinesPersisted != 0 || report.PlayersPersisted != 0 {
		t.Fatalf("statlines must not persist without a roster: statlines=%d players=%d",
			report.StatlinesPersisted, report.PlayersPersisted)
	}
	if len(report.DroppedStatlines) != 4 {
		t.Fatalf("unexpected dropped statlines: %+v", report.DroppedStatlines)
	}

	if len(fx.publisher.paths) != 1 {
		t.Fatalf("degraded run must still publish, got %+v", fx.publisher.paths)
	}
}

func TestIngestStage_TeamRowFailureSkipsDependentStatlines(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())
	fx.teams.FailUpsertsWith(errors.New("disk full"))

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("row failures must not fail the run: %v", err)
	}

	if report.State != RunStateDone || !report.Degraded {
		t.Fatalf("unexpected outcome: state=%s degraded=%v", report.State, report.Degraded)
	}
	if report.MatchesPersisted != 1 || report.GamesPersisted != 2 {
		t.Fatalf("match and game rows must still persist: matches=%d games=%d",
			report.MatchesPersisted, report.GamesPersisted)
	}
	if report.TeamsPersisted != 0 || report.StatlinesPersisted != 0 || report.PlayersPersisted != 0 {
		t.Fatalf("team failures must take their statlines with them: teams=%d statlines=%d players=%d",
			report.TeamsPersisted, report.StatlinesPersisted, report.PlayersPersisted)
	}

	// Both teams fail in both games, and each failed team drags its two
	// statlines down with it.
	var teamFailures, statlineFailures int
	for _, failure := range report.RowFailures {
		switch failure.Entity {
		case "team":
			teamFailures++
		case "statline":
			statlineFailures++
			if failure.Reason != "team row was not persisted" {
				t.Fatalf("unexpected statline failure reason: %q", failure.Reason)
			}
		default:
			t.Fatalf("unexpected row failure entity: %+v", failure)
		}
	}
	if teamFailures != 4 || statlineFailures != 4 {
		t.Fatalf("unexpected row failures: teams=%d statlines=%d", teamFailures, statlineFailures)
	}

	if fx.teams.Len() != 0 || fx.statlines.Len() != 0 {
		t.Fatalf("failed rows must not land in the store: teams=%d statlines=%d",
			fx.teams.Len(), fx.statlines.Len())
	}
}

// cancelAfterFetchFetcher cancels the run context once the last stage-level
// fetch returns, so persistence starts with an already canceled context.
type cancelAfterFetchFetcher struct {
	*stubFetcher
	cancel context.CancelFunc
}

func (f *cancelAfterFetchFetcher) FetchTeams(ctx context.Context, stageID string) ([]battlefy.RosterTeam, error) {
	defer f.cancel()
	return f.stubFetcher.FetchTeams(ctx, stageID)
}

func TestIngestStage_CancellationStopsPersistence(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fx := newIngestionFixture(healthyStubFetcher())
	fx.service.fetcher = &cancelAfterFetchFetcher{stubFetcher: fx.fetcher, cancel: cancel}

	report, err := fx.service.IngestStage(ctx, "stage-1")
	if err != nil {
		t.Fatalf("cancellation during persistence must not fail the run: %v", err)
	}

	if report.State != RunStateDone || !report.Degraded {
		t.Fatalf("unexpected outcome: state=%s degraded=%v", report.State, report.Degraded)
	}
	if report.MatchesPersisted != 0 || report.GamesPersisted != 0 || report.StatlinesPersisted != 0 {
		t.Fatalf("canceled run must not persist rows: %+v", report)
	}
	if len(report.SkippedMatches) != 1 || report.SkippedMatches[0].MatchID != "match-1" {
		t.Fatalf("every unpersisted match must be reported: %+v", report.SkippedMatches)
	}
	if !strings.Contains(report.SkippedMatches[0].Reason, "canceled") {
		t.Fatalf("unexpected skip reason: %q", report.SkippedMatches[0].Reason)
	}
	if fx.matches.Len() != 0 || fx.statlines.Len() != 0 {
		t.Fatalf("canceled run wrote rows: matches=%d statlines=%d", fx.matches.Len(), fx.statlines.Len())
	}
}

func TestIngestStage_SchemaFailureOnStageDocumentIsRunFatal(t *testing.T) {
	t.Parallel()

	fetcher := healthyStubFetcher()
	fetcher.matchListErr = fmt.Errorf("%w: match list entry 0", battlefy.ErrSchema)
	fx := newIngestionFixture(fetcher)

	_, err := fx.service.IngestStage(context.Background(), "stage-1")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestIngestStage_DetailFailureSkipsOnlyThatMatch(t *testing.T) {
	t.Parallel()

	fetcher := healthyStubFetcher()
	fetcher.matchList = append(fetcher.matchList, battlefy.MatchSummary{ID: "match-2", StageID: "stage-1"})
	fetcher.detailErrs = map[string]error{
		"match-2": fmt.Errorf("%w: status=500", battlefy.ErrTransport),
	}
	fx := newIngestionFixture(fetcher)

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("ingest stage: %v", err)
	}

	if !report.Degraded {
		t.Fatalf("expected degraded run")
	}
	if len(report.SkippedMatches) != 1 || report.SkippedMatches[0].MatchID != "match-2" {
		t.Fatalf("unexpected skipped matches: %+v", report.SkippedMatches)
	}
	if report.MatchesPersisted != 1 {
		t.Fatalf("surviving match must persist, got %d", report.MatchesPersisted)
	}
}

func TestIngestStage_DroppedStatlineDegradesRun(t *testing.T) {
	t.Parallel()

	fetcher := healthyStubFetcher()
	detail := testMatchDetail()
	detail.Stats = detail.Stats[:1]
	detail.Stats[0].Stats.Teams[0].Players = append(detail.Stats[0].Stats.Teams[0].Players, battlefy.PlayerStats{
		PUUID:      "puuid-sub",
		InGameName: "stand-in#NA1",
	})
	fetcher.details["match-1"] = detail
	fx := newIngestionFixture(fetcher)

	report, err := fx.service.IngestStage(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("ingest stage: %v", err)
	}

	if !report.Degraded {
		t.Fatalf("expected degraded run")
	}
	if len(report.DroppedStatlines) != 1 || report.DroppedStatlines[0].PUUID != "puuid-sub" {
		t.Fatalf("unexpected dropped statlines: %+v", report.DroppedStatlines)
	}
	if report.StatlinesPersisted != 2 {
		t.Fatalf("resolved statlines must still persist, got %d", report.StatlinesPersisted)
	}
}

func TestIngestStage_BlankStageIDRejected(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())

	if _, err := fx.service.IngestStage(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetTournament_NotFound(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())

	if _, err := fx.service.GetTournament(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTournamentMatches(t *testing.T) {
	t.Parallel()

	fx := newIngestionFixture(healthyStubFetcher())

	if _, err := fx.service.IngestStage(context.Background(), "stage-1"); err != nil {
		t.Fatalf("ingest stage: %v", err)
	}

	rows, err := fx.service.ListTournamentMatches(context.Background(), "tour-1")
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "match-1" || rows[0].Winner != "team-a" {
		t.Fatalf("unexpected matches: %+v", rows)
	}

	if _, err := fx.service.ListTournamentMatches(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown tournament, got %v", err)
	}
}
