package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/frostleaf/frost-leaderboard/external/battlefy"
	"github.com/frostleaf/frost-leaderboard/external/jobqueue"
	"github.com/frostleaf/frost-leaderboard/internal/config"
	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
	"github.com/frostleaf/frost-leaderboard/internal/domain/player"
	"github.com/frostleaf/frost-leaderboard/internal/domain/rawdata"
	"github.com/frostleaf/frost-leaderboard/internal/domain/statline"
	"github.com/frostleaf/frost-leaderboard/internal/domain/team"
	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
	cacherepo "github.com/frostleaf/frost-leaderboard/internal/infrastructure/repository/cache"
	"github.com/frostleaf/frost-leaderboard/internal/infrastructure/repository/memory"
	"github.com/frostleaf/frost-leaderboard/internal/infrastructure/repository/postgres"
	"github.com/frostleaf/frost-leaderboard/internal/interfaces/httpapi"
	basecache "github.com/frostleaf/frost-leaderboard/internal/platform/cache"
	idgen "github.com/frostleaf/frost-leaderboard/internal/platform/id"
	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
	"github.com/frostleaf/frost-leaderboard/internal/platform/resilience"
	"github.com/frostleaf/frost-leaderboard/internal/usecase"

	_ "github.com/lib/pq"
)

type repositories struct {
	tournaments tournament.Repository
	matches     match.Repository
	games       game.Repository
	teams       team.Repository
	players     player.Repository
	statlines   statline.Repository
	rawPayloads rawdata.Repository
}

func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repos, err := newRepositories(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		repos.tournaments = cacherepo.NewTournamentRepository(repos.tournaments, store)
	}

	rosterCacheTTL := time.Duration(0)
	if cfg.CacheEnabled {
		rosterCacheTTL = cfg.CacheTTL
	}

	fetcher := battlefy.NewClient(battlefy.ClientConfig{
		BaseURL:    cfg.BattlefyBaseURL,
		Timeout:    cfg.BattlefyTimeout,
		MaxRetries: cfg.BattlefyMaxRetries,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.BattlefyCircuitEnabled,
			FailureThreshold: cfg.BattlefyCircuitFailureCount,
			OpenTimeout:      cfg.BattlefyCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.BattlefyCircuitHalfOpenMaxReq,
		},
		RosterCacheTTL: rosterCacheTTL,
	}, logger)

	var publisher usecase.RunEventPublisher
	if cfg.QStashEnabled {
		publisher = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, slog.Default())
	}

	ingestionSvc := usecase.NewIngestionService(
		fetcher,
		repos.tournaments,
		repos.matches,
		repos.games,
		repos.teams,
		repos.players,
		repos.statlines,
		repos.rawPayloads,
		publisher,
		idgen.NewRandomGenerator(),
		logger,
		usecase.IngestionServiceConfig{
			DetailConcurrency: cfg.BattlefyDetailConcurrency,
			BulkWorkers:       cfg.BulkIngestWorkers,
		},
	)

	handler := httpapi.NewHandler(ingestionSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

// newRepositories wires postgres stores when DB_URL is set and falls back
// to in-memory stores otherwise.
func newRepositories(cfg config.Config, logger *logging.Logger) (repositories, error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Info("db url is empty, using in-memory repositories")
		return repositories{
			tournaments: memory.NewTournamentRepository(),
			matches:     memory.NewMatchRepository(),
			games:       memory.NewGameRepository(),
			teams:       memory.NewTeamRepository(),
			players:     memory.NewPlayerRepository(),
			statlines:   memory.NewStatlineRepository(),
			rawPayloads: memory.NewRawDataRepository(),
		}, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return repositories{}, err
	}

	return repositories{
		tournaments: postgres.NewTournamentRepository(db),
		matches:     postgres.NewMatchRepository(db),
		games:       postgres.NewGameRepository(db),
		teams:       postgres.NewTeamRepository(db),
		players:     postgres.NewPlayerRepository(db),
		statlines:   postgres.NewStatlineRepository(db),
		rawPayloads: postgres.NewRawDataRepository(db),
	}, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
