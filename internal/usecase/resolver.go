package usecase

import (
	"strings"

	"github.com/frostleaf/frost-leaderboard/external/battlefy"
	"github.com/frostleaf/frost-leaderboard/internal/domain/game"
	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
	"github.com/frostleaf/frost-leaderboard/internal/domain/player"
	"github.com/frostleaf/frost-leaderboard/internal/domain/statline"
	"github.com/frostleaf/frost-leaderboard/internal/domain/team"
)

// TeamRegistry is a run-scoped deduplicated set of teams keyed by the
// external team id. Insertion order is the order teams first appear while
// walking matches in document order; first occurrence wins.
type TeamRegistry struct {
	order []string
	byID  map[string]team.Team
}

func NewTeamRegistry() *TeamRegistry {
	return &TeamRegistry{byID: make(map[string]team.Team)}
}

// Add records a team. The first record for an id is canonical; later
// occurrences of the same id are ignored.
func (r *TeamRegistry) Add(t team.Team) team.Team {
	if existing, ok := r.byID[t.ID]; ok {
		return existing
	}
	r.byID[t.ID] = t
	r.order = append(r.order, t.ID)
	return t
}

func (r *TeamRegistry) Get(id string) (team.Team, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *TeamRegistry) Len() int {
	return len(r.byID)
}

// Teams returns the registry contents in insertion order.
func (r *TeamRegistry) Teams() []team.Team {
	out := make([]team.Team, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// PlayerRegistry is a run-scoped deduplicated set of resolved players keyed
// by the platform UUID the per-game statlines carry.
type PlayerRegistry struct {
	order  []string
	byUUID map[string]player.Player
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{byUUID: make(map[string]player.Player)}
}

func (r *PlayerRegistry) Add(platformUUID string, p player.Player) player.Player {
	if existing, ok := r.byUUID[platformUUID]; ok {
		return existing
	}
	r.byUUID[platformUUID] = p
	r.order = append(r.order, platformUUID)
	return p
}

func (r *PlayerRegistry) Get(platformUUID string) (player.Player, bool) {
	p, ok := r.byUUID[platformUUID]
	return p, ok
}

func (r *PlayerRegistry) Len() int {
	return len(r.byUUID)
}

func (r *PlayerRegistry) Players() []player.Player {
	out := make([]player.Player, 0, len(r.order))
	for _, uuid := range r.order {
		out = append(out, r.byUUID[uuid])
	}
	return out
}

// ResolutionWarning records one dropped statline. Dropping is statline
// scoped and never fails the run.
type ResolutionWarning struct {
	MatchID    string `json:"matchId"`
	GameID     string `json:"gameId"`
	PUUID      string `json:"puuid"`
	InGameName string `json:"inGameName"`
	Reason     string `json:"reason"`
}

// Resolution is the output of walking all fetched match details once, in
// match-list document order.
type Resolution struct {
	Teams    *TeamRegistry
	Players  *PlayerRegistry
	Matches  []ResolvedMatch
	Warnings []ResolutionWarning
}

// ResolvedMatch keeps the per-match structure so persistence can follow
// entity dependency order.
type ResolvedMatch struct {
	Match match.Match
	Games []ResolvedGame
}

type ResolvedGame struct {
	Game      game.Game
	Teams     []team.Team
	Statlines []ResolvedStatline
}

type ResolvedStatline struct {
	Player player.Player
	Line   statline.Statline
}

// rosterEntry is what a statline needs from the stage roster: the stable
// profile id and the persisted display name.
type rosterEntry struct {
	profileID string
	username  string
}

// buildRosterIndex maps in-game names to profile identities across every
// roster team. Statlines identify players only by in-game name and platform
// UUID, so this lookup is the only way to recover a stable id. Entries
// without a claimed username cannot be persisted and are left out.
func buildRosterIndex(roster []battlefy.RosterTeam) map[string]rosterEntry {
	index := make(map[string]rosterEntry)
	for _, rosterTeam := range roster {
		for _, rosterPlayer := range rosterTeam.Players {
			name := strings.TrimSpace(rosterPlayer.InGameName)
			if name == "" {
				continue
			}
			if _, ok := index[name]; ok {
				continue
			}
			if rosterPlayer.Username == nil || strings.TrimSpace(*rosterPlayer.Username) == "" {
				continue
			}
			index[name] = rosterEntry{
				profileID: rosterPlayer.ID,
				username:  strings.TrimSpace(*rosterPlayer.Username),
			}
		}
	}
	return index
}

// Resolve walks the fetched match details in their given order and produces
// deduplicated team/player registries plus the structured rows to persist.
// It is pure: no I/O, no shared state beyond its own return value.
func Resolve(tournamentID string, details []*battlefy.MatchDetail, roster []battlefy.RosterTeam) Resolution {
	res := Resolution{
		Teams:   NewTeamRegistry(),
		Players: NewPlayerRegistry(),
	}
	rosterIndex := buildRosterIndex(roster)

	for _, detail := range details {
		if detail == nil {
			continue
		}

		winner := detail.WinnerTeamID()
		resolved := ResolvedMatch{
			Match: match.Match{
				ID:           detail.ID,
				TournamentID: tournamentID,
				Team1:        detail.Top.TeamID,
				Team2:        detail.Bottom.TeamID,
				Team1Score:   detail.Top.Score,
				Team2Score:   detail.Bottom.Score,
				Winner:       winner,
			},
		}

		for _, gameStat := range detail.Stats {
			resolvedGame := resolveGame(&res, detail, gameStat, rosterIndex)
			resolved.Games = append(resolved.Games, resolvedGame)
		}

		res.Matches = append(res.Matches, resolved)
	}

	return res
}

func resolveGame(
	res *Resolution,
	detail *battlefy.MatchDetail,
	gameStat battlefy.GameStat,
	rosterIndex map[string]rosterEntry,
) ResolvedGame {
	stats := gameStat.Stats

	// The per-game winner flag is positional; map it back through the
	// match sides the same way the series winner is derived.
	gameWinner := detail.Bottom.TeamID
	if stats.Top.Winner {
		gameWinner = detail.Top.TeamID
	}

	out := ResolvedGame{
		Game: game.Game{
			ID:             gameStat.GameID,
			MatchID:        gameStat.MatchID,
			Team1:          detail.Top.TeamID,
			Team2:          detail.Bottom.TeamID,
			Team1Score:     stats.Top.Score,
			Team2Score:     stats.Bottom.Score,
			Winner:         gameWinner,
			MapName:        stats.MapName,
			MapSlug:        stats.MapSlug,
			DurationMillis: stats.GameLengthMillis,
			PlantsA:        stats.TotalPlants.A,
			PlantsB:        stats.TotalPlants.B,
			PlantsC:        stats.TotalPlants.C,
			DefusesA:       stats.TotalDefuses.A,
			DefusesB:       stats.TotalDefuses.B,
			DefusesC:       stats.TotalDefuses.C,
		},
	}

	for _, teamStats := range stats.Teams {
		canonical := res.Teams.Add(team.Team{
			ID:   teamStats.BattlefyTeamID,
			Name: teamStats.Name,
		})
		out.Teams = append(out.Teams, canonical)

		for _, playerStats := range teamStats.Players {
			entry, ok := rosterIndex[strings.TrimSpace(playerStats.InGameName)]
			if !ok {
				res.Warnings = append(res.Warnings, ResolutionWarning{
					MatchID:    detail.ID,
					GameID:     gameStat.GameID,
					PUUID:      playerStats.PUUID,
					InGameName: playerStats.InGameName,
					Reason:     "no roster entry matches in-game name",
				})
				continue
			}

			canonicalPlayer := res.Players.Add(playerStats.PUUID, player.Player{
				ID:           entry.profileID,
				Name:         entry.username,
				LinkedUserID: playerStats.PUUID,
			})

			out.Statlines = append(out.Statlines, ResolvedStatline{
				Player: canonicalPlayer,
				Line: statline.Statline{
					GameID:             gameStat.GameID,
					PlayerID:           canonicalPlayer.ID,
					TeamID:             teamStats.BattlefyTeamID,
					Kills:              playerStats.Kills,
					Deaths:             playerStats.Deaths,
					Assists:            playerStats.Assists,
					KDA:                playerStats.KDA,
					HeadshotPercentage: playerStats.HeadshotPercent,
				},
			})
		}
	}

	return out
}
