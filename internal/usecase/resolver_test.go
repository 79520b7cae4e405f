package usecase

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/frostleaf/frost-leaderboard/external/battlefy"
)

func strptr(s string) *string { return &s }

func testRoster() []battlefy.RosterTeam {
	return []battlefy.RosterTeam{
		{
			ID:   "roster-team-a",
			Name: "Team Alpha",
			Players: []battlefy.RosterPlayer{
				{ID: "profile-alpha", InGameName: "alpha#NA1", Username: strptr("Alpha")},
				{ID: "profile-unclaimed", InGameName: "ghost#NA1", Username: nil},
			},
		},
		{
			ID:   "roster-team-b",
			Name: "Team Bravo",
			Players: []battlefy.RosterPlayer{
				{ID: "profile-bravo", InGameName: "bravo#NA1", Username: strptr("Bravo")},
			},
		},
	}
}

func testMatchDetail() *battlefy.MatchDetail {
	return &battlefy.MatchDetail{
		ID:      "match-1",
		StageID: "stage-1",
		Top:     battlefy.MatchSide{TeamID: "team-a", Score: 2, Winner: true},
		Bottom:  battlefy.MatchSide{TeamID: "team-b", Score: 1},
		Stats: []battlefy.GameStat{
			{
				MatchID: "match-1",
				GameID:  "game-1",
				Stats: battlefy.GameStats{
					Top:     battlefy.SideScore{Score: 13, Winner: true},
					Bottom:  battlefy.SideScore{Score: 7},
					MapName: "Ascent",
					MapSlug: "ascent",
					Teams: []battlefy.TeamStats{
						{
							Side:           battlefy.SideBlue,
							BattlefyTeamID: "team-a",
							Name:           "Team Alpha",
							Players: []battlefy.PlayerStats{
								{PUUID: "puuid-alpha", InGameName: "alpha#NA1", Kills: 20, Deaths: 10, Assists: 5, KDA: 2.5},
							},
						},
						{
							Side:           battlefy.SideRed,
							BattlefyTeamID: "team-b",
							Name:           "Team Bravo",
							Players: []battlefy.PlayerStats{
								{PUUID: "puuid-bravo", InGameName: "bravo#NA1", Kills: 12, Deaths: 14, Assists: 8, KDA: 1.43},
							},
						},
					},
				},
			},
			{
				MatchID: "match-1",
				GameID:  "game-2",
				Stats: battlefy.GameStats{
					Top:     battlefy.SideScore{Score: 9},
					Bottom:  battlefy.SideScore{Score: 13, Winner: true},
					MapName: "Bind",
					MapSlug: "bind",
					Teams: []battlefy.TeamStats{
						{
							Side:           battlefy.SideRed,
							BattlefyTeamID: "team-a",
							Name:           "Team Alpha",
							Players: []battlefy.PlayerStats{
								{PUUID: "puuid-alpha", InGameName: "alpha#NA1", Kills: 11, Deaths: 13, Assists: 2, KDA: 1.0},
							},
						},
						{
							Side:           battlefy.SideBlue,
							BattlefyTeamID: "team-b",
							Name:           "Team Bravo",
							Players: []battlefy.PlayerStats{
								{PUUID: "puuid-bravo", InGameName: "bravo#NA1", Kills: 16, Deaths: 9, Assists: 4, KDA: 2.2},
							},
						},
					},
				},
			},
		},
	}
}

func TestResolve_DeduplicatesTeamsAndPlayersAcrossGames(t *testing.T) {
	t.Parallel()

	res := Resolve("tour-1", []*battlefy.MatchDetail{testMatchDetail()}, testRoster())

	if res.Teams.Len() != 2 {
		t.Fatalf("unexpected team count: got=%d want=2", res.Teams.Len())
	}
	if res.Players.Len() != 2 {
		t.Fatalf("unexpected player count: got=%d want=2", res.Players.Len())
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
	if len(res.Matches) != 1 || len(res.Matches[0].Games) != 2 {
		t.Fatalf("unexpected resolved shape: matches=%d", len(res.Matches))
	}

	alpha, ok := res.Players.Get("puuid-alpha")
	if !ok {
		t.Fatalf("expected puuid-alpha to resolve")
	}
	if alpha.ID != "profile-alpha" || alpha.Name != "Alpha" {
		t.Fatalf("unexpected resolved player: %+v", alpha)
	}
}

func TestResolve_MatchAndGameWinners(t *testing.T) {
	t.Parallel()

	res := Resolve("tour-1", []*battlefy.MatchDetail{testMatchDetail()}, testRoster())

	m := res.Matches[0].Match
	if m.Winner != "team-a" {
		t.Fatalf("unexpected series winner: %s", m.Winner)
	}
	if m.Team1 != "team-a" || m.Team2 != "team-b" {
		t.Fatalf("unexpected sides: team1=%s team2=%s", m.Team1, m.Team2)
	}
	if m.Team1Score != 2 || m.Team2Score != 1 {
		t.Fatalf("unexpected scores: %d-%d", m.Team1Score, m.Team2Score)
	}

	// Game one is won by the top side, game two by the bottom side.
	if got := res.Matches[0].Games[0].Game.Winner; got != "team-a" {
		t.Fatalf("unexpected game 1 winner: %s", got)
	}
	if got := res.Matches[0].Games[1].Game.Winner; got != "team-b" {
		t.Fatalf("unexpected game 2 winner: %s", got)
	}
}

func TestResolve_DropsStatlineWithoutRosterEntry(t *testing.T) {
	t.Parallel()

	detail := testMatchDetail()
	detail.Stats = detail.Stats[:1]
	detail.Stats[0].Stats.Teams[0].Players = append(detail.Stats[0].Stats.Teams[0].Players, battlefy.PlayerStats{
		PUUID:      "puuid-sub",
		InGameName: "stand-in#NA1",
		Kills:      3,
	})

	res := Resolve("tour-1", []*battlefy.MatchDetail{detail}, testRoster())

	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(res.Warnings))
	}
	w := res.Warnings[0]
	if w.MatchID != "match-1" || w.GameID != "game-1" || w.PUUID != "puuid-sub" {
		t.Fatalf("unexpected warning: %+v", w)
	}

	// The dropped line must not take the rest of the game with it.
	if got := len(res.Matches[0].Games[0].Statlines); got != 2 {
		t.Fatalf("unexpected statline count: got=%d want=2", got)
	}
	if res.Players.Len() != 2 {
		t.Fatalf("dropped player must not enter the registry, got %d", res.Players.Len())
	}
}

func TestResolve_UnclaimedRosterEntryCannotResolve(t *testing.T) {
	t.Parallel()

	detail := testMatchDetail()
	detail.Stats = detail.Stats[:1]
	detail.Stats[0].Stats.Teams[0].Players = []battlefy.PlayerStats{
		{PUUID: "puuid-ghost", InGameName: "ghost#NA1", Kills: 7},
	}

	res := Resolve("tour-1", []*battlefy.MatchDetail{detail}, testRoster())

	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning for unclaimed roster entry, got %d", len(res.Warnings))
	}
	if res.Warnings[0].InGameName != "ghost#NA1" {
		t.Fatalf("unexpected warning: %+v", res.Warnings[0])
	}
}

func TestResolve_WinnerIsAlwaysOneOfTheSides(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 250; i++ {
		topWins := rng.Intn(2) == 0
		detail := &battlefy.MatchDetail{
			ID:      fmt.Sprintf("match-%d", i),
			StageID: "stage-1",
			Top:     battlefy.MatchSide{TeamID: "team-top", Score: rng.Intn(4), Winner: topWins},
			Bottom:  battlefy.MatchSide{TeamID: "team-bottom", Score: rng.Intn(4), Winner: !topWins},
		}
		for g := 0; g < 1+rng.Intn(3); g++ {
			gameTopWins := rng.Intn(2) == 0
			detail.Stats = append(detail.Stats, battlefy.GameStat{
				MatchID: detail.ID,
				GameID:  fmt.Sprintf("%s-game-%d", detail.ID, g),
				Stats: battlefy.GameStats{
					Top:    battlefy.SideScore{Score: rng.Intn(14), Winner: gameTopWins},
					Bottom: battlefy.SideScore{Score: rng.Intn(14), Winner: !gameTopWins},
				},
			})
		}

		res := Resolve("tour-1", []*battlefy.MatchDetail{detail}, nil)

		m := res.Matches[0].Match
		if m.Winner != m.Team1 && m.Winner != m.Team2 {
			t.Fatalf("series winner %q is neither side in %s", m.Winner, detail.ID)
		}
		wantSeries := "team-bottom"
		if topWins {
			wantSeries = "team-top"
		}
		if m.Winner != wantSeries {
			t.Fatalf("series winner %q, want %q in %s", m.Winner, wantSeries, detail.ID)
		}

		for gi, resolvedGame := range res.Matches[0].Games {
			g := resolvedGame.Game
			if g.Winner != g.Team1 && g.Winner != g.Team2 {
				t.Fatalf("game winner %q is neither side in %s", g.Winner, g.ID)
			}
			wantGame := "team-bottom"
			if detail.Stats[gi].Stats.Top.Winner {
				wantGame = "team-top"
			}
			if g.Winner != wantGame {
				t.Fatalf("game winner %q, want %q in %s", g.Winner, wantGame, g.ID)
			}
		}
	}
}

func TestResolve_FirstTeamOccurrenceWins(t *testing.T) {
	t.Parallel()

	detail := testMatchDetail()
	detail.Stats[1].Stats.Teams[0].Name = "Team Alpha Renamed"

	res := Resolve("tour-1", []*battlefy.MatchDetail{detail}, testRoster())

	teamA, ok := res.Teams.Get("team-a")
	if !ok {
		t.Fatalf("expected team-a in registry")
	}
	if teamA.Name != "Team Alpha" {
		t.Fatalf("expected first occurrence to win, got %q", teamA.Name)
	}
}
