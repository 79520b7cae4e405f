package battlefy

import (
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrSchema marks payloads that parsed as JSON but violate the expected
// shape. Callers decide whether the violation is fatal for the whole run
// or only for the entity being fetched.
var ErrSchema = crerr.New("battlefy schema mismatch")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Side is the in-game side label. The provider only ever emits these two.
type Side string

const (
	SideBlue Side = "Blue"
	SideRed  Side = "Red"
)

// Timestamp accepts the handful of ISO-8601 variants the provider emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	var value string
	if err := sonic.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", value)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return sonic.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// SiteCounts carries the optional per-site plant/defuse counters. Sites
// missing from the payload stay nil.
type SiteCounts struct {
	A *int `json:"A"`
	B *int `json:"B"`
	C *int `json:"C"`
}

// Bracket is the stage document returned by GET /stages/{stageID}.
type Bracket struct {
	ID         string     `json:"_id" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	StartTime  Timestamp  `json:"startTime"`
	HasStarted bool       `json:"hasStarted"`
	TeamIDs    []string   `json:"teamIDs"`
	CreatedAt  Timestamp  `json:"createdAt"`
	UpdatedAt  Timestamp  `json:"updatedAt"`
	StartedAt  *Timestamp `json:"startedAt"`
}

// MatchSummary is one entry of GET /stages/{stageID}/matches. Sides can be
// entirely unresolved here (byes, not-yet-seeded matches), so everything
// beyond the winner flags is optional.
type MatchSummary struct {
	ID          string      `json:"_id" validate:"required"`
	Top         SummarySide `json:"top"`
	Bottom      SummarySide `json:"bottom"`
	MatchType   string      `json:"matchType"`
	MatchNumber int         `json:"matchNumber"`
	RoundNumber int         `json:"roundNumber"`
	IsBye       bool        `json:"isBye"`
	DoubleLoss  bool        `json:"doubleLoss"`
	StageID     string      `json:"stageID" validate:"required"`
	IsComplete  bool        `json:"isComplete"`
	CompletedAt *Timestamp  `json:"completedAt"`
}

type SummarySide struct {
	Winner       bool       `json:"winner"`
	Disqualified bool       `json:"disqualified"`
	SeedNumber   *int       `json:"seedNumber"`
	TeamID       *string    `json:"teamID"`
	ReadyAt      *Timestamp `json:"readyAt"`
	Score        *int       `json:"score"`
}

// MatchDetail is the full series document from
// GET /stages/{stageID}/matches/{matchID}, including per-game stats.
type MatchDetail struct {
	ID          string     `json:"_id" validate:"required"`
	Top         MatchSide  `json:"top" validate:"required"`
	Bottom      MatchSide  `json:"bottom" validate:"required"`
	MatchType   string     `json:"matchType"`
	MatchNumber int        `json:"matchNumber"`
	RoundNumber int        `json:"roundNumber"`
	IsBye       bool       `json:"isBye"`
	DoubleLoss  bool       `json:"doubleLoss"`
	StageID     string     `json:"stageID" validate:"required"`
	Stats       []GameStat `json:"stats" validate:"dive"`
	IsComplete  bool       `json:"isComplete"`
	CompletedAt *Timestamp `json:"completedAt"`
	CreatedAt   Timestamp  `json:"createdAt"`
	UpdatedAt   Timestamp  `json:"updatedAt"`
}

type MatchSide struct {
	Winner       bool      `json:"winner"`
	Disqualified bool      `json:"disqualified"`
	SeedNumber   int       `json:"seedNumber"`
	ReadyAt      Timestamp `json:"readyAt"`
	Score        int       `json:"score"`
	TeamID       string    `json:"teamID" validate:"required"`
}

// WinnerTeamID resolves the series winner. The provider flags exactly one
// side as winner on completed matches.
func (m *MatchDetail) WinnerTeamID() string {
	if m.Top.Winner {
		return m.Top.TeamID
	}
	return m.Bottom.TeamID
}

// GameStat is one played game inside a series.
type GameStat struct {
	MatchID      string    `json:"matchID" validate:"required"`
	GameID       string    `json:"gameID" validate:"required"`
	TournamentID string    `json:"tournamentID"`
	StageID      string    `json:"stageID"`
	GameNumber   int       `json:"gameNumber"`
	Stats        GameStats `json:"stats" validate:"required"`
	CreatedAt    Timestamp `json:"createdAt"`
}

type GameStats struct {
	IsComplete       bool            `json:"isComplete"`
	Top              SideScore       `json:"top"`
	Bottom           SideScore       `json:"bottom"`
	SidesByPosition  SidesByPosition `json:"valorantTeamIDsByPosition"`
	ProviderMatchID  string          `json:"valorantMatchID"`
	Teams            []TeamStats     `json:"teams" validate:"required,min=1,dive"`
	GameStartMillis  int64           `json:"gameStartMillis"`
	GameLengthMillis int64           `json:"gameLengthMillis"`
	GameID           string          `json:"gameId"`
	MapName          string          `json:"mapName"`
	MapSlug          string          `json:"mapSlug"`
	TotalPlants      SiteCounts      `json:"totalBombPlantsPerSite"`
	TotalDefuses     SiteCounts      `json:"totalBombDefusesPerSite"`
}

type SideScore struct {
	Score  int  `json:"score"`
	Winner bool `json:"winner"`
}

type SidesByPosition struct {
	Top    Side `json:"top" validate:"omitempty,oneof=Blue Red"`
	Bottom Side `json:"bottom" validate:"omitempty,oneof=Blue Red"`
}

// TeamStats is one team's aggregate line within a single game.
type TeamStats struct {
	IsWinner         bool          `json:"isWinner"`
	Side             Side          `json:"teamId" validate:"required,oneof=Blue Red"`
	BattlefyTeamID   string        `json:"battlefyTeamID" validate:"required"`
	Name             string        `json:"name" validate:"required"`
	Players          []PlayerStats `json:"players" validate:"required,dive"`
	PostPlantWins    SiteCounts    `json:"teamPostPlantWinsPerSite"`
	Plants           SiteCounts    `json:"teamBombPlantsPerSite"`
	Defuses          SiteCounts    `json:"teamBombDefusesPerSite"`
	Kills            int           `json:"teamKills"`
	Assists          int           `json:"teamAssists"`
	Deaths           int           `json:"teamDeaths"`
	Damage           int           `json:"teamDamage"`
	KDA              float64       `json:"teamKda"`
}

// PlayerStats is one player's line within a single game. Players are only
// identified here by puuid and in-game name; the stable profile id comes
// from the stage roster.
type PlayerStats struct {
	CharacterID     string     `json:"characterId"`
	Character       string     `json:"character"`
	PUUID           string     `json:"puuid" validate:"required"`
	Kills           int        `json:"kills"`
	Deaths          int        `json:"deaths"`
	Assists         int        `json:"assists"`
	Rounds          int        `json:"rounds"`
	KDA             float64    `json:"kda"`
	Plants          SiteCounts `json:"bombPlantsPerSite"`
	Defuses         SiteCounts `json:"bombDefusesPerSite"`
	TotalDamage     int        `json:"totalDamage"`
	Side            Side       `json:"teamId" validate:"required,oneof=Blue Red"`
	Headshots       int        `json:"headshots"`
	Bodyshots       int        `json:"bodyshots"`
	Legshots        int        `json:"legshots"`
	TotalHits       int        `json:"totalHits"`
	HeadshotPercent float64    `json:"headshotPercent"`
	InGameName      string     `json:"inGameName" validate:"required"`
}

// RosterTeam is one entry of GET /stages/{stageID}/teams.
type RosterTeam struct {
	ID               string         `json:"_id" validate:"required"`
	Name             string         `json:"name" validate:"required"`
	PendingTeamID    string         `json:"pendingTeamID"`
	PersistentTeamID string         `json:"persistentTeamID"`
	TournamentID     string         `json:"tournamentID"`
	OwnerID          string         `json:"ownerID"`
	CreatedAt        Timestamp      `json:"createdAt"`
	PlayerIDs        []string       `json:"playerIDs"`
	CaptainID        string         `json:"captainID"`
	Captain          *RosterPlayer  `json:"captain"`
	Players          []RosterPlayer `json:"players" validate:"dive"`
	CheckedInAt      *Timestamp     `json:"checkedInAt"`
}

// RosterPlayer is a registered participant. Username is what gets persisted
// as the player's display name; it is missing for unclaimed accounts.
type RosterPlayer struct {
	ID                 string  `json:"_id" validate:"required"`
	OnTeam             bool    `json:"onTeam"`
	IsFreeAgent        bool    `json:"isFreeAgent"`
	IsCaptain          bool    `json:"beCaptain"`
	InGameName         string  `json:"inGameName" validate:"required"`
	PersistentPlayerID *string `json:"persistentPlayerID"`
	UserID             *string `json:"userID"`
	OwnerID            string  `json:"ownerID"`
	TournamentID       string  `json:"tournamentID"`
	UserSlug           *string `json:"userSlug"`
	Username           *string `json:"username"`
	AvatarURL          *string `json:"avatarUrl"`
}

// ParseBracket decodes and validates a stage document.
func ParseBracket(data []byte) (*Bracket, error) {
	var out Bracket
	if err := decodeStrict(data, &out, "bracket"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseMatchList decodes and validates the ordered match list. Order is
// preserved exactly as returned by the provider.
func ParseMatchList(data []byte) ([]MatchSummary, error) {
	var out []MatchSummary
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, crerr.Wrapf(ErrSchema, "decode match list: %v", err)
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, crerr.Wrapf(ErrSchema, "match list entry %d: %v", i, firstViolation(err))
		}
	}
	return out, nil
}

// ParseMatchDetail decodes and validates a series document.
func ParseMatchDetail(data []byte) (*MatchDetail, error) {
	var out MatchDetail
	if err := decodeStrict(data, &out, "match detail"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseTeamList decodes and validates the stage roster.
func ParseTeamList(data []byte) ([]RosterTeam, error) {
	var out []RosterTeam
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, crerr.Wrapf(ErrSchema, "decode team list: %v", err)
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, crerr.Wrapf(ErrSchema, "team list entry %d: %v", i, firstViolation(err))
		}
	}
	return out, nil
}

func decodeStrict(data []byte, target any, shape string) error {
	if err := sonic.Unmarshal(data, target); err != nil {
		return crerr.Wrapf(ErrSchema, "decode %s: %v", shape, err)
	}
	if err := validate.Struct(target); err != nil {
		return crerr.Wrapf(ErrSchema, "%s: %v", shape, firstViolation(err))
	}
	return nil
}

// firstViolation reduces validator output to the first failed field so the
// diagnostic points at one concrete structural violation.
func firstViolation(err error) string {
	var violations validator.ValidationErrors
	if crerr.As(err, &violations) && len(violations) > 0 {
		v := violations[0]
		return fmt.Sprintf("field %s failed %q validation", v.Namespace(), v.Tag())
	}
	return err.Error()
}
