package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/frostleaf/frost-leaderboard/internal/domain/match"
	"github.com/frostleaf/frost-leaderboard/internal/domain/tournament"
	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
	"github.com/frostleaf/frost-leaderboard/internal/usecase"
)

type Handler struct {
	ingestionService *usecase.IngestionService
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(ingestionService *usecase.IngestionService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		ingestionService: ingestionService,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) IngestStage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestStage")
	defer span.End()

	var req ingestStageRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.ingestionService.IngestStage(ctx, req.StageID)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest stage failed", "stage_id", req.StageID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func (h *Handler) IngestStagesBulk(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestStagesBulk")
	defer span.End()

	var req ingestBulkRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.ingestionService.IngestStages(ctx, req.StageIDs)
	if err != nil {
		h.logger.WarnContext(ctx, "bulk ingest failed", "stage_count", len(req.StageIDs), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTournament")
	defer span.End()

	tournamentID := strings.TrimSpace(r.PathValue("tournamentID"))
	item, err := h.ingestionService.GetTournament(ctx, tournamentID)
	if err != nil {
		h.logger.WarnContext(ctx, "get tournament failed", "tournament_id", tournamentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, tournamentToDTO(item))
}

func (h *Handler) GetTournamentMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTournamentMatches")
	defer span.End()

	tournamentID := strings.TrimSpace(r.PathValue("tournamentID"))
	items, err := h.ingestionService.ListTournamentMatches(ctx, tournamentID)
	if err != nil {
		h.logger.WarnContext(ctx, "list tournament matches failed", "tournament_id", tournamentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]matchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, matchToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

// RunCompletedHook receives the queue callback published at the end of an
// ingestion run. The report was already persisted via logs, so the hook
// only acknowledges delivery.
func (h *Handler) RunCompletedHook(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCompletedHook")
	defer span.End()

	var report usecase.RunReport
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	if err := decoder.Decode(&report); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}

	h.logger.InfoContext(ctx, "run completed hook received",
		"run_id", report.RunID,
		"stage_id", report.StageID,
		"state", report.State,
		"degraded", report.Degraded,
	)

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, payload any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type ingestStageRequest struct {
	StageID string `json:"stageId" validate:"required"`
}

type ingestBulkRequest struct {
	StageIDs []string `json:"stageIds" validate:"required,min=1,dive,required"`
}

type tournamentDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Teams        int    `json:"teams"`
	Players      int    `json:"players"`
	CreatedAtUTC string `json:"created_at_utc"`
}

func tournamentToDTO(v tournament.Tournament) tournamentDTO {
	return tournamentDTO{
		ID:           v.ID,
		Name:         v.Name,
		Teams:        v.TeamCount,
		Players:      v.PlayerCount,
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type matchDTO struct {
	ID         string `json:"id"`
	Team1      string `json:"team1"`
	Team2      string `json:"team2"`
	Team1Score int    `json:"team1Score"`
	Team2Score int    `json:"team2Score"`
	Winner     string `json:"winner"`
}

func matchToDTO(v match.Match) matchDTO {
	return matchDTO{
		ID:         v.ID,
		Team1:      v.Team1,
		Team2:      v.Team2,
		Team1Score: v.Team1Score,
		Team2Score: v.Team2Score,
		Winner:     v.Winner,
	}
}
