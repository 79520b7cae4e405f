package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/v1/tournaments/{tournamentID}", handler.GetTournament)
	mux.HandleFunc("GET /api/v1/tournaments/{tournamentID}/matches", handler.GetTournamentMatches)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /api/v1/ingest/runs", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestStage)))
	mux.Handle("POST /api/v1/ingest/bulk", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestStagesBulk)))
	mux.Handle("POST /api/v1/hooks/run-completed", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCompletedHook)))
}
