package main

import (
	"log/slog"
	"net/http"

	"github.com/agentgov/backend/internal/bus"
	"github.com/agentgov/backend/internal/handlers"
	"github.com/agentgov/backend/internal/middleware"
	"github.com/agentgov/backend/internal/repository"
)

// RegisterV1Routes adds the /v1/ agent API endpoints to the given mux.
// Middleware chain: APIKeyAuth -> handler. The websocket endpoint carries its
// own auth via the subscribe frame.
func RegisterV1Routes(
	mux *http.ServeMux,
	apiKeyRepo *repository.APIKeyRepo,
	gh *handlers.GovernanceHandler,
	sh *handlers.SocialHandler,
	ah *handlers.AgentHandler,
	eventBus bus.Bus,
	logger *slog.Logger,
) {
	auth := middleware.APIKeyAuth(apiKeyRepo)

	// Agent registry
	mux.Handle("POST /v1/agents", auth(http.HandlerFunc(ah.RegisterAgent)))
	mux.Handle("GET /v1/agents", auth(http.HandlerFunc(ah.ListAgents)))
	mux.Handle("PATCH /v1/agents/{id}/maturity", auth(http.HandlerFunc(ah.SetMaturity)))

	// Governance checks
	mux.Handle("GET /v1/agents/{id}/permissions/{action}", auth(http.HandlerFunc(gh.CheckPermission)))
	mux.Handle("POST /v1/agents/{id}/enforce", auth(http.HandlerFunc(gh.EnforceAction)))
	mux.Handle("GET /v1/agents/{id}/capabilities", auth(http.HandlerFunc(gh.GetCapabilities)))

	// Trigger intake and meta-agent review
	mux.Handle("POST /v1/triggers", auth(http.HandlerFunc(gh.IntakeTrigger)))
	mux.Handle("POST /v1/proposals/review", auth(http.HandlerFunc(gh.ReviewProposal)))
	mux.Handle("POST /v1/training/sessions", auth(http.HandlerFunc(ah.StartTrainingSession)))

	// Social layer
	mux.Handle("POST /v1/posts", auth(http.HandlerFunc(sh.CreatePost)))
	mux.Handle("GET /v1/posts", auth(http.HandlerFunc(sh.Feed)))

	// Live post stream
	mux.HandleFunc("GET /v1/events/ws", bus.HandleWebSocket(eventBus, logger))
}
