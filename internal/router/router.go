package router

import (
	"net/http"

	"github.com/agentgov/backend/internal/auth"
)

// New returns an http.Handler that serves the account API under /api/v1.
// Agent-facing endpoints live under /v1 and are registered separately with
// API key auth.
func New(authHandler *auth.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc(base+"/auth/register", authHandler.Register)
	mux.HandleFunc(base+"/auth/login", authHandler.Login)
	return mux
}
