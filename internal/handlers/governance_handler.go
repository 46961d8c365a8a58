package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/governance"
	"github.com/agentgov/backend/internal/middleware"
	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/orchestrator"
)

// TriggerRouter abstracts the trigger interceptor for the handler.
type TriggerRouter interface {
	Route(ctx context.Context, trigger models.TriggerContext) (models.RoutingDecision, error)
}

// Orchestrator is the subset of meta-agent operations exposed over HTTP.
type Orchestrator interface {
	ProposeTrainingScenario(ctx context.Context, studentAgentID uuid.UUID, blockedTask models.TriggerContext) (*orchestrator.TrainingProposal, error)
	ReviewInternProposal(ctx context.Context, proposal orchestrator.ActionProposal) (*orchestrator.ProposalReview, error)
}

// GovernanceHandler serves permission checks, trigger intake, and meta-agent
// review endpoints.
type GovernanceHandler struct {
	Gov          *governance.Service
	Interceptor  TriggerRouter
	Orchestrator Orchestrator
	Logger       *slog.Logger
}

// --- GET /v1/agents/{id}/permissions/{action} ---

func (h *GovernanceHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return
	}
	actionType := r.PathValue("action")
	if actionType == "" {
		http.Error(w, `{"error":"action type is required"}`, http.StatusBadRequest)
		return
	}
	decision := h.Gov.CanPerformAction(r.Context(), agentID, actionType)
	writeJSON(w, http.StatusOK, decision)
}

// --- POST /v1/agents/{id}/enforce ---

type enforceRequest struct {
	ActionType string          `json:"action_type"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (h *GovernanceHandler) EnforceAction(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return
	}
	var req enforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActionType == "" {
		http.Error(w, `{"error":"action_type is required"}`, http.StatusBadRequest)
		return
	}
	enforcement := h.Gov.EnforceAction(r.Context(), agentID, req.ActionType)
	writeJSON(w, http.StatusOK, enforcement)
}

// --- GET /v1/agents/{id}/capabilities ---

func (h *GovernanceHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Gov.AgentCapabilities(r.Context(), agentID))
}

// --- POST /v1/triggers ---

func (h *GovernanceHandler) IntakeTrigger(w http.ResponseWriter, r *http.Request) {
	var trigger models.TriggerContext
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if trigger.TriggerType == "" || trigger.AgentID == uuid.Nil {
		http.Error(w, `{"error":"trigger_type and agent_id are required"}`, http.StatusBadRequest)
		return
	}
	if trigger.Source == "" {
		trigger.Source = models.TriggerSourceManual
	}

	decision, err := h.Interceptor.Route(r.Context(), trigger)
	if err != nil {
		h.Logger.Error("trigger routing failed", "error", err, "agent_id", trigger.AgentID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	// Student-routed triggers come back with a generated training plan so
	// the caller can surface it to a supervisor immediately.
	if decision.Route == models.RouteTraining && decision.AgentMaturity == models.MaturityStudent {
		proposal, err := h.Orchestrator.ProposeTrainingScenario(r.Context(), trigger.AgentID, trigger)
		if err != nil && !errors.Is(err, orchestrator.ErrAgentNotFound) {
			h.Logger.Error("training proposal failed", "error", err, "agent_id", trigger.AgentID)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"decision": decision, "training_proposal": proposal})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decision": decision})
}

// --- POST /v1/proposals/review ---

func (h *GovernanceHandler) ReviewProposal(w http.ResponseWriter, r *http.Request) {
	var proposal orchestrator.ActionProposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if proposal.AgentID == uuid.Nil || proposal.ActionType == "" {
		http.Error(w, `{"error":"agent_id and action_type are required"}`, http.StatusBadRequest)
		return
	}
	review, err := h.Orchestrator.ReviewInternProposal(r.Context(), proposal)
	if err != nil {
		if errors.Is(err, orchestrator.ErrAgentNotFound) {
			http.Error(w, `{"error":"agent not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("proposal review failed", "error", err, "agent_id", proposal.AgentID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// requireAccount pulls the authenticated account from the request context.
func requireAccount(w http.ResponseWriter, r *http.Request) *models.Account {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil
	}
	return acc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
