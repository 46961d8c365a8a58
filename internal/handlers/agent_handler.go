package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/orchestrator"
	"github.com/agentgov/backend/internal/registry"
	"github.com/agentgov/backend/internal/repository"
)

// TrainingRunner starts a persisted training session from a proposal.
type TrainingRunner interface {
	ConductTrainingSession(ctx context.Context, proposal *orchestrator.TrainingProposal, supervisorID uuid.UUID) (*orchestrator.TrainingResult, error)
}

// AccountLookup verifies that a supervisor account exists before a training
// session is started under its id.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// AgentHandler serves agent registration, listing, and maturity changes.
type AgentHandler struct {
	Registry registry.Service
	Training TrainingRunner
	Accounts AccountLookup
	Logger   *slog.Logger
}

type registerAgentRequest struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// --- POST /v1/agents ---

func (h *AgentHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	acc := requireAccount(w, r)
	if acc == nil {
		return
	}
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Category == "" {
		http.Error(w, `{"error":"name and category are required"}`, http.StatusBadRequest)
		return
	}
	agent, err := h.Registry.RegisterAgent(r.Context(), acc.WorkspaceID, req.Name, req.Category, req.Capabilities)
	if err != nil {
		h.Logger.Error("agent registration failed", "error", err, "name", req.Name)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

// --- GET /v1/agents ---

func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	acc := requireAccount(w, r)
	if acc == nil {
		return
	}
	agents, err := h.Registry.ListAgents(r.Context(), acc.WorkspaceID)
	if err != nil {
		h.Logger.Error("list agents failed", "error", err, "workspace_id", acc.WorkspaceID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

type setMaturityRequest struct {
	Status          string  `json:"status"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// --- PATCH /v1/agents/{id}/maturity ---

func (h *AgentHandler) SetMaturity(w http.ResponseWriter, r *http.Request) {
	if requireAccount(w, r) == nil {
		return
	}
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return
	}
	var req setMaturityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, `{"error":"status is required"}`, http.StatusBadRequest)
		return
	}
	agent, err := h.Registry.SetMaturity(r.Context(), agentID, req.Status, req.ConfidenceScore)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrInvalidMaturity), errors.Is(err, registry.ErrConfidenceOutOfBand):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, `{"error":"agent not found"}`, http.StatusNotFound)
		default:
			h.Logger.Error("maturity update failed", "error", err, "agent_id", agentID)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type startTrainingRequest struct {
	SupervisorID uuid.UUID                      `json:"supervisor_id"`
	Proposal     *orchestrator.TrainingProposal `json:"proposal"`
}

// --- POST /v1/training/sessions ---

func (h *AgentHandler) StartTrainingSession(w http.ResponseWriter, r *http.Request) {
	if requireAccount(w, r) == nil {
		return
	}
	var req startTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Proposal == nil || req.SupervisorID == uuid.Nil {
		http.Error(w, `{"error":"proposal and supervisor_id are required"}`, http.StatusBadRequest)
		return
	}
	if _, err := h.Accounts.GetByID(r.Context(), req.SupervisorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, `{"error":"supervisor account not found"}`, http.StatusBadRequest)
			return
		}
		h.Logger.Error("supervisor lookup failed", "error", err, "supervisor_id", req.SupervisorID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	result, err := h.Training.ConductTrainingSession(r.Context(), req.Proposal, req.SupervisorID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrSessionNotFound) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("training session start failed", "error", err, "agent_id", req.Proposal.AgentID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
