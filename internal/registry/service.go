package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/governance"
	"github.com/agentgov/backend/internal/models"
)

// ErrConfidenceOutOfBand is returned when a promotion's confidence score does
// not match the target maturity band (student <0.5, intern [0.5,0.7),
// supervised [0.7,0.9), autonomous >=0.9).
var ErrConfidenceOutOfBand = errors.New("confidence score outside the band for the target maturity")

// ErrInvalidMaturity is returned for an unknown maturity level.
var ErrInvalidMaturity = errors.New("invalid maturity level")

// AgentStore is the agent repository interface used by the registry.
type AgentStore interface {
	Create(ctx context.Context, ag *models.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	UpdateMaturity(ctx context.Context, id uuid.UUID, status string, confidence float64) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Agent, error)
}

type Service interface {
	RegisterAgent(ctx context.Context, workspaceID uuid.UUID, name, category string, capabilities []string) (*models.Agent, error)
	ListAgents(ctx context.Context, workspaceID uuid.UUID) ([]*models.Agent, error)
	SetMaturity(ctx context.Context, agentID uuid.UUID, status string, confidence float64) (*models.Agent, error)
}

type service struct {
	repo  AgentStore
	cache *governance.Cache
	log   *slog.Logger
}

// NewService returns the registry service. The governance cache is needed so
// maturity changes invalidate the agent's cached permission decisions.
func NewService(repo AgentStore, cache *governance.Cache, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, cache: cache, log: log}
}

var _ Service = (*service)(nil)

// normalizeCapabilities lowercases each capability so gap analysis is
// case-insensitive.
func normalizeCapabilities(capabilities []string) []string {
	out := make([]string, len(capabilities))
	for i, c := range capabilities {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// RegisterAgent creates an agent. New agents always start as students with
// zero confidence; maturity is earned through promotion.
func (s *service) RegisterAgent(ctx context.Context, workspaceID uuid.UUID, name, category string, capabilities []string) (*models.Agent, error) {
	ag := &models.Agent{
		ID:           uuid.New(),
		WorkspaceID:  workspaceID,
		Name:         name,
		Category:     category,
		Status:       models.MaturityStudent,
		Capabilities: normalizeCapabilities(capabilities),
	}
	if err := s.repo.Create(ctx, ag); err != nil {
		return nil, err
	}
	s.log.Info("agent registered", "agent_id", ag.ID, "name", ag.Name, "category", ag.Category)
	return ag, nil
}

func (s *service) ListAgents(ctx context.Context, workspaceID uuid.UUID) ([]*models.Agent, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

// SetMaturity promotes or demotes an agent. The confidence score must sit in
// the band for the target maturity. The cache is invalidated before the
// update lands so no stale decision is served after the change
// (invalidate-then-recompute, never compute-then-invalidate).
func (s *service) SetMaturity(ctx context.Context, agentID uuid.UUID, status string, confidence float64) (*models.Agent, error) {
	if !models.ValidMaturity(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMaturity, status)
	}
	if !models.ConfidenceInBand(status, confidence) {
		return nil, fmt.Errorf("%w: %s with confidence %.2f", ErrConfidenceOutOfBand, status, confidence)
	}

	s.cache.Invalidate(agentID)
	if err := s.repo.UpdateMaturity(ctx, agentID, status, confidence); err != nil {
		return nil, err
	}
	// A concurrent check may have re-cached the old maturity between the
	// first invalidation and the update; clear again now that the row is
	// written.
	s.cache.Invalidate(agentID)

	ag, err := s.repo.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	s.log.Info("agent maturity changed", "agent_id", agentID, "status", status, "confidence", confidence)
	return ag, nil
}
