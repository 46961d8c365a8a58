package governance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/models"
)

// Enforcement statuses.
const (
	StatusApproved        = "APPROVED"
	StatusBlocked         = "BLOCKED"
	StatusPendingApproval = "PENDING_APPROVAL"
)

// Decision is the single internal representation of a permission check.
// Wrappers decide whether to surface a denied decision as a return value or
// an error; the business logic lives only here.
type Decision struct {
	Allowed          bool   `json:"allowed"`
	AgentStatus      string `json:"agent_status"`
	ActionComplexity int    `json:"action_complexity"`
	Reason           string `json:"reason"`
	Status           string `json:"status,omitempty"`
}

// Enforcement is the result of EnforceAction.
type Enforcement struct {
	Proceed bool   `json:"proceed"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}

// Capabilities enumerates what an agent may do at its current maturity.
type Capabilities struct {
	MaturityLevel  string   `json:"maturity_level"`
	MaxComplexity  int      `json:"max_complexity"`
	AllowedActions []string `json:"allowed_actions"`
}

// AgentLookup is the minimal agent repository interface for governance checks.
type AgentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// Service answers "may agent X perform action Y". Decisions are written
// through the cache; an unknown agent yields a denied decision (fail closed),
// never an error, so callers branch on the result without special-casing.
type Service struct {
	agents     AgentLookup
	classifier *Classifier
	cache      *Cache
	log        *slog.Logger
}

// NewService returns a governance service.
func NewService(agents AgentLookup, classifier *Classifier, cache *Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{agents: agents, classifier: classifier, cache: cache, log: log}
}

// Cache exposes the decision cache so promotion logic can invalidate it.
func (s *Service) Cache() *Cache { return s.cache }

// CanPerformAction decides whether the agent may perform the action type.
// STUDENT agents are limited to complexity 1, INTERN to 2, SUPERVISED to 3;
// AUTONOMOUS agents may perform any action.
func (s *Service) CanPerformAction(ctx context.Context, agentID uuid.UUID, actionType string) Decision {
	if d, ok := s.cache.Get(agentID, actionType); ok {
		return d
	}

	d := s.decide(ctx, agentID, actionType)
	s.cache.Put(agentID, actionType, d)
	return d
}

func (s *Service) decide(ctx context.Context, agentID uuid.UUID, actionType string) Decision {
	complexity, err := s.classifier.Complexity(actionType)
	if err != nil {
		return Decision{
			Allowed: false,
			Reason:  err.Error(),
			Status:  StatusBlocked,
		}
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil || agent == nil {
		s.log.Warn("permission check for unknown agent", "agent_id", agentID, "action_type", actionType)
		return Decision{
			Allowed:          false,
			ActionComplexity: complexity,
			Reason:           "agent not found",
			Status:           StatusBlocked,
		}
	}

	ceiling := models.MaxComplexity(agent.Status)
	if complexity <= ceiling {
		return Decision{
			Allowed:          true,
			AgentStatus:      agent.Status,
			ActionComplexity: complexity,
			Reason:           fmt.Sprintf("%s agents may perform complexity-%d actions", agent.Status, complexity),
			Status:           StatusApproved,
		}
	}
	return Decision{
		Allowed:          false,
		AgentStatus:      agent.Status,
		ActionComplexity: complexity,
		Reason: fmt.Sprintf("complexity %d exceeds ceiling %d for %s agents",
			complexity, ceiling, agent.Status),
		Status: StatusBlocked,
	}
}

// EnforceAction wraps CanPerformAction with the human-in-the-loop policy:
// within ceiling -> APPROVED; above ceiling -> PENDING_APPROVAL for INTERN
// and SUPERVISED agents, hard BLOCKED for STUDENT agents (students are
// read-only by design) and for unknown agents.
func (s *Service) EnforceAction(ctx context.Context, agentID uuid.UUID, actionType string) Enforcement {
	d := s.CanPerformAction(ctx, agentID, actionType)
	if d.Allowed {
		return Enforcement{Proceed: true, Status: StatusApproved, Reason: d.Reason}
	}
	switch d.AgentStatus {
	case models.MaturityIntern, models.MaturitySupervised:
		return Enforcement{Proceed: false, Status: StatusPendingApproval, Reason: d.Reason}
	}
	return Enforcement{Proceed: false, Status: StatusBlocked, Reason: d.Reason}
}

// AgentCapabilities enumerates every table action within the agent's ceiling.
// Unknown agents get an empty capability set.
func (s *Service) AgentCapabilities(ctx context.Context, agentID uuid.UUID) Capabilities {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil || agent == nil {
		return Capabilities{}
	}
	max := models.MaxComplexity(agent.Status)
	return Capabilities{
		MaturityLevel:  agent.Status,
		MaxComplexity:  max,
		AllowedActions: s.classifier.ActionsUpTo(max),
	}
}
