package interceptor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/governance"
	"github.com/agentgov/backend/internal/models"
)

// Enqueuer hands an approved EXECUTION-routed trigger to the durable action
// queue. Nil when the deployment runs without a queue (tests, dry runs).
type Enqueuer interface {
	EnqueueAction(ctx context.Context, agentID uuid.UUID, triggerType string, payload []byte) error
}

// Interceptor routes inbound automation triggers by the owning agent's
// maturity. Stateless per call: nothing is carried between triggers.
type Interceptor struct {
	agents      governance.AgentLookup
	gov         *governance.Service
	queue       Enqueuer
	workspaceID uuid.UUID
	log         *slog.Logger
}

// New returns an interceptor bound to one workspace.
func New(agents governance.AgentLookup, gov *governance.Service, queue Enqueuer, workspaceID uuid.UUID, log *slog.Logger) *Interceptor {
	if log == nil {
		log = slog.Default()
	}
	return &Interceptor{agents: agents, gov: gov, queue: queue, workspaceID: workspaceID, log: log}
}

// Route maps the trigger to one of the four paths. Maturity routing and
// complexity gating are independent: an AUTONOMOUS agent still goes through
// EnforceAction before anything is enqueued.
//
//	student    -> TRAINING    (never executes; orchestrator builds a plan)
//	intern     -> PROPOSAL    (drafted, meta-agent review before side effects)
//	supervised -> SUPERVISION (proceeds with a supervisor attached)
//	autonomous -> EXECUTION   (proceeds, complexity-gated per call)
//
// A trigger for an unknown agent routes to TRAINING: fail closed, nothing
// executes, and the blocked context is available to the training path.
func (i *Interceptor) Route(ctx context.Context, trigger models.TriggerContext) (models.RoutingDecision, error) {
	agent, err := i.agents.GetByID(ctx, trigger.AgentID)
	if err != nil || agent == nil {
		i.log.Warn("trigger for unknown agent", "agent_id", trigger.AgentID, "trigger_type", trigger.TriggerType, "source", trigger.Source)
		return models.RoutingDecision{
			Route:   models.RouteTraining,
			AgentID: trigger.AgentID,
			Reason:  "agent not found; trigger blocked",
		}, nil
	}

	decision := models.RoutingDecision{
		AgentID:       agent.ID,
		AgentMaturity: agent.Status,
	}
	switch agent.Status {
	case models.MaturityStudent:
		decision.Route = models.RouteTraining
		decision.Reason = "student agents train instead of executing"
	case models.MaturityIntern:
		decision.Route = models.RouteProposal
		decision.Reason = "intern actions require meta-agent review"
	case models.MaturitySupervised:
		decision.Route = models.RouteSupervision
		decision.Reason = "supervised actions proceed with a supervisor attached"
	case models.MaturityAutonomous:
		decision.Route = models.RouteExecution
		decision.Reason = "autonomous agents execute directly"
	default:
		decision.Route = models.RouteTraining
		decision.Reason = fmt.Sprintf("unknown maturity %q; trigger blocked", agent.Status)
	}

	if decision.Route == models.RouteExecution {
		enforcement := i.gov.EnforceAction(ctx, agent.ID, trigger.TriggerType)
		if !enforcement.Proceed {
			decision.Route = models.RouteSupervision
			decision.Reason = "execution blocked by complexity gate: " + enforcement.Reason
		} else if i.queue != nil {
			if err := i.queue.EnqueueAction(ctx, agent.ID, trigger.TriggerType, trigger.Payload); err != nil {
				return decision, fmt.Errorf("enqueue action: %w", err)
			}
		}
	}

	i.log.Info("trigger routed",
		"agent_id", decision.AgentID,
		"maturity", decision.AgentMaturity,
		"trigger_type", trigger.TriggerType,
		"source", trigger.Source,
		"route", decision.Route)
	return decision, nil
}
