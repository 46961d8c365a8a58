package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Trigger sources.
const (
	TriggerSourceManual         = "manual"
	TriggerSourceWorkflowEngine = "workflow_engine"
	TriggerSourceDataSync       = "data_sync"
)

// Routing decisions produced by the trigger interceptor.
const (
	RouteTraining    = "TRAINING"
	RouteProposal    = "PROPOSAL"
	RouteSupervision = "SUPERVISION"
	RouteExecution   = "EXECUTION"
)

// TriggerContext describes one inbound automated event. Consumed once by the
// interceptor to produce a routing decision; not retained afterwards.
type TriggerContext struct {
	TriggerType string          `json:"trigger_type"`
	Source      string          `json:"source"`
	AgentID     uuid.UUID       `json:"agent_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// RoutingDecision is the interceptor's verdict for a single trigger.
type RoutingDecision struct {
	Route         string    `json:"route"`
	AgentID       uuid.UUID `json:"agent_id"`
	AgentMaturity string    `json:"agent_maturity"`
	Reason        string    `json:"reason"`
}
