package execution

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// InsertJobFunc enqueues an ExecuteActionJobArgs. Provided by main as a
// closure over river.Client.Insert (breaks the init cycle between the client
// and the services that enqueue).
type InsertJobFunc func(ctx context.Context, args ExecuteActionJobArgs) error

// Queue adapts the river insert closure to the interceptor's Enqueuer
// contract.
type Queue struct {
	insert InsertJobFunc
}

func NewQueue(insert InsertJobFunc) *Queue {
	return &Queue{insert: insert}
}

func (q *Queue) EnqueueAction(ctx context.Context, agentID uuid.UUID, actionType string, payload []byte) error {
	return q.insert(ctx, ExecuteActionJobArgs{
		AgentID:    agentID,
		ActionType: actionType,
		Payload:    json.RawMessage(payload),
	})
}
