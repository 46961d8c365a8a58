package models

import (
	"time"

	"github.com/google/uuid"
)

// Training session statuses.
const (
	SessionStatusProposed   = "proposed"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)

// TrainingSession is the persisted record of a supervised training engagement.
// A session row exists once a human supervisor picks up a training proposal;
// ConductTrainingSession moves it to in_progress.
type TrainingSession struct {
	ID             uuid.UUID  `json:"id"`
	AgentID        uuid.UUID  `json:"agent_id"`
	ProposalTitle  string     `json:"proposal_title"`
	Status         string     `json:"status"`
	SupervisorID   *uuid.UUID `json:"supervisor_id,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	StepsCompleted int        `json:"steps_completed"`
	StepsTotal     int        `json:"steps_total"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
