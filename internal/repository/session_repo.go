package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentgov/backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.TrainingSession) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO training_sessions (id, agent_id, proposal_title, status, steps_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, s.ID, s.AgentID, s.ProposalTitle, s.Status, s.StepsTotal).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// FindProposed returns the pending session for (agentID, proposalTitle).
func (r *SessionRepo) FindProposed(ctx context.Context, agentID uuid.UUID, proposalTitle string) (*models.TrainingSession, error) {
	var s models.TrainingSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, agent_id, proposal_title, status, supervisor_id, started_at, completed_at,
		       steps_completed, steps_total, created_at, updated_at
		FROM training_sessions
		WHERE agent_id = $1 AND proposal_title = $2 AND status = $3
		ORDER BY created_at DESC LIMIT 1
	`, agentID, proposalTitle, models.SessionStatusProposed).Scan(
		&s.ID, &s.AgentID, &s.ProposalTitle, &s.Status, &s.SupervisorID, &s.StartedAt, &s.CompletedAt,
		&s.StepsCompleted, &s.StepsTotal, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Start marks the session in_progress with the supervisor and start time.
func (r *SessionRepo) Start(ctx context.Context, id, supervisorID uuid.UUID, startedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE training_sessions
		SET status = $2, supervisor_id = $3, started_at = $4, updated_at = now()
		WHERE id = $1
	`, id, models.SessionStatusInProgress, supervisorID, startedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
