package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentgov/backend/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

func (r *AgentRepo) Create(ctx context.Context, ag *models.Agent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO agents (id, workspace_id, name, category, status, confidence_score, capabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, ag.ID, ag.WorkspaceID, ag.Name, ag.Category, ag.Status, ag.ConfidenceScore, ag.Capabilities).Scan(&ag.CreatedAt, &ag.UpdatedAt)
}

func (r *AgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var ag models.Agent
	err := r.pool.QueryRow(ctx, `
		SELECT id, workspace_id, name, category, status, confidence_score, capabilities, created_at, updated_at
		FROM agents WHERE id = $1
	`, id).Scan(&ag.ID, &ag.WorkspaceID, &ag.Name, &ag.Category, &ag.Status, &ag.ConfidenceScore, &ag.Capabilities, &ag.CreatedAt, &ag.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ag, nil
}

// UpdateMaturity sets status and confidence_score in one statement. Callers
// must invalidate the governance cache for the agent afterwards.
func (r *AgentRepo) UpdateMaturity(ctx context.Context, id uuid.UUID, status string, confidence float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET status = $2, confidence_score = $3, updated_at = now()
		WHERE id = $1
	`, id, status, confidence)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByWorkspace returns all agents in the workspace, newest first.
func (r *AgentRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, name, category, status, confidence_score, capabilities, created_at, updated_at
		FROM agents WHERE workspace_id = $1
		ORDER BY created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Agent
	for rows.Next() {
		var ag models.Agent
		if err := rows.Scan(&ag.ID, &ag.WorkspaceID, &ag.Name, &ag.Category, &ag.Status, &ag.ConfidenceScore, &ag.Capabilities, &ag.CreatedAt, &ag.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ag)
	}
	return list, rows.Err()
}
