package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new operator account and returns the created Account.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string, workspaceID uuid.UUID) (*Account, error) {
	var id uuid.UUID
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, workspace_id, is_system_account)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`, email, passwordHash, displayName, workspaceID)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return &Account{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		WorkspaceID: workspaceID,
	}, nil
}

// GetByEmail returns the account and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, string, error) {
	var a Account
	var passwordHash string
	var name *string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, workspace_id, password_hash
		FROM accounts WHERE email = $1
	`, email)
	if err := row.Scan(&a.ID, &a.Email, &name, &a.WorkspaceID, &passwordHash); err != nil {
		if err.Error() == "no rows in result set" {
			return nil, "", nil
		}
		return nil, "", err
	}
	if name != nil {
		a.DisplayName = *name
	}
	return &a, passwordHash, nil
}
