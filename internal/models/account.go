package models

import (
	"time"

	"github.com/google/uuid"
)

// Well-known account for platform-originated posts and actions.
var SystemPlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Account is an operator account that owns agents and holds API keys.
type Account struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	WorkspaceID     uuid.UUID `json:"workspace_id"`
	IsSystemAccount bool      `json:"is_system_account"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type APIKey struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	KeyHash   string    `json:"-"`
	KeyPrefix string    `json:"key_prefix"`
	IsActive  bool      `json:"is_active"`
}
