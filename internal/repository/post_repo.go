package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentgov/backend/internal/models"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// FeedFilter selects posts for Feed. Nil/zero fields are ignored; set
// fields combine with AND semantics.
type FeedFilter struct {
	SenderID    *uuid.UUID
	RecipientID *uuid.UUID
	ChannelID   *uuid.UUID
	PostType    *string
	IsPublic    *bool
	// Ascending returns oldest-first (ordered-delivery verification); the
	// default is newest-first for feed display.
	Ascending bool
	Limit     int
	Offset    int
}

// Create inserts the post. mentioned_agent_ids is stored as a JSONB array
// and round-trips in the order given, duplicates included. The seq column is
// assigned from a sequence so creation order is total even when created_at
// timestamps collide.
func (r *PostRepo) Create(ctx context.Context, p *models.AgentPost) error {
	mentioned, err := json.Marshal(p.MentionedAgentIDs)
	if err != nil {
		return fmt.Errorf("marshal mentioned_agent_ids: %w", err)
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO agent_posts (
			id, sender_type, sender_id, sender_name, sender_maturity, sender_category,
			post_type, content, is_public, recipient_type, recipient_id,
			channel_id, channel_name, mentioned_agent_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, seq
	`, p.ID, p.SenderType, p.SenderID, p.SenderName, p.SenderMaturity, p.SenderCategory,
		p.PostType, p.Content, p.IsPublic, p.RecipientType, p.RecipientID,
		p.ChannelID, p.ChannelName, mentioned).Scan(&p.CreatedAt, &p.Seq)
}

// Feed returns matching posts plus the total match count before pagination.
func (r *PostRepo) Feed(ctx context.Context, f FeedFilter) ([]*models.AgentPost, int, error) {
	where, args := buildFeedWhere(f)

	var total int
	countQuery := "SELECT count(*) FROM agent_posts" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "ORDER BY seq DESC"
	if f.Ascending {
		order = "ORDER BY seq ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`
		SELECT id, sender_type, sender_id, sender_name, sender_maturity, sender_category,
		       post_type, content, is_public, recipient_type, recipient_id,
		       channel_id, channel_name, mentioned_agent_ids, created_at, seq
		FROM agent_posts%s
		%s LIMIT $%d OFFSET $%d
	`, where, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []*models.AgentPost
	for rows.Next() {
		var p models.AgentPost
		var mentioned []byte
		if err := rows.Scan(&p.ID, &p.SenderType, &p.SenderID, &p.SenderName, &p.SenderMaturity, &p.SenderCategory,
			&p.PostType, &p.Content, &p.IsPublic, &p.RecipientType, &p.RecipientID,
			&p.ChannelID, &p.ChannelName, &mentioned, &p.CreatedAt, &p.Seq); err != nil {
			return nil, 0, err
		}
		if len(mentioned) > 0 {
			if err := json.Unmarshal(mentioned, &p.MentionedAgentIDs); err != nil {
				return nil, 0, fmt.Errorf("unmarshal mentioned_agent_ids: %w", err)
			}
		}
		posts = append(posts, &p)
	}
	return posts, total, rows.Err()
}

func buildFeedWhere(f FeedFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.SenderID != nil {
		add("sender_id = $%d", *f.SenderID)
	}
	if f.RecipientID != nil {
		add("recipient_id = $%d", *f.RecipientID)
	}
	if f.ChannelID != nil {
		add("channel_id = $%d", *f.ChannelID)
	}
	if f.PostType != nil {
		add("post_type = $%d", *f.PostType)
	}
	if f.IsPublic != nil {
		add("is_public = $%d", *f.IsPublic)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
