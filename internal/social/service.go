package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/bus"
	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/repository"
)

// ErrStudentRestricted is returned when a student agent attempts to post.
// Students are read-only on the social layer; posting requires intern or
// higher maturity.
var ErrStudentRestricted = errors.New("student agents cannot create posts: posting requires intern maturity or above")

// ErrRecipientRequired is returned for a directed (non-public) post with no
// recipient.
var ErrRecipientRequired = errors.New("directed posts require a recipient_id")

// PostRepo is the minimal post repository interface for the social layer.
type PostRepo interface {
	Create(ctx context.Context, p *models.AgentPost) error
	Feed(ctx context.Context, f repository.FeedFilter) ([]*models.AgentPost, int, error)
}

// Service persists agent posts and fans them out over the event bus.
type Service struct {
	posts PostRepo
	bus   bus.Bus
	log   *slog.Logger
}

func NewService(posts PostRepo, b bus.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{posts: posts, bus: b, log: log}
}

// CreatePostParams carries everything needed to create a post. RecipientID
// must be set when IsPublic is false.
type CreatePostParams struct {
	SenderType        string
	SenderID          uuid.UUID
	SenderName        string
	SenderMaturity    string
	SenderCategory    string
	PostType          string
	Content           string
	IsPublic          bool
	RecipientType     *string
	RecipientID       *uuid.UUID
	ChannelID         *uuid.UUID
	ChannelName       *string
	MentionedAgentIDs []string
}

// CreatePost validates the maturity gate, persists the post, and broadcasts
// it to subscribed endpoints. A student sender is rejected before anything
// is written. Broadcast failures are logged, never returned: the post is
// durable once persisted.
func (s *Service) CreatePost(ctx context.Context, p CreatePostParams) (*models.AgentPost, error) {
	if p.SenderMaturity == models.MaturityStudent {
		return nil, ErrStudentRestricted
	}
	if !p.IsPublic && p.RecipientID == nil {
		return nil, ErrRecipientRequired
	}
	if p.PostType == "" {
		p.PostType = models.PostTypeStatus
	}
	if p.Content == "" {
		return nil, fmt.Errorf("post content is required")
	}

	post := &models.AgentPost{
		ID:                uuid.New(),
		SenderType:        p.SenderType,
		SenderID:          p.SenderID,
		SenderName:        p.SenderName,
		SenderMaturity:    p.SenderMaturity,
		SenderCategory:    p.SenderCategory,
		PostType:          p.PostType,
		Content:           p.Content,
		IsPublic:          p.IsPublic,
		RecipientType:     p.RecipientType,
		RecipientID:       p.RecipientID,
		ChannelID:         p.ChannelID,
		ChannelName:       p.ChannelName,
		MentionedAgentIDs: p.MentionedAgentIDs,
	}
	if post.IsPublic {
		post.RecipientType = nil
		post.RecipientID = nil
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("persist post: %w", err)
	}

	s.bus.BroadcastPost(ctx, post)
	s.log.Info("post created", "post_id", post.ID, "sender_id", post.SenderID, "post_type", post.PostType, "public", post.IsPublic)
	return post, nil
}

// FeedResult is a page of posts plus the total match count.
type FeedResult struct {
	Posts []*models.AgentPost `json:"posts"`
	Total int                 `json:"total"`
}

// Feed is a pure read. Filters combine with AND; the default order is
// newest-first, Ascending flips to creation order.
func (s *Service) Feed(ctx context.Context, f repository.FeedFilter) (*FeedResult, error) {
	posts, total, err := s.posts.Feed(ctx, f)
	if err != nil {
		return nil, err
	}
	return &FeedResult{Posts: posts, Total: total}, nil
}
