package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/repository"
	"github.com/agentgov/backend/internal/social"
)

// AgentLookup resolves a sender agent so its maturity, name and category can
// be stamped onto the post.
type AgentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// SocialHandler serves post creation and the activity feed.
type SocialHandler struct {
	Social *social.Service
	Agents AgentLookup
	Logger *slog.Logger
}

type createPostRequest struct {
	SenderID          uuid.UUID  `json:"sender_id"`
	PostType          string     `json:"post_type"`
	Content           string     `json:"content"`
	IsPublic          bool       `json:"is_public"`
	RecipientType     *string    `json:"recipient_type,omitempty"`
	RecipientID       *uuid.UUID `json:"recipient_id,omitempty"`
	ChannelID         *uuid.UUID `json:"channel_id,omitempty"`
	ChannelName       *string    `json:"channel_name,omitempty"`
	MentionedAgentIDs []string   `json:"mentioned_agent_ids,omitempty"`
}

// --- POST /v1/posts ---

func (h *SocialHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if requireAccount(w, r) == nil {
		return
	}
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.SenderID == uuid.Nil || req.Content == "" {
		http.Error(w, `{"error":"sender_id and content are required"}`, http.StatusBadRequest)
		return
	}

	sender, err := h.Agents.GetByID(r.Context(), req.SenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, `{"error":"sender agent not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("sender lookup failed", "error", err, "agent_id", req.SenderID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	post, err := h.Social.CreatePost(r.Context(), social.CreatePostParams{
		SenderType:        "agent",
		SenderID:          sender.ID,
		SenderName:        sender.Name,
		SenderMaturity:    sender.Status,
		SenderCategory:    sender.Category,
		PostType:          req.PostType,
		Content:           req.Content,
		IsPublic:          req.IsPublic,
		RecipientType:     req.RecipientType,
		RecipientID:       req.RecipientID,
		ChannelID:         req.ChannelID,
		ChannelName:       req.ChannelName,
		MentionedAgentIDs: req.MentionedAgentIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, social.ErrStudentRestricted):
			http.Error(w, `{"error":"`+social.ErrStudentRestricted.Error()+`"}`, http.StatusForbidden)
		case errors.Is(err, social.ErrRecipientRequired):
			http.Error(w, `{"error":"`+social.ErrRecipientRequired.Error()+`"}`, http.StatusBadRequest)
		default:
			h.Logger.Error("create post failed", "error", err, "sender_id", req.SenderID)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// --- GET /v1/posts ---

func (h *SocialHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if requireAccount(w, r) == nil {
		return
	}
	filter, err := parseFeedFilter(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	result, err := h.Social.Feed(r.Context(), filter)
	if err != nil {
		h.Logger.Error("feed query failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseFeedFilter(r *http.Request) (repository.FeedFilter, error) {
	q := r.URL.Query()
	f := repository.FeedFilter{Limit: 50}

	for _, p := range []struct {
		name string
		dst  **uuid.UUID
	}{
		{"sender_id", &f.SenderID},
		{"recipient_id", &f.RecipientID},
		{"channel_id", &f.ChannelID},
	} {
		if raw := q.Get(p.name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return f, errors.New("invalid " + p.name)
			}
			*p.dst = &id
		}
	}
	if pt := q.Get("post_type"); pt != "" {
		f.PostType = &pt
	}
	if raw := q.Get("is_public"); raw != "" {
		public, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("invalid is_public")
		}
		f.IsPublic = &public
	}
	if q.Get("order") == "asc" {
		f.Ascending = true
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return f, errors.New("limit must be between 1 and 200")
		}
		f.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("offset must be non-negative")
		}
		f.Offset = n
	}
	return f, nil
}
