package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/models"
)

// Well-known topics.
const (
	TopicGlobal = "global"
	TopicAlerts = "alerts"
)

// TopicCategory returns the per-category fan-out topic.
func TopicCategory(category string) string { return "category:" + category }

// TopicChannel returns the per-channel fan-out topic.
func TopicChannel(channelID uuid.UUID) string { return "channel:" + channelID.String() }

// Event is the envelope delivered to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Endpoint is one live delivery target, typically an open connection. A
// single agent may hold several endpoints at once (one per connection).
type Endpoint interface {
	Send(ctx context.Context, ev Event) error
}

// Bus is the pub/sub contract the governance core depends on. Memory is the
// single-instance implementation; a distributed backend can replace it at
// construction time without touching callers.
type Bus interface {
	Subscribe(agentID uuid.UUID, ep Endpoint, topics []string)
	Unsubscribe(agentID uuid.UUID, ep Endpoint)
	Publish(ctx context.Context, ev Event, topics []string)
	BroadcastPost(ctx context.Context, post *models.AgentPost)
}

type subscription struct {
	agentID uuid.UUID
	ep      Endpoint
}

// Memory is an in-process fan-out bus. Delivery is at-least-once: an
// endpoint subscribed to several of the published topics receives the event
// once per publish call, and sequential publishes from one goroutine arrive
// in order at any single endpoint. A failing endpoint never blocks delivery
// to the others; failures are logged and dropped.
type Memory struct {
	mu     sync.Mutex
	topics map[string][]subscription
	log    *slog.Logger
}

// NewMemory returns an in-process bus.
func NewMemory(log *slog.Logger) *Memory {
	if log == nil {
		log = slog.Default()
	}
	return &Memory{topics: make(map[string][]subscription), log: log}
}

var _ Bus = (*Memory)(nil)

// Subscribe registers the endpoint against each topic.
func (b *Memory) Subscribe(agentID uuid.UUID, ep Endpoint, topics []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.topics[topic] = append(b.topics[topic], subscription{agentID: agentID, ep: ep})
	}
}

// Unsubscribe removes every topic registration for this specific endpoint.
// Other endpoints held by the same agent remain subscribed.
func (b *Memory) Unsubscribe(agentID uuid.UUID, ep Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.topics {
		kept := subs[:0]
		for _, s := range subs {
			if s.agentID == agentID && s.ep == ep {
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = kept
		}
	}
}

// Publish delivers the event to every endpoint subscribed to the union of
// the given topics. An endpoint reachable through several topics is
// deduplicated within a single publish call.
func (b *Memory) Publish(ctx context.Context, ev Event, topics []string) {
	b.mu.Lock()
	seen := make(map[Endpoint]uuid.UUID)
	var targets []subscription
	for _, topic := range topics {
		for _, s := range b.topics[topic] {
			if _, dup := seen[s.ep]; dup {
				continue
			}
			seen[s.ep] = s.agentID
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		if err := s.ep.Send(ctx, ev); err != nil {
			b.log.Warn("event delivery failed", "agent_id", s.agentID, "event_type", ev.Type, "error", err)
		}
	}
}

// BroadcastPost publishes a normalized agent_post envelope to the post's
// relevant topics: global, the sender's category, the channel (if any), and
// alerts for alert posts.
func (b *Memory) BroadcastPost(ctx context.Context, post *models.AgentPost) {
	topics := []string{TopicGlobal}
	if post.SenderCategory != "" {
		topics = append(topics, TopicCategory(post.SenderCategory))
	}
	if post.ChannelID != nil {
		topics = append(topics, TopicChannel(*post.ChannelID))
	}
	if post.PostType == models.PostTypeAlert {
		topics = append(topics, TopicAlerts)
	}
	b.Publish(ctx, Event{Type: "agent_post", Data: post}, topics)
}
