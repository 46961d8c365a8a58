package social

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/bus"
	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mock PostRepo — reproduces the production contract: seq-based total order,
// AND-combined filters, limit/offset pagination, and JSON round-tripping of
// mentioned_agent_ids.
// ---------------------------------------------------------------------------

type mockPostRepo struct {
	posts []*models.AgentPost
	seq   int64
	fail  bool
}

func (m *mockPostRepo) Create(_ context.Context, p *models.AgentPost) error {
	if m.fail {
		return errors.New("insert failed")
	}
	m.seq++
	p.Seq = m.seq
	p.CreatedAt = time.Now()

	// Serialize/deserialize mentioned_agent_ids the way the JSONB column does.
	raw, err := json.Marshal(p.MentionedAgentIDs)
	if err != nil {
		return err
	}
	stored := *p
	stored.MentionedAgentIDs = nil
	if err := json.Unmarshal(raw, &stored.MentionedAgentIDs); err != nil {
		return err
	}
	m.posts = append(m.posts, &stored)
	return nil
}

func (m *mockPostRepo) Feed(_ context.Context, f repository.FeedFilter) ([]*models.AgentPost, int, error) {
	var matched []*models.AgentPost
	for _, p := range m.posts {
		if f.SenderID != nil && p.SenderID != *f.SenderID {
			continue
		}
		if f.RecipientID != nil && (p.RecipientID == nil || *p.RecipientID != *f.RecipientID) {
			continue
		}
		if f.ChannelID != nil && (p.ChannelID == nil || *p.ChannelID != *f.ChannelID) {
			continue
		}
		if f.PostType != nil && p.PostType != *f.PostType {
			continue
		}
		if f.IsPublic != nil && p.IsPublic != *f.IsPublic {
			continue
		}
		matched = append(matched, p)
	}
	if !f.Ascending {
		rev := make([]*models.AgentPost, len(matched))
		for i, p := range matched {
			rev[len(matched)-1-i] = p
		}
		matched = rev
	}
	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestService() (*Service, *mockPostRepo, *recordBus) {
	repo := &mockPostRepo{}
	b := &recordBus{}
	return NewService(repo, b, nil), repo, b
}

type recordBus struct {
	broadcasts []*models.AgentPost
}

func (b *recordBus) Subscribe(uuid.UUID, bus.Endpoint, []string)   {}
func (b *recordBus) Unsubscribe(uuid.UUID, bus.Endpoint)           {}
func (b *recordBus) Publish(context.Context, bus.Event, []string)  {}
func (b *recordBus) BroadcastPost(_ context.Context, p *models.AgentPost) {
	b.broadcasts = append(b.broadcasts, p)
}

func internPost(senderID uuid.UUID, content string) CreatePostParams {
	return CreatePostParams{
		SenderType:     "agent",
		SenderID:       senderID,
		SenderName:     "intern-bot",
		SenderMaturity: models.MaturityIntern,
		SenderCategory: "Finance",
		PostType:       models.PostTypeStatus,
		Content:        content,
		IsPublic:       true,
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
func strPtr(s string) *string         { return &s }
func boolPtr(b bool) *bool            { return &b }

// ---------------------------------------------------------------------------
// 1. Student gate: rejected before persistence
// ---------------------------------------------------------------------------

func TestStudentCannotPost(t *testing.T) {
	svc, repo, b := newTestService()

	p := internPost(uuid.New(), "hello")
	p.SenderMaturity = models.MaturityStudent

	before := len(repo.posts)
	_, err := svc.CreatePost(context.Background(), p)
	if !errors.Is(err, ErrStudentRestricted) {
		t.Fatalf("err = %v, want ErrStudentRestricted", err)
	}
	if len(repo.posts) != before {
		t.Fatal("student post must never be persisted")
	}
	if len(b.broadcasts) != 0 {
		t.Fatal("student post must never be broadcast")
	}
}

// ---------------------------------------------------------------------------
// 2. Directed posts require a recipient; public posts drop it
// ---------------------------------------------------------------------------

func TestRecipientHandling(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	directed := internPost(uuid.New(), "direct message")
	directed.IsPublic = false
	if _, err := svc.CreatePost(ctx, directed); !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("directed post without recipient: err = %v, want ErrRecipientRequired", err)
	}

	directed.RecipientID = uuidPtr(uuid.New())
	directed.RecipientType = strPtr("agent")
	post, err := svc.CreatePost(ctx, directed)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.RecipientID == nil {
		t.Fatal("directed post lost its recipient")
	}

	public := internPost(uuid.New(), "broadcast")
	public.RecipientID = uuidPtr(uuid.New())
	post, err = svc.CreatePost(ctx, public)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.RecipientID != nil {
		t.Fatal("public post must have no recipient")
	}
}

// ---------------------------------------------------------------------------
// 3. Successful posts are broadcast exactly once
// ---------------------------------------------------------------------------

func TestCreatePostBroadcasts(t *testing.T) {
	svc, _, b := newTestService()

	post, err := svc.CreatePost(context.Background(), internPost(uuid.New(), "hi"))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if len(b.broadcasts) != 1 || b.broadcasts[0].ID != post.ID {
		t.Fatal("created post must be broadcast to the bus once")
	}
}

// ---------------------------------------------------------------------------
// 4. Persistence failure is returned and nothing is broadcast
// ---------------------------------------------------------------------------

func TestCreatePostPersistFailure(t *testing.T) {
	svc, repo, b := newTestService()
	repo.fail = true

	if _, err := svc.CreatePost(context.Background(), internPost(uuid.New(), "hi")); err == nil {
		t.Fatal("expected persistence error")
	}
	if len(b.broadcasts) != 0 {
		t.Fatal("failed post must not be broadcast")
	}
}

// ---------------------------------------------------------------------------
// 5. FIFO ordering for one (sender, recipient) pair
// ---------------------------------------------------------------------------

func TestFeedFIFOPerSenderRecipient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sender, recipient := uuid.New(), uuid.New()
	contents := []string{"first", "second", "third", "fourth", "fifth"}
	for _, c := range contents {
		p := internPost(sender, c)
		p.IsPublic = false
		p.RecipientID = uuidPtr(recipient)
		p.RecipientType = strPtr("agent")
		if _, err := svc.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost(%q): %v", c, err)
		}
	}

	res, err := svc.Feed(ctx, repository.FeedFilter{
		SenderID:    &sender,
		RecipientID: &recipient,
		Ascending:   true,
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(res.Posts) != len(contents) {
		t.Fatalf("got %d posts, want %d", len(res.Posts), len(contents))
	}
	for i, p := range res.Posts {
		if p.Content != contents[i] {
			t.Errorf("position %d: got %q, want %q (FIFO order violated)", i, p.Content, contents[i])
		}
	}
}

// ---------------------------------------------------------------------------
// 6. Default feed order is newest first
// ---------------------------------------------------------------------------

func TestFeedDefaultReverseChronological(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sender := uuid.New()

	for _, c := range []string{"oldest", "middle", "newest"} {
		if _, err := svc.CreatePost(ctx, internPost(sender, c)); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.Feed(ctx, repository.FeedFilter{SenderID: &sender, Limit: 10})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if res.Posts[0].Content != "newest" || res.Posts[2].Content != "oldest" {
		t.Errorf("default feed order must be newest first, got %q .. %q",
			res.Posts[0].Content, res.Posts[2].Content)
	}
}

// ---------------------------------------------------------------------------
// 7. Channel isolation
// ---------------------------------------------------------------------------

func TestChannelIsolation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	chanA, chanB := uuid.New(), uuid.New()
	pa := internPost(uuid.New(), "for channel A")
	pa.ChannelID = uuidPtr(chanA)
	pb := internPost(uuid.New(), "for channel B")
	pb.ChannelID = uuidPtr(chanB)
	if _, err := svc.CreatePost(ctx, pa); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreatePost(ctx, pb); err != nil {
		t.Fatal(err)
	}

	resA, err := svc.Feed(ctx, repository.FeedFilter{ChannelID: &chanA, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range resA.Posts {
		if p.ChannelID == nil || *p.ChannelID != chanA {
			t.Errorf("channel A feed leaked post from another channel: %q", p.Content)
		}
	}
	if len(resA.Posts) != 1 {
		t.Errorf("channel A feed has %d posts, want 1", len(resA.Posts))
	}

	resB, err := svc.Feed(ctx, repository.FeedFilter{ChannelID: &chanB, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resB.Posts) != 1 || resB.Posts[0].Content != "for channel B" {
		t.Error("channel B feed must contain exactly its own post")
	}
}

// ---------------------------------------------------------------------------
// 8. No lost messages: 100 posts, retrieved whole and via pages
// ---------------------------------------------------------------------------

func TestNoLostMessages(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sender := uuid.New()

	for i := 0; i < 100; i++ {
		if _, err := svc.CreatePost(ctx, internPost(sender, "msg")); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.Feed(ctx, repository.FeedFilter{SenderID: &sender, Limit: 150})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 100 || res.Total != 100 {
		t.Fatalf("got %d posts (total %d), want 100", len(res.Posts), res.Total)
	}
	seen := map[uuid.UUID]bool{}
	for _, p := range res.Posts {
		if seen[p.ID] {
			t.Fatalf("duplicate post id %s", p.ID)
		}
		seen[p.ID] = true
	}

	// Paginate in 10s: consecutive pages neither skip nor duplicate rows.
	paged := map[uuid.UUID]bool{}
	for offset := 0; offset < 100; offset += 10 {
		page, err := svc.Feed(ctx, repository.FeedFilter{SenderID: &sender, Limit: 10, Offset: offset})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Posts) != 10 {
			t.Fatalf("page at offset %d has %d posts, want 10", offset, len(page.Posts))
		}
		for _, p := range page.Posts {
			if paged[p.ID] {
				t.Fatalf("post %s appeared on two pages", p.ID)
			}
			paged[p.ID] = true
		}
	}
	if len(paged) != 100 {
		t.Fatalf("pagination visited %d distinct posts, want 100", len(paged))
	}
}

// ---------------------------------------------------------------------------
// 9. Filters combine with AND
// ---------------------------------------------------------------------------

func TestFeedFiltersAreConjunctive(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sender := uuid.New()

	alert := internPost(sender, "alert!")
	alert.PostType = models.PostTypeAlert
	status := internPost(sender, "all quiet")
	other := internPost(uuid.New(), "someone else's alert")
	other.PostType = models.PostTypeAlert
	for _, p := range []CreatePostParams{alert, status, other} {
		if _, err := svc.CreatePost(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	pt := models.PostTypeAlert
	res, err := svc.Feed(ctx, repository.FeedFilter{SenderID: &sender, PostType: &pt, IsPublic: boolPtr(true), Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 1 || res.Posts[0].Content != "alert!" {
		t.Fatalf("AND filter returned %d posts, want exactly the sender's alert", len(res.Posts))
	}
}

// ---------------------------------------------------------------------------
// 10. mentioned_agent_ids round-trips in order, duplicates preserved
// ---------------------------------------------------------------------------

func TestMentionedAgentIDsRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sender := uuid.New()

	mentions := []string{"agent-b", "agent-a", "agent-b"}
	p := internPost(sender, "pinging you both")
	p.MentionedAgentIDs = mentions
	if _, err := svc.CreatePost(ctx, p); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Feed(ctx, repository.FeedFilter{SenderID: &sender, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := res.Posts[0].MentionedAgentIDs
	if len(got) != len(mentions) {
		t.Fatalf("mentions = %v, want %v", got, mentions)
	}
	for i := range mentions {
		if got[i] != mentions[i] {
			t.Fatalf("mentions = %v, want %v (order and duplicates must survive)", got, mentions)
		}
	}
}
