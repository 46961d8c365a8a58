package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mock AgentLookup
// ---------------------------------------------------------------------------

type mockAgents struct {
	agents map[uuid.UUID]*models.Agent
	calls  int
}

func (m *mockAgents) GetByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	m.calls++
	ag, ok := m.agents[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return ag, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestService(agents ...*models.Agent) (*Service, *mockAgents) {
	repo := &mockAgents{agents: map[uuid.UUID]*models.Agent{}}
	for _, ag := range agents {
		repo.agents[ag.ID] = ag
	}
	return NewService(repo, NewClassifier(), NewCache(time.Minute), nil), repo
}

func agentWith(status string, confidence float64) *models.Agent {
	return &models.Agent{
		ID:              uuid.New(),
		Name:            "test-agent",
		Category:        "Finance",
		Status:          status,
		ConfidenceScore: confidence,
	}
}

// ---------------------------------------------------------------------------
// 1. Student ceiling
// ---------------------------------------------------------------------------

func TestStudentOnlyReadOnlyActions(t *testing.T) {
	student := agentWith(models.MaturityStudent, 0.3)
	svc, _ := newTestService(student)
	ctx := context.Background()

	allowed := []string{"search", "read", "list", "get", "summarize", "present_chart"}
	for _, at := range allowed {
		d := svc.CanPerformAction(ctx, student.ID, at)
		if !d.Allowed {
			t.Errorf("student should be allowed %q, got denied: %s", at, d.Reason)
		}
		if d.ActionComplexity != 1 {
			t.Errorf("%q classified as complexity %d, want 1", at, d.ActionComplexity)
		}
	}

	denied := []string{"analyze", "draft", "update", "send_email", "create", "delete", "deploy", "payment"}
	for _, at := range denied {
		d := svc.CanPerformAction(ctx, student.ID, at)
		if d.Allowed {
			t.Errorf("student must not be allowed %q (complexity %d)", at, d.ActionComplexity)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Autonomous agents may do anything
// ---------------------------------------------------------------------------

func TestAutonomousAllowedAllComplexities(t *testing.T) {
	auto := agentWith(models.MaturityAutonomous, 0.95)
	svc, _ := newTestService(auto)
	ctx := context.Background()

	for _, at := range []string{"search", "analyze", "update", "delete", "deploy", "payment", "execute"} {
		d := svc.CanPerformAction(ctx, auto.ID, at)
		if !d.Allowed {
			t.Errorf("autonomous agent denied %q: %s", at, d.Reason)
		}
	}
}

// ---------------------------------------------------------------------------
// 3. Maturity hierarchy monotonicity: anything a lower maturity may do, a
//    higher maturity may also do.
// ---------------------------------------------------------------------------

func TestMaturityMonotonicity(t *testing.T) {
	levels := []string{
		models.MaturityStudent,
		models.MaturityIntern,
		models.MaturitySupervised,
		models.MaturityAutonomous,
	}
	actions := []string{"search", "analyze", "draft", "update", "send_email", "delete", "payment"}

	allowedAt := make(map[string]map[string]bool) // maturity -> action -> allowed
	for _, lvl := range levels {
		ag := agentWith(lvl, 0.5)
		svc, _ := newTestService(ag)
		allowedAt[lvl] = map[string]bool{}
		for _, at := range actions {
			allowedAt[lvl][at] = svc.CanPerformAction(context.Background(), ag.ID, at).Allowed
		}
	}

	for i := 0; i < len(levels)-1; i++ {
		lower, higher := levels[i], levels[i+1]
		for _, at := range actions {
			if allowedAt[lower][at] && !allowedAt[higher][at] {
				t.Errorf("%s allowed %q but %s is not; hierarchy must be monotonic", lower, at, higher)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Unknown agent fails closed, not with an error
// ---------------------------------------------------------------------------

func TestUnknownAgentFailsClosed(t *testing.T) {
	svc, _ := newTestService()
	d := svc.CanPerformAction(context.Background(), uuid.New(), "search")
	if d.Allowed {
		t.Fatal("unknown agent must be denied")
	}
	if d.Reason != "agent not found" {
		t.Errorf("reason = %q, want \"agent not found\"", d.Reason)
	}
	if d.Status != StatusBlocked {
		t.Errorf("status = %q, want BLOCKED", d.Status)
	}
}

// ---------------------------------------------------------------------------
// 5. Unrecognized action types default to complexity 1
// ---------------------------------------------------------------------------

func TestUnknownActionDefaultsToLowestRisk(t *testing.T) {
	student := agentWith(models.MaturityStudent, 0.2)
	svc, _ := newTestService(student)

	d := svc.CanPerformAction(context.Background(), student.ID, "frobnicate_widgets")
	if !d.Allowed {
		t.Fatalf("unknown action should default to complexity 1, got denied: %s", d.Reason)
	}
	if d.ActionComplexity != 1 {
		t.Errorf("complexity = %d, want 1", d.ActionComplexity)
	}
}

// ---------------------------------------------------------------------------
// 6. EnforceAction statuses
// ---------------------------------------------------------------------------

func TestEnforceActionStatuses(t *testing.T) {
	student := agentWith(models.MaturityStudent, 0.3)
	intern := agentWith(models.MaturityIntern, 0.6)
	supervised := agentWith(models.MaturitySupervised, 0.8)
	auto := agentWith(models.MaturityAutonomous, 0.95)
	svc, _ := newTestService(student, intern, supervised, auto)
	ctx := context.Background()

	cases := []struct {
		name       string
		agentID    uuid.UUID
		actionType string
		proceed    bool
		status     string
	}{
		{"student within ceiling", student.ID, "search", true, StatusApproved},
		{"student above ceiling is hard blocked", student.ID, "send_email", false, StatusBlocked},
		{"intern within ceiling", intern.ID, "analyze", true, StatusApproved},
		{"intern above ceiling goes to review", intern.ID, "delete", false, StatusPendingApproval},
		{"supervised above ceiling goes to review", supervised.ID, "payment", false, StatusPendingApproval},
		{"autonomous always proceeds", auto.ID, "deploy", true, StatusApproved},
		{"unknown agent is blocked", uuid.New(), "search", false, StatusBlocked},
	}
	for _, tc := range cases {
		e := svc.EnforceAction(ctx, tc.agentID, tc.actionType)
		if e.Proceed != tc.proceed || e.Status != tc.status {
			t.Errorf("%s: got proceed=%v status=%s, want proceed=%v status=%s",
				tc.name, e.Proceed, e.Status, tc.proceed, tc.status)
		}
	}
}

// ---------------------------------------------------------------------------
// 7. Capabilities enumeration
// ---------------------------------------------------------------------------

func TestAgentCapabilities(t *testing.T) {
	intern := agentWith(models.MaturityIntern, 0.6)
	svc, _ := newTestService(intern)

	caps := svc.AgentCapabilities(context.Background(), intern.ID)
	if caps.MaturityLevel != models.MaturityIntern {
		t.Errorf("maturity = %q, want intern", caps.MaturityLevel)
	}
	if caps.MaxComplexity != 2 {
		t.Errorf("max complexity = %d, want 2", caps.MaxComplexity)
	}
	want := map[string]bool{"search": true, "analyze": true, "draft": true}
	got := map[string]bool{}
	for _, a := range caps.AllowedActions {
		got[a] = true
	}
	for a := range want {
		if !got[a] {
			t.Errorf("expected %q in allowed actions", a)
		}
	}
	for _, forbidden := range []string{"update", "delete", "payment"} {
		if got[forbidden] {
			t.Errorf("%q must not appear in intern capabilities", forbidden)
		}
	}

	// Unknown agent gets an empty set.
	empty := svc.AgentCapabilities(context.Background(), uuid.New())
	if len(empty.AllowedActions) != 0 || empty.MaxComplexity != 0 {
		t.Error("unknown agent should have no capabilities")
	}
}

// ---------------------------------------------------------------------------
// 8. Cache write-through and explicit invalidation
// ---------------------------------------------------------------------------

func TestCacheConsistencyAndInvalidation(t *testing.T) {
	ag := agentWith(models.MaturityStudent, 0.4)
	svc, repo := newTestService(ag)
	ctx := context.Background()

	d1 := svc.CanPerformAction(ctx, ag.ID, "send_email")
	if d1.Allowed {
		t.Fatal("student must not send email")
	}
	cached, ok := svc.Cache().Get(ag.ID, "send_email")
	if !ok {
		t.Fatal("decision was not written through to the cache")
	}
	if cached.Allowed != d1.Allowed || cached.Reason != d1.Reason {
		t.Fatal("cache and service disagree on the same key")
	}

	// Second check must be served from cache: no extra repo lookup.
	lookups := repo.calls
	_ = svc.CanPerformAction(ctx, ag.ID, "send_email")
	if repo.calls != lookups {
		t.Errorf("expected cached decision, repo lookups went %d -> %d", lookups, repo.calls)
	}

	// Promote the agent. Without invalidation the stale block survives.
	ag.Status = models.MaturitySupervised
	ag.ConfidenceScore = 0.8
	stale := svc.CanPerformAction(ctx, ag.ID, "send_email")
	if stale.Allowed {
		t.Fatal("stale cache should still deny until invalidated")
	}

	svc.Cache().Invalidate(ag.ID)
	fresh := svc.CanPerformAction(ctx, ag.ID, "send_email")
	if !fresh.Allowed {
		t.Fatalf("post-invalidation decision must reflect new maturity, got: %s", fresh.Reason)
	}
}
