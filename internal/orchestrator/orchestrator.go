// Package orchestrator implements the meta-agent that turns blocked student
// triggers into training plans, reviews intern action proposals, and
// bootstraps supervised training sessions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentgov/backend/internal/governance"
	"github.com/agentgov/backend/internal/models"
	"github.com/agentgov/backend/internal/repository"
)

var (
	// ErrAgentNotFound is returned when the referenced agent does not exist.
	// Unlike governance checks, orchestrator calls have no sensible
	// continuation without the agent, so this is an error, not a denial.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSessionNotFound is returned by ConductTrainingSession when no
	// proposed session row exists for the proposal.
	ErrSessionNotFound = errors.New("no training session exists for this proposal")
)

// Review recommendations.
const (
	RecommendApprove = "approve"
	RecommendModify  = "modify"
	RecommendReject  = "reject"
)

// TrainingStep is one ordered step in a training plan.
type TrainingStep struct {
	StepNumber       int    `json:"step_number"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Type             string `json:"type"` // theory | practice | assessment
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// TrainingProposal is the generated plan for a student agent. Ephemeral: it
// is persisted as a TrainingSession only once a supervisor engages.
type TrainingProposal struct {
	AgentID                uuid.UUID      `json:"agent_id"`
	Title                  string         `json:"title"`
	Description            string         `json:"description"`
	ScenarioTemplate       string         `json:"scenario_template"`
	LearningObjectives     []string       `json:"learning_objectives"`
	CapabilityGaps         []string       `json:"capability_gaps"`
	EstimatedDurationHours int            `json:"estimated_duration_hours"`
	TrainingSteps          []TrainingStep `json:"training_steps"`
}

// ActionProposal is an intern's proposed action submitted for review.
type ActionProposal struct {
	AgentID         uuid.UUID `json:"agent_id"`
	ActionType      string    `json:"action_type"`
	Reasoning       string    `json:"reasoning"`
	ExpectedOutcome string    `json:"expected_outcome"`
}

// ProposalReview is the meta-agent's verdict on an intern proposal.
type ProposalReview struct {
	Recommendation         string   `json:"recommendation"`
	Confidence             float64  `json:"confidence"`
	Reasoning              string   `json:"reasoning"`
	SuggestedModifications []string `json:"suggested_modifications,omitempty"`
	Concerns               []string `json:"concerns,omitempty"`
}

// TrainingResult is the bootstrap state returned by ConductTrainingSession.
// Step-by-step execution is driven externally by the supervisor UI.
type TrainingResult struct {
	SessionID      uuid.UUID `json:"session_id"`
	Status         string    `json:"status"`
	SupervisorID   uuid.UUID `json:"supervisor_id"`
	StepsCompleted int       `json:"steps_completed"`
	StepsTotal     int       `json:"steps_total"`
	Finished       bool      `json:"finished"`
}

// SessionStore is the minimal training-session repository interface.
type SessionStore interface {
	FindProposed(ctx context.Context, agentID uuid.UUID, proposalTitle string) (*models.TrainingSession, error)
	Start(ctx context.Context, id, supervisorID uuid.UUID, startedAt time.Time) error
}

// Orchestrator is the meta-agent service.
type Orchestrator struct {
	agents   governance.AgentLookup
	sessions SessionStore
	log      *slog.Logger
	now      func() time.Time
}

func New(agents governance.AgentLookup, sessions SessionStore, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{agents: agents, sessions: sessions, log: log, now: time.Now}
}

// ---------------------------------------------------------------------------
// Training scenario generation
// ---------------------------------------------------------------------------

// triggerKeywordGaps maps trigger-type keywords to the capabilities a blocked
// task implies the agent is missing. Kept as an ordered slice so gap lists
// come out deterministic.
var triggerKeywordGaps = []struct {
	keyword string
	gaps    []string
}{
	{"workflow", []string{"workflow_automation", "task_coordination"}},
	{"email", []string{"email_composition", "communication"}},
	{"report", []string{"report_generation", "data_analysis"}},
	{"sync", []string{"data_synchronization", "integration_management"}},
	{"payment", []string{"transaction_handling", "financial_controls"}},
	{"schedule", []string{"calendar_management", "time_planning"}},
}

// categoryGaps is the fixed per-category gap vocabulary.
var categoryGaps = map[string][]string{
	"Finance":    {"reconciliation", "expense_categorization", "financial_reporting"},
	"Sales":      {"lead_qualification", "pipeline_management", "outreach_sequencing"},
	"Operations": {"process_optimization", "resource_allocation", "incident_handling"},
	"HR":         {"candidate_screening", "onboarding_coordination", "policy_compliance"},
	"Support":    {"ticket_triage", "escalation_judgment", "customer_communication"},
}

// scenarioTemplates selects a practice scenario by category.
var scenarioTemplates = map[string]string{
	"Finance":    "Month-End Close Simulation",
	"Sales":      "Pipeline Review Walkthrough",
	"Operations": "Incident Response Drill",
	"HR":         "Hiring Round Simulation",
	"Support":    "Escalation Queue Simulation",
}

const fallbackTemplate = "General Operations"

var baselineObjectives = []string{
	"Understand the maturity-based permission model and the agent's current ceiling",
	"Demonstrate safe handling of read-only operations within the assigned domain",
	"Recognize which actions require escalation to a supervisor",
}

const (
	theoryStepMinutes     = 45
	practiceStepMinutes   = 90
	assessmentStepMinutes = 60
	maxGapObjectives      = 5
	maxPracticeSteps      = 5
)

// ProposeTrainingScenario builds a training plan for a student agent whose
// trigger was blocked. Capability gaps union trigger-keyword gaps with the
// category vocabulary, minus what the agent already has; duplicates collapse
// while first-seen order is kept.
func (o *Orchestrator) ProposeTrainingScenario(ctx context.Context, studentAgentID uuid.UUID, blockedTask models.TriggerContext) (*TrainingProposal, error) {
	agent, err := o.agents.GetByID(ctx, studentAgentID)
	if err != nil || agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, studentAgentID)
	}

	gaps := capabilityGaps(blockedTask.TriggerType, agent.Category, agent.Capabilities)
	template, ok := scenarioTemplates[agent.Category]
	if !ok {
		template = fallbackTemplate
	}

	objectives := make([]string, 0, len(baselineObjectives)+maxGapObjectives)
	objectives = append(objectives, baselineObjectives...)
	for i, gap := range gaps {
		if i == maxGapObjectives {
			break
		}
		objectives = append(objectives, "Build working competence in "+strings.ReplaceAll(gap, "_", " "))
	}

	steps := buildTrainingSteps(template, gaps)
	totalMinutes := 0
	for _, st := range steps {
		totalMinutes += st.EstimatedMinutes
	}
	// Duration derives from the step minutes themselves; hours round up.
	hours := (totalMinutes + 59) / 60

	proposal := &TrainingProposal{
		AgentID:                agent.ID,
		Title:                  fmt.Sprintf("Training: %s for %s", template, agent.Name),
		Description:            fmt.Sprintf("Structured training addressing the blocked %q trigger for a %s-category student agent.", blockedTask.TriggerType, agent.Category),
		ScenarioTemplate:       template,
		LearningObjectives:     objectives,
		CapabilityGaps:         gaps,
		EstimatedDurationHours: hours,
		TrainingSteps:          steps,
	}
	o.log.Info("training scenario proposed", "agent_id", agent.ID, "template", template, "gaps", len(gaps), "steps", len(steps))
	return proposal, nil
}

// capabilityGaps unions trigger-keyword gaps with the category vocabulary and
// removes capabilities the agent already holds.
func capabilityGaps(triggerType, category string, existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c)] = true
	}

	var gaps []string
	seen := map[string]bool{}
	appendGap := func(g string) {
		if !seen[g] && !have[g] {
			seen[g] = true
			gaps = append(gaps, g)
		}
	}

	tt := strings.ToLower(triggerType)
	for _, kw := range triggerKeywordGaps {
		if strings.Contains(tt, kw.keyword) {
			for _, g := range kw.gaps {
				appendGap(g)
			}
		}
	}
	for _, g := range categoryGaps[category] {
		appendGap(g)
	}
	return gaps
}

// buildTrainingSteps assembles the fixed plan shape: two theory steps, one
// practice step per gap (capped), and a terminal assessment.
func buildTrainingSteps(template string, gaps []string) []TrainingStep {
	steps := []TrainingStep{
		{
			StepNumber:       1,
			Title:            "Permission model orientation",
			Description:      "Review the maturity ladder, complexity levels, and this agent's current ceiling.",
			Type:             "theory",
			EstimatedMinutes: theoryStepMinutes,
		},
		{
			StepNumber:       2,
			Title:            "Scenario briefing: " + template,
			Description:      "Walk through the practice scenario, its inputs, and the expected outcomes.",
			Type:             "theory",
			EstimatedMinutes: theoryStepMinutes,
		},
	}
	for i, gap := range gaps {
		if i == maxPracticeSteps {
			break
		}
		steps = append(steps, TrainingStep{
			StepNumber:       len(steps) + 1,
			Title:            "Practice: " + strings.ReplaceAll(gap, "_", " "),
			Description:      fmt.Sprintf("Supervised exercise targeting the %s gap inside the %s scenario.", gap, template),
			Type:             "practice",
			EstimatedMinutes: practiceStepMinutes,
		})
	}
	steps = append(steps, TrainingStep{
		StepNumber:       len(steps) + 1,
		Title:            "Assessment",
		Description:      "Supervisor-graded assessment covering every objective in the plan.",
		Type:             "assessment",
		EstimatedMinutes: assessmentStepMinutes,
	})
	return steps
}

// ---------------------------------------------------------------------------
// Intern proposal review
// ---------------------------------------------------------------------------

// highRiskActions are rejected unconditionally, regardless of agent
// confidence.
var highRiskActions = map[string]bool{
	"delete":             true,
	"payment":            true,
	"data_export":        true,
	"permissions_change": true,
}

// mediumRiskActions depend on agent confidence: below 0.6 they are medium
// risk, otherwise low.
var mediumRiskActions = map[string]bool{
	"update":  true,
	"create":  true,
	"send":    true,
	"publish": true,
}

// categoryActionHints lists substrings that make an action appropriate for a
// category. Unmapped categories default to appropriate.
var categoryActionHints = map[string][]string{
	"Finance":    {"reconciliation", "analysis", "report", "categorize"},
	"Sales":      {"lead", "pipeline", "outreach", "crm"},
	"Operations": {"process", "incident", "schedule", "resource"},
	"HR":         {"candidate", "onboarding", "policy", "review"},
	"Support":    {"ticket", "escalation", "response", "customer"},
}

// ReviewInternProposal grades an intern's proposed action. Risk matrix:
// high-risk action types reject unconditionally; medium-risk types become
// "modify" when confidence is low; everything else is low risk. An action
// inappropriate for the agent's category also downgrades to "modify".
func (o *Orchestrator) ReviewInternProposal(ctx context.Context, proposal ActionProposal) (*ProposalReview, error) {
	agent, err := o.agents.GetByID(ctx, proposal.AgentID)
	if err != nil || agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, proposal.AgentID)
	}

	risk := riskLevel(proposal.ActionType, agent.ConfidenceScore)
	appropriate := actionAppropriate(proposal.ActionType, agent.Category)

	review := &ProposalReview{}
	switch {
	case risk == "low" && appropriate:
		review.Recommendation = RecommendApprove
		review.Confidence = 0.9
		review.Reasoning = fmt.Sprintf("low-risk %q action appropriate for a %s agent", proposal.ActionType, agent.Category)
	case risk == "high":
		review.Recommendation = RecommendReject
		review.Confidence = 0.8
		review.Reasoning = fmt.Sprintf("%q is unconditionally high risk for intern agents", proposal.ActionType)
		review.Concerns = append(review.Concerns, "high-risk action class requires supervised maturity or above")
	default:
		review.Recommendation = RecommendModify
		review.Confidence = 0.7
		review.Reasoning = fmt.Sprintf("%q needs changes before execution (risk=%s, appropriate=%v)", proposal.ActionType, risk, appropriate)
		review.SuggestedModifications = suggestModifications(proposal, agent, appropriate)
	}
	o.log.Info("intern proposal reviewed", "agent_id", agent.ID, "action_type", proposal.ActionType, "recommendation", review.Recommendation)
	return review, nil
}

func riskLevel(actionType string, confidence float64) string {
	at := strings.ToLower(actionType)
	for action := range highRiskActions {
		if strings.Contains(at, action) {
			return "high"
		}
	}
	for action := range mediumRiskActions {
		if strings.Contains(at, action) {
			if confidence < 0.6 {
				return "medium"
			}
			return "low"
		}
	}
	return "low"
}

func actionAppropriate(actionType, category string) bool {
	hints, ok := categoryActionHints[category]
	if !ok {
		return true
	}
	at := strings.ToLower(actionType)
	for _, hint := range hints {
		if strings.Contains(at, hint) {
			return true
		}
	}
	return false
}

func suggestModifications(p ActionProposal, agent *models.Agent, appropriate bool) []string {
	var mods []string
	if agent.ConfidenceScore < 0.6 {
		mods = append(mods, "add detailed reasoning for each step; agent confidence is below the 0.6 review threshold")
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		mods = append(mods, "include reasoning explaining why this action is needed")
	}
	if strings.TrimSpace(p.ExpectedOutcome) == "" {
		mods = append(mods, "state the expected outcome so the result can be verified")
	}
	if !appropriate {
		mods = append(mods, fmt.Sprintf("rescope the action toward %s-appropriate work", agent.Category))
	}
	if len(mods) == 0 {
		mods = append(mods, "narrow the action scope and resubmit for review")
	}
	return mods
}

// ---------------------------------------------------------------------------
// Training sessions
// ---------------------------------------------------------------------------

// ConductTrainingSession marks the pre-existing session for the proposal as
// in progress under the given supervisor and returns the bootstrap result.
// Step execution is driven externally.
func (o *Orchestrator) ConductTrainingSession(ctx context.Context, proposal *TrainingProposal, supervisorID uuid.UUID) (*TrainingResult, error) {
	session, err := o.sessions.FindProposed(ctx, proposal.AgentID, proposal.Title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, proposal.Title)
		}
		return nil, err
	}

	startedAt := o.now()
	if err := o.sessions.Start(ctx, session.ID, supervisorID, startedAt); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	o.log.Info("training session started", "session_id", session.ID, "agent_id", proposal.AgentID, "supervisor_id", supervisorID)
	return &TrainingResult{
		SessionID:      session.ID,
		Status:         models.SessionStatusInProgress,
		SupervisorID:   supervisorID,
		StepsCompleted: 0,
		StepsTotal:     session.StepsTotal,
		Finished:       false,
	}, nil
}
