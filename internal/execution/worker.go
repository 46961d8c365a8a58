package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ExecuteActionJobArgs is the durable payload for an EXECUTION-routed,
// governance-approved action.
type ExecuteActionJobArgs struct {
	AgentID    uuid.UUID       `json:"agent_id"`
	ActionType string          `json:"action_type"`
	Payload    json.RawMessage `json:"payload"`
}

func (ExecuteActionJobArgs) Kind() string { return "execute_action" }

// ExecuteActionWorker delivers approved actions to the external action
// executor. The governance core does not retry or compensate executor
// failures itself; a network error is returned so river's retry policy
// applies, while an executor-side rejection is terminal and only logged.
type ExecuteActionWorker struct {
	river.WorkerDefaults[ExecuteActionJobArgs]
	executorURL string
	httpClient  *http.Client
	log         *slog.Logger
}

func NewExecuteActionWorker(executorURL string, log *slog.Logger) *ExecuteActionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ExecuteActionWorker{
		executorURL: executorURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		log:         log,
	}
}

func (w *ExecuteActionWorker) Work(ctx context.Context, job *river.Job[ExecuteActionJobArgs]) error {
	args := job.Args

	body, err := json.Marshal(map[string]any{
		"agent_id":    args.AgentID,
		"action_type": args.ActionType,
		"payload":     args.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal action request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.executorURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build executor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling action executor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.log.Error("action executor rejected action",
			"agent_id", args.AgentID, "action_type", args.ActionType, "status", resp.StatusCode)
		return nil
	}

	w.log.Info("action executed", "agent_id", args.AgentID, "action_type", args.ActionType)
	return nil
}
