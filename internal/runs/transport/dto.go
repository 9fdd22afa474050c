// Package transport defines the request and response shapes of the
// runs API.
package transport

import (
	"time"

	"outreach_backend/internal/compliance"
	"outreach_backend/internal/runlog"
	"outreach_backend/internal/runs/service"
)

// TriggerRunRequest is the body of POST /runs. The trigger label is
// optional and defaults to "api".
type TriggerRunRequest struct {
	Trigger string `json:"trigger" validate:"omitempty,oneof=api schedule manual"`
}

// ListRunsRequest carries the query parameters of GET /runs.
type ListRunsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

// TriggerRunResponse acknowledges a started run.
type TriggerRunResponse struct {
	RunID   string `json:"runId"`
	Status  string `json:"status"`
	Trigger string `json:"trigger"`
}

// ActiveRunResponse describes the run currently executing.
type ActiveRunResponse struct {
	RunID     string    `json:"runId"`
	Trigger   string    `json:"trigger"`
	StartedAt time.Time `json:"startedAt"`
}

// IssueResponse is one compliance issue attached to a run.
type IssueResponse struct {
	Severity string `json:"severity"`
	Rep      string `json:"rep,omitempty"`
	JobID    string `json:"jobId,omitempty"`
	Message  string `json:"message"`
}

// RunResponse is one historical run.
type RunResponse struct {
	ID            string          `json:"id"`
	Trigger       string          `json:"trigger"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	Success       bool            `json:"success"`
	Partial       bool            `json:"partial"`
	Stoplight     string          `json:"stoplight"`
	Message       string          `json:"message"`
	LeadsLoaded   int             `json:"leadsLoaded"`
	LeadsEnriched int             `json:"leadsEnriched"`
	RowsWritten   int             `json:"rowsWritten"`
	Issues        []IssueResponse `json:"issues"`
}

// ToActiveRunResponse converts the service's active-run view.
func ToActiveRunResponse(active service.ActiveRun) ActiveRunResponse {
	return ActiveRunResponse{
		RunID:     active.ID.String(),
		Trigger:   active.Trigger,
		StartedAt: active.StartedAt,
	}
}

// ToRunResponse converts a persisted run.
func ToRunResponse(run runlog.Run) RunResponse {
	return RunResponse{
		ID:            run.ID.String(),
		Trigger:       run.Trigger,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Success:       run.Success,
		Partial:       run.Partial,
		Stoplight:     string(run.Stoplight),
		Message:       run.Message,
		LeadsLoaded:   run.LeadsLoaded,
		LeadsEnriched: run.LeadsEnriched,
		RowsWritten:   run.RowsWritten,
		Issues:        toIssueResponses(run.Issues),
	}
}

// ToRunResponses converts a list of persisted runs.
func ToRunResponses(runs []runlog.Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, ToRunResponse(run))
	}
	return out
}

func toIssueResponses(issues []compliance.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, IssueResponse{
			Severity: string(issue.Severity),
			Rep:      issue.Rep,
			JobID:    issue.JobID,
			Message:  issue.Message,
		})
	}
	return out
}
