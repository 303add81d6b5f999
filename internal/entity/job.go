package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition encodes the job state machine:
// queued -> processing -> completed|failed, plus queued -> failed for
// pipelines that reject a repository before doing any work.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// AnalyzeInput is what the analysis pipeline receives for one job.
// GitHubToken is optional and must never appear in logs.
type AnalyzeInput struct {
	RepoURL     string `json:"repo_url"`
	GitHubToken string `json:"github_token,omitempty"`
}

// AnalysisResult is present exactly when the job completed.
type AnalysisResult struct {
	Summary string `json:"summary"`
	Mermaid string `json:"mermaid"`
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Status    JobStatus       `json:"status"`
	Input     AnalyzeInput    `json:"input"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
