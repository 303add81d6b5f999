// Package client is the Go client for the analysis API: submit a repository,
// query a job, or watch a job until it reaches a terminal state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	ErrNotFound       = errors.New("job not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// ConnectivityError wraps a failure of the status query itself (transport
// fault, bad response) as opposed to a failure of the analysis.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return "connectivity: " + e.Err.Error() }
func (e *ConnectivityError) Unwrap() error { return e.Err }

// AnalysisError carries the pipeline's failure message verbatim.
type AnalysisError struct {
	Message string
}

func (e *AnalysisError) Error() string { return e.Message }

type Result struct {
	Summary string `json:"summary"`
	Mermaid string `json:"mermaid"`
}

type Job struct {
	JobID  string  `json:"job_id"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWithHTTPClient is for callers that need their own transport (tests,
// custom timeouts).
func NewWithHTTPClient(baseURL string, httpc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpc: httpc}
}

// Analyze submits a repository and returns the new job id. The call returns as
// soon as the job is queued; it never waits for the analysis.
func (c *Client) Analyze(ctx context.Context, repoURL, githubToken string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"repo_url":     repoURL,
		"github_token": githubToken,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrInvalidRequest, readMessage(resp.Body))
	default:
		return "", &ConnectivityError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ConnectivityError{Err: err}
	}
	return out.JobID, nil
}

// GetJob fetches the current state of one job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, readMessage(resp.Body))
	default:
		return nil, &ConnectivityError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	return &job, nil
}

func readMessage(r io.Reader) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Message == "" {
		return "request rejected"
	}
	return e.Message
}
