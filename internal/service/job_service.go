package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	giturls "github.com/whilp/git-urls"

	"autoarchitect/internal/entity"
)

var (
	// ErrInvalidInput: the submission itself is malformed (bad repo URL).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound: no job with that id in the store.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition: monotonicity violated or payload does not match
	// the target status. Indicates a bug in the calling pipeline.
	ErrInvalidTransition = errors.New("invalid transition")
)

// JobRepository is the store port (implementations: repository/memory,
// repository/postgresql). The Set* methods enforce the state machine and
// return ErrInvalidTransition on a guard miss, so concurrent callers can
// never race a job out of order.
type JobRepository interface {
	Create(ctx context.Context, input entity.AnalyzeInput) (*entity.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	SetProcessing(ctx context.Context, id uuid.UUID) error
	SetResultCompleted(ctx context.Context, id uuid.UUID, result entity.AnalysisResult) error
	SetResultFailed(ctx context.Context, id uuid.UUID, errText string) error
}

// JobQueue is the narrow enqueue-only port used on the submission path.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// JobService is the job lifecycle controller: it owns submission validation,
// job creation and the transition operations the analysis pipeline calls.
type JobService struct {
	repo  JobRepository
	queue JobQueue
}

func NewJobService(repo JobRepository, queue JobQueue) *JobService {
	return &JobService{repo: repo, queue: queue}
}

type CreateJobRequest struct {
	RepoURL     string
	GitHubToken string
}

// CreateJob validates the submission, stores a queued job and hands its id to
// the queue. It returns immediately; whether the repository actually exists is
// the pipeline's problem and surfaces later via the job's error field.
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (uuid.UUID, error) {
	if err := validateRepoURL(req.RepoURL); err != nil {
		return uuid.Nil, err
	}

	job, err := s.repo.Create(ctx, entity.AnalyzeInput{
		RepoURL:     req.RepoURL,
		GitHubToken: req.GitHubToken,
	})
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.queue.Enqueue(ctx, job.ID.String()); err != nil {
		return uuid.Nil, err
	}

	return job.ID, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// TransitionPayload carries the data a target status requires: Result for
// completed, Error for failed, neither for processing.
type TransitionPayload struct {
	Result *entity.AnalysisResult
	Error  string
}

// Transition moves a job along the state machine on behalf of the analysis
// pipeline. Rejections are logged: an invalid transition means a collaborator
// is misbehaving, not a user error.
func (s *JobService) Transition(ctx context.Context, id uuid.UUID, to entity.JobStatus, payload TransitionPayload) error {
	err := s.apply(ctx, id, to, payload)
	if errors.Is(err, ErrInvalidTransition) {
		log.Printf("[controller] job_id=%s transition=%s rejected: %v", id.String(), to, err)
	}
	return err
}

func (s *JobService) apply(ctx context.Context, id uuid.UUID, to entity.JobStatus, payload TransitionPayload) error {
	switch to {
	case entity.StatusProcessing:
		return s.repo.SetProcessing(ctx, id)
	case entity.StatusCompleted:
		if payload.Result == nil {
			return fmt.Errorf("%w: completed requires a result", ErrInvalidTransition)
		}
		return s.repo.SetResultCompleted(ctx, id, *payload.Result)
	case entity.StatusFailed:
		if payload.Error == "" {
			return fmt.Errorf("%w: failed requires an error", ErrInvalidTransition)
		}
		return s.repo.SetResultFailed(ctx, id, payload.Error)
	default:
		return fmt.Errorf("%w: cannot transition to %q", ErrInvalidTransition, to)
	}
}

// validateRepoURL accepts http(s)/git/ssh URLs that name a host and at least
// an owner/repo path. Reachability of the repository is not checked here.
func validateRepoURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: repo_url is required", ErrInvalidInput)
	}

	u, err := giturls.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch u.Scheme {
	case "http", "https", "git", "ssh":
	default:
		return fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidInput)
	}

	path := strings.Trim(strings.TrimSuffix(u.Path, ".git"), "/")
	if parts := strings.Split(path, "/"); len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: url must name owner/repo", ErrInvalidInput)
	}
	return nil
}
