package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoarchitect/internal/entity"
	"autoarchitect/internal/service"
)

// JobRepository is a mutex-guarded in-memory store. It is the default backing
// for single-process runs and the store used by tests. Every mutation runs its
// state-machine guard under the same lock as the write, so concurrent
// transitions on one job serialize and out-of-order attempts are rejected.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (r *JobRepository) Create(ctx context.Context, input entity.AnalyzeInput) (*entity.Job, error) {
	now := time.Now().UTC()
	job := &entity.Job{
		ID:        uuid.New(),
		Status:    entity.StatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	out := *job
	return &out, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, service.ErrNotFound
	}

	out := *job
	return &out, nil
}

func (r *JobRepository) SetProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(id, entity.StatusProcessing, func(j *entity.Job) {})
}

func (r *JobRepository) SetResultCompleted(ctx context.Context, id uuid.UUID, result entity.AnalysisResult) error {
	return r.transition(id, entity.StatusCompleted, func(j *entity.Job) {
		res := result
		j.Result = &res
		j.Error = nil
	})
}

func (r *JobRepository) SetResultFailed(ctx context.Context, id uuid.UUID, errText string) error {
	return r.transition(id, entity.StatusFailed, func(j *entity.Job) {
		msg := errText
		j.Error = &msg
		j.Result = nil
	})
}

func (r *JobRepository) transition(id uuid.UUID, to entity.JobStatus, apply func(*entity.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return service.ErrNotFound
	}
	if !entity.CanTransition(job.Status, to) {
		return service.ErrInvalidTransition
	}

	job.Status = to
	apply(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}
