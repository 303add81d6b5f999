package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoarchitect/internal/entity"
	"autoarchitect/internal/service"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// JobRepository is the durable store. Transition guards live in the UPDATE
// statements themselves (WHERE status = ...), so a racing transition affects
// zero rows and is reported as invalid instead of clobbering the newer state.
type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, input entity.AnalyzeInput) (*entity.Job, error) {
	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO jobs (status, input)
VALUES ('queued', $1)
RETURNING id, created_at, updated_at;
`
	job := entity.Job{Status: entity.StatusQueued, Input: input}
	if err := r.pool.QueryRow(ctx, q, rawInput).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, status, input, result, error, created_at, updated_at
FROM jobs
WHERE id = $1;
`

	var (
		job         entity.Job
		statusText  string
		inputBytes  []byte
		resultBytes []byte
		errText     *string
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&statusText,
		&inputBytes,
		&resultBytes, // NULL => nil
		&errText,     // NULL => nil
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}

	job.Status = entity.JobStatus(statusText)
	if err := json.Unmarshal(inputBytes, &job.Input); err != nil {
		return nil, err
	}
	if resultBytes != nil {
		var res entity.AnalysisResult
		if err := json.Unmarshal(resultBytes, &res); err != nil {
			return nil, err
		}
		job.Result = &res
	}
	job.Error = errText

	return &job, nil
}

func (r *JobRepository) SetProcessing(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE jobs SET status='processing', updated_at=now()
WHERE id=$1 AND status='queued';
`
	return r.guardedExec(ctx, id, q)
}

func (r *JobRepository) SetResultCompleted(ctx context.Context, id uuid.UUID, result entity.AnalysisResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	const q = `
UPDATE jobs SET status='completed', result=$2, error=NULL, updated_at=now()
WHERE id=$1 AND status='processing';
`
	tag, err := r.pool.Exec(ctx, q, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *JobRepository) SetResultFailed(ctx context.Context, id uuid.UUID, errText string) error {
	const q = `
UPDATE jobs SET status='failed', error=$2, result=NULL, updated_at=now()
WHERE id=$1 AND status IN ('queued', 'processing');
`
	tag, err := r.pool.Exec(ctx, q, id, errText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *JobRepository) guardedExec(ctx context.Context, id uuid.UUID, q string) error {
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// missReason tells a missing row apart from a guard miss so callers get
// ErrNotFound vs ErrInvalidTransition.
func (r *JobRepository) missReason(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id=$1);`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return service.ErrNotFound
	}
	return service.ErrInvalidTransition
}
