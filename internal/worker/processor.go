package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"autoarchitect/internal/entity"
	"autoarchitect/internal/pipeline"
	"autoarchitect/internal/service"
)

// Controller is the slice of the job lifecycle controller the pipeline side
// needs: read a job by id and report transitions back.
type Controller interface {
	GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Transition(ctx context.Context, id uuid.UUID, to entity.JobStatus, payload service.TransitionPayload) error
}

type Processor struct {
	ctrl     Controller
	analyzer pipeline.Analyzer

	// defaultToken is used for submissions that carry no github_token.
	defaultToken string
}

func NewProcessor(ctrl Controller, analyzer pipeline.Analyzer, defaultToken string) *Processor {
	return &Processor{ctrl: ctrl, analyzer: analyzer, defaultToken: defaultToken}
}

// Process runs the analysis for one claimed job id and drives the job through
// processing to completed or failed. A job that is already terminal (e.g.
// failed early, or a duplicate delivery from the queue) is skipped.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	id, err := uuid.Parse(jobID)
	if err != nil {
		log.Printf("[worker] job_id=%s parse_error=%v", jobID, err)
		return err
	}

	if err := p.ctrl.Transition(ctx, id, entity.StatusProcessing, service.TransitionPayload{}); err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			log.Printf("[worker] job_id=%s skip: already terminal or in flight", id.String())
			return nil
		}
		log.Printf("[worker] job_id=%s transition=processing error=%v", id.String(), err)
		return err
	}

	job, err := p.ctrl.GetJob(ctx, id)
	if err != nil {
		log.Printf("[worker] job_id=%s get_job error=%v", id.String(), err)
		return err
	}

	log.Printf("[worker] job_id=%s repo=%s status=processing", id.String(), job.Input.RepoURL)

	input := job.Input
	if input.GitHubToken == "" {
		input.GitHubToken = p.defaultToken
	}

	result, procErr := p.analyzer.Analyze(ctx, input)
	if procErr != nil {
		msg := procErr.Error()
		if err := p.ctrl.Transition(ctx, id, entity.StatusFailed, service.TransitionPayload{Error: msg}); err != nil {
			log.Printf("[worker] job_id=%s set_failed error=%v", id.String(), err)
		}

		log.Printf("[worker] job_id=%s repo=%s status=failed duration_ms=%d error=%s",
			id.String(), job.Input.RepoURL, time.Since(start).Milliseconds(), msg,
		)
		return procErr
	}

	if err := p.ctrl.Transition(ctx, id, entity.StatusCompleted, service.TransitionPayload{Result: result}); err != nil {
		log.Printf("[worker] job_id=%s set_completed error=%v", id.String(), err)
		return err
	}

	log.Printf("[worker] job_id=%s repo=%s status=completed duration_ms=%d",
		id.String(), job.Input.RepoURL, time.Since(start).Milliseconds(),
	)
	return nil
}
