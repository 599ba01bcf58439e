package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/pkg/logger"
	"FinTrend/pkg/queue"
)

// JobTypeDecompose is the queue message type for symbol decompositions.
const JobTypeDecompose = "decompose.symbols"

// ErrJobsDisabled is returned when no queue is configured.
var ErrJobsDisabled = errors.New("job queue not configured")

// DecomposeJobPayload is the queued unit of work.
type DecomposeJobPayload struct {
	JobID   string   `json:"job_id"`
	Symbols []string `json:"symbols"`
	N       int      `json:"n"`
	TF      string   `json:"tf"`
}

// JobsUseCase submits decompositions to the queue and reports their status.
type JobsUseCase struct {
	enq       queue.Enqueuer
	jobs      domrepo.JobStore
	decompose *DecomposeUseCase
}

func NewJobsUseCase(enq queue.Enqueuer, jobs domrepo.JobStore, decompose *DecomposeUseCase) *JobsUseCase {
	return &JobsUseCase{enq: enq, jobs: jobs, decompose: decompose}
}

// Submit records a queued status and enqueues the job. It fails fast when
// the engine is unavailable.
func (uc *JobsUseCase) Submit(ctx context.Context, req models.DecomposeJobRequest) (string, error) {
	if uc.enq == nil || uc.jobs == nil {
		return "", ErrJobsDisabled
	}
	if capb := uc.decompose.Capability(); !capb.Available {
		return "", &domsvc.UnavailableError{Reason: capb.Reason}
	}

	id := uuid.NewString()
	if err := uc.jobs.PutStatus(ctx, &models.JobStatus{ID: id, State: models.JobQueued, UpdatedAt: time.Now().UTC()}); err != nil {
		return "", err
	}
	payload := DecomposeJobPayload{JobID: id, Symbols: req.Symbols, N: req.N, TF: req.TF}
	if err := uc.enq.Enqueue(ctx, JobTypeDecompose, payload); err != nil {
		_ = uc.jobs.PutStatus(ctx, &models.JobStatus{ID: id, State: models.JobFailed, Error: err.Error(), UpdatedAt: time.Now().UTC()})
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

func (uc *JobsUseCase) Status(ctx context.Context, id string) (*models.JobStatus, error) {
	if uc.jobs == nil {
		return nil, ErrJobsDisabled
	}
	return uc.jobs.GetStatus(ctx, id)
}

// DecomposeJob executes queued decompositions.
type DecomposeJob struct {
	decompose *DecomposeUseCase
	jobs      domrepo.JobStore
	logger    *logger.Logger
}

func NewDecomposeJob(decompose *DecomposeUseCase, jobs domrepo.JobStore, l *logger.Logger) *DecomposeJob {
	if l == nil {
		l = logger.Nop()
	}
	return &DecomposeJob{decompose: decompose, jobs: jobs, logger: l}
}

func (j *DecomposeJob) Name() string { return "decompose" }
func (j *DecomposeJob) Type() string { return JobTypeDecompose }

// Handle runs one job. An unavailable engine fails the job without retry;
// other errors are returned so the queue retries.
func (j *DecomposeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.DecodePayload[DecomposeJobPayload](payload)
	if err != nil {
		return err
	}
	j.setStatus(ctx, &models.JobStatus{ID: p.JobID, State: models.JobRunning})

	run, err := j.decompose.DecomposeSymbols(ctx, DecomposeSymbolsParams{
		Symbols:   p.Symbols,
		N:         p.N,
		Timeframe: domrepo.NormalizeTimeframe(p.TF),
	})
	if err != nil {
		j.setStatus(ctx, &models.JobStatus{ID: p.JobID, State: models.JobFailed, Error: err.Error()})
		if domsvc.IsUnavailable(err) {
			j.logger.Warn("decompose job dropped", logger.String("job_id", p.JobID), logger.Error(err))
			return nil
		}
		return err
	}
	j.setStatus(ctx, &models.JobStatus{ID: p.JobID, State: models.JobDone, Run: run})
	return nil
}

func (j *DecomposeJob) setStatus(ctx context.Context, st *models.JobStatus) {
	if j.jobs == nil || st.ID == "" {
		return
	}
	st.UpdatedAt = time.Now().UTC()
	if err := j.jobs.PutStatus(ctx, st); err != nil {
		j.logger.Warn("update job status failed", logger.String("job_id", st.ID), logger.Error(err))
	}
}

var _ queue.Job = (*DecomposeJob)(nil)
