package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basel-ax/shaggydog/internal/config"
	"github.com/basel-ax/shaggydog/internal/domain"
	"github.com/basel-ax/shaggydog/internal/repository"
	"github.com/basel-ax/shaggydog/internal/service"
)

const recordTimeout = 30 * time.Second

// Runner performs one full transformation
type Runner interface {
	Run(ctx context.Context, imagePath, outputDir string) (*service.Result, error)
}

// Worker drains pending transformations from the repository on a schedule
type Worker struct {
	repo         repository.TransformationRepository
	runner       Runner
	cfg          config.WorkerConfig
	generatedDir string
	logger       *zap.Logger
	newID        func() string
	mu           sync.Mutex
}

// New creates a new worker
func New(repo repository.TransformationRepository, runner Runner, cfg config.WorkerConfig, generatedDir string, logger *zap.Logger) *Worker {
	return &Worker{
		repo:         repo,
		runner:       runner,
		cfg:          cfg,
		generatedDir: generatedDir,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// Start runs ProcessBatch on the configured cron schedule until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(w.cfg.Schedule, func() {
		if !w.mu.TryLock() {
			w.logger.Debug("previous batch still running, skipping tick")
			return
		}
		defer w.mu.Unlock()

		if err := w.ProcessBatch(ctx); err != nil {
			w.logger.Error("batch failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule worker %q: %w", w.cfg.Schedule, err)
	}

	c.Start()
	w.logger.Info("worker started", zap.String("schedule", w.cfg.Schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("worker stopped")
	return nil
}

// ProcessBatch claims pending jobs and transforms them concurrently. A job
// failure is recorded on the job and never cancels its siblings; the first
// bookkeeping error is returned after every job has finished.
func (w *Worker) ProcessBatch(ctx context.Context) error {
	jobs, err := w.repo.ClaimReadyToTransform(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}
	w.logger.Info("processing transformations", zap.Int("count", len(jobs)))

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return w.process(ctx, job)
		})
	}
	return g.Wait()
}

func (w *Worker) process(ctx context.Context, job domain.Transformation) error {
	logger := w.logger.With(zap.Int("transformation_id", job.ID), zap.Int("user_id", job.UserID))

	jobCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	outputDir := filepath.Join(w.generatedDir, strconv.Itoa(job.UserID), w.newID())
	result, err := w.runner.Run(jobCtx, job.OriginalImagePath, outputDir)

	// Bookkeeping outlives shutdown so a claimed row never stays Processing.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err != nil && ctx.Err() != nil {
		logger.Warn("worker stopping, returning transformation to queue", zap.Error(err))
		if err := w.repo.UpdateStatus(recordCtx, job.ID, domain.StatusPending); err != nil {
			return fmt.Errorf("requeue transformation %d: %w", job.ID, err)
		}
		return nil
	}

	if err != nil {
		reason := err.Error()
		if stage := domain.StageOf(err); stage > 0 {
			reason = fmt.Sprintf("stage %d: %s", int(stage), reason)
		}
		logger.Error("transformation failed", zap.String("reason", reason))
		if err := w.repo.Fail(recordCtx, job.ID, reason); err != nil {
			logger.Error("failed to record failure", zap.Error(err))
			return fmt.Errorf("mark transformation %d failed: %w", job.ID, err)
		}
		return nil
	}

	if err := w.repo.Complete(recordCtx, job.ID, result.Breed, result.Manifest); err != nil {
		logger.Error("failed to record completion", zap.Error(err))
		return fmt.Errorf("complete transformation %d: %w", job.ID, err)
	}
	logger.Info("transformation completed",
		zap.String("breed", result.Breed.String()),
		zap.String("output_dir", outputDir),
	)
	return nil
}
