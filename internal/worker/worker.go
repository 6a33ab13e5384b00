package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/service"
)

type scheduleProcessor interface {
	NextCollected(ctx context.Context, limit int) ([]models.ScheduleRequest, error)
	Process(ctx context.Context, req *models.ScheduleRequest) (service.ProcessOutcome, error)
	OnCooldown() bool
}

// Worker drains collected requests one at a time. A single consumer keeps
// oracle key rotation and the cooldown state machine strictly sequential.
type Worker struct {
	processor    scheduleProcessor
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func New(processor scheduleProcessor, pollInterval time.Duration, logger *zap.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		batchSize:    10,
		logger:       logger,
	}
}

// Start launches the polling loop.
func (w *Worker) Start(ctx context.Context) {
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("schedule worker started", zap.Duration("pollInterval", w.pollInterval))
}

// Stop halts the loop and waits for any in-flight request to finish.
func (w *Worker) Stop() {
	w.once.Do(func() {
		close(w.stop)
	})
	w.wg.Wait()
	w.logger.Info("schedule worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes the current backlog. When the cooldown activates mid-batch
// the remainder stays queued for a later tick.
func (w *Worker) drain(ctx context.Context) {
	if w.processor.OnCooldown() {
		return
	}

	requests, err := w.processor.NextCollected(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to poll collected requests", zap.Error(err))
		return
	}

	for i := range requests {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		req := requests[i]
		outcome, err := w.processor.Process(ctx, &req)
		if err != nil {
			w.logger.Error("request processing failed",
				zap.String("requestId", req.ID),
				zap.Error(err))
			continue
		}

		w.logger.Info("request processed",
			zap.String("requestId", req.ID),
			zap.String("outcome", string(outcome)))

		if outcome == service.ProcessCooldownRequeued {
			return
		}
	}
}
