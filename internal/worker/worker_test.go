package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/service"
)

type fakeProcessor struct {
	mu       sync.Mutex
	queue    []models.ScheduleRequest
	outcomes map[string]service.ProcessOutcome
	cooldown bool

	processed []string
}

func (p *fakeProcessor) NextCollected(_ context.Context, _ int) ([]models.ScheduleRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ScheduleRequest, len(p.queue))
	copy(out, p.queue)
	return out, nil
}

func (p *fakeProcessor) Process(_ context.Context, req *models.ScheduleRequest) (service.ProcessOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, req.ID)
	for i, queued := range p.queue {
		if queued.ID == req.ID {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	outcome, ok := p.outcomes[req.ID]
	if !ok {
		outcome = service.ProcessCompleted
	}
	if outcome == service.ProcessCooldownRequeued {
		p.cooldown = true
		p.queue = append(p.queue, *req)
	}
	return outcome, nil
}

func (p *fakeProcessor) OnCooldown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cooldown
}

func (p *fakeProcessor) processedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.processed))
	copy(out, p.processed)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestWorkerDrainsBacklog(t *testing.T) {
	processor := &fakeProcessor{
		queue: []models.ScheduleRequest{{ID: "a"}, {ID: "b"}},
	}
	w := New(processor, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return len(processor.processedIDs()) >= 2
	})
	assert.ElementsMatch(t, []string{"a", "b"}, processor.processedIDs()[:2])
}

func TestWorkerStopsBatchOnCooldown(t *testing.T) {
	processor := &fakeProcessor{
		queue: []models.ScheduleRequest{{ID: "a"}, {ID: "b"}},
		outcomes: map[string]service.ProcessOutcome{
			"a": service.ProcessCooldownRequeued,
		},
	}
	w := New(processor, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitFor(t, 2*time.Second, func() bool {
		return len(processor.processedIDs()) >= 1
	})
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	// Once the cooldown is active, later ticks skip the backlog entirely.
	assert.Equal(t, []string{"a"}, processor.processedIDs())
}

func TestWorkerSkipsWhileOnCooldown(t *testing.T) {
	processor := &fakeProcessor{
		queue:    []models.ScheduleRequest{{ID: "a"}},
		cooldown: true,
	}
	w := New(processor, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(80 * time.Millisecond)
	w.Stop()

	assert.Empty(t, processor.processedIDs())
}
