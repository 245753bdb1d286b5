package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/log"
)

// Sweeper runs SyncPending on a cron schedule until stopped.
type Sweeper struct {
	worker   *SyncWorker
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewSweeper(w *SyncWorker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		worker:   w,
		interval: interval,
		logger:   logger.With(log.FieldComponent, log.ComponentWorker),
	}
}

// Spec converts the interval into a cron "@every" expression with second resolution.
func Spec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}

// Start sweeps once immediately and then on every tick. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	spec, err := Spec(s.interval)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { s.sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	s.running = true

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.sweep(runCtx)
	}()
	c.Start()

	s.logger.InfoContext(ctx, "Sweeper started", "schedule", spec)
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.worker.SyncPending(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Pending sweep failed", log.FieldError, err)
	}
}

// Stop cancels in-flight sweeps and waits for the running job, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	cronDone := c.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.InfoContext(ctx, "Sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
