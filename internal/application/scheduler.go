package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a deferred or repeating job owned by a Scheduler
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the task. A task already running sees its context cancelled.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the task has finished or been cancelled
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Name returns the label the task was scheduled with
func (t *Task) Name() string {
	return t.name
}

// Scheduler runs background tasks with cancellation tokens, so pending
// work can be cancelled deterministically instead of fired and forgotten.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending int           // one-shot tasks not yet finished
	idle    chan struct{} // closed while pending == 0
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler; Close releases it
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		idle:   idle,
	}
}

// After runs fn once after delay unless cancelled first
func (s *Scheduler) After(name string, delay time.Duration, fn func(ctx context.Context)) *Task {
	task, ctx := s.register(name, true)

	go func() {
		defer s.finish(task, true)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.run(ctx, task, fn)
	}()

	return task
}

// Every runs fn each interval until cancelled. Wait does not wait for it.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) *Task {
	task, ctx := s.register(name, false)

	go func() {
		defer s.finish(task, false)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, task, fn)
			}
		}
	}()

	return task
}

func (s *Scheduler) register(name string, oneShot bool) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(s.ctx)
	task := &Task{name: name, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if oneShot {
		if s.pending == 0 {
			s.idle = make(chan struct{})
		}
		s.pending++
	}
	s.wg.Add(1)
	s.mu.Unlock()

	return task, ctx
}

func (s *Scheduler) run(ctx context.Context, task *Task, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				slog.String("task", task.name),
				slog.Any("panic", r))
		}
	}()
	fn(ctx)
}

func (s *Scheduler) finish(task *Task, oneShot bool) {
	task.cancel()
	close(task.done)

	s.mu.Lock()
	if oneShot {
		s.pending--
		if s.pending == 0 {
			close(s.idle)
		}
	}
	s.mu.Unlock()
	s.wg.Done()
}

// Pending returns how many one-shot tasks have not finished yet
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until no one-shot task is pending or ctx is done
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Close cancels all tasks and waits for their goroutines to exit
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
