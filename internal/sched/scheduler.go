package sched

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs fire-and-forget delayed tasks, such as removing an
// ephemeral notice after a fixed delay. Tasks are tied to the scheduler's
// runtime context: stopping the scheduler cancels pending timers and waits
// for running tasks.
type Scheduler struct {
	mu         sync.Mutex
	started    bool
	runtimeCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Handle cancels a single scheduled task.
type Handle struct {
	cancel context.CancelFunc
}

func (h *Handle) Cancel() {
	if h != nil && h.cancel != nil {
		h.cancel()
	}
}

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.runtimeCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// After runs the task once the delay elapses, unless the returned handle
// or the scheduler is cancelled first.
func (s *Scheduler) After(delay time.Duration, task func(ctx context.Context)) *Handle {
	runCtx, cancel := context.WithCancel(s.getRuntimeContext())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
			task(runCtx)
		}
	}()

	return &Handle{cancel: cancel}
}

func (s *Scheduler) getRuntimeContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtimeCtx != nil {
		return s.runtimeCtx
	}
	return context.Background()
}
