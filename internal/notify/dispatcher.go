// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher runs delivery jobs on supervised background goroutines.
//
// Account flows must not block on SMTP or SMS gateways, but dropped
// deliveries must not vanish either: every job is tracked, panics are
// contained, and failures land in the structured log with the job name.
//
// # Concurrency
//
// Safe for concurrent use. Shutdown waits for in-flight jobs.
type Dispatcher struct {
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher constructs a [Dispatcher] logging onto the given logger.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

/*
Go schedules a delivery job.

Description: The job runs on its own goroutine. A returned error or a panic
is logged under the job name; neither propagates to the caller. Jobs
submitted after Shutdown are rejected with a log entry instead of running.

Parameters:
  - name: string (Job label for the log)
  - job: func() error
*/
func (dispatcher *Dispatcher) Go(name string, job func() error) {
	dispatcher.mu.Lock()
	if dispatcher.closed {
		dispatcher.mu.Unlock()
		dispatcher.logger.Warn("notify job rejected after shutdown", slog.String("job", name))
		return
	}
	dispatcher.wg.Add(1)
	dispatcher.mu.Unlock()

	go func() {
		defer dispatcher.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				dispatcher.logger.Error("notify job panicked",
					slog.String("job", name),
					slog.Any("panic", recovered),
				)
			}
		}()

		if err := job(); err != nil {
			dispatcher.logger.Error("notify job failed",
				slog.String("job", name),
				slog.Any("error", err),
			)
		}
	}()
}

/*
Shutdown waits for in-flight jobs to finish.

Parameters:
  - context: context.Context (Deadline bounds the wait)

Returns:
  - error: context error when the deadline expires first
*/
func (dispatcher *Dispatcher) Shutdown(context context.Context) error {
	dispatcher.mu.Lock()
	dispatcher.closed = true
	dispatcher.mu.Unlock()

	done := make(chan struct{})
	go func() {
		dispatcher.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-context.Done():
		return context.Err()
	}
}
