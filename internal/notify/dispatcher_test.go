// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/notify"
)

func newCapturedLogger() (*slog.Logger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buffer, nil)), buffer
}

/*
TestDispatcher_RunsJobs verifies that scheduled jobs execute and Shutdown
waits for them.
*/
func TestDispatcher_RunsJobs(t *testing.T) {
	logger, _ := newCapturedLogger()
	dispatcher := notify.NewDispatcher(logger)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		dispatcher.Go("job", func() error {
			ran.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Shutdown(ctx))
	assert.Equal(t, int32(5), ran.Load())
}

/*
TestDispatcher_LogsFailures verifies that a failing job lands in the log
with its name, instead of vanishing.
*/
func TestDispatcher_LogsFailures(t *testing.T) {
	logger, buffer := newCapturedLogger()
	dispatcher := notify.NewDispatcher(logger)

	dispatcher.Go("confirmation_email", func() error {
		return errors.New("smtp unreachable")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Shutdown(ctx))

	assert.Contains(t, buffer.String(), "confirmation_email")
	assert.Contains(t, buffer.String(), "smtp unreachable")
}

/*
TestDispatcher_ContainsPanics verifies that a panicking job is contained
and logged.
*/
func TestDispatcher_ContainsPanics(t *testing.T) {
	logger, buffer := newCapturedLogger()
	dispatcher := notify.NewDispatcher(logger)

	dispatcher.Go("sms", func() error {
		panic("gateway blew up")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Shutdown(ctx))

	assert.Contains(t, buffer.String(), "panicked")
	assert.Contains(t, buffer.String(), "gateway blew up")
}

/*
TestDispatcher_RejectsAfterShutdown verifies that late submissions do not
run and are logged.
*/
func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	logger, buffer := newCapturedLogger()
	dispatcher := notify.NewDispatcher(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Shutdown(ctx))

	ran := false
	dispatcher.Go("late", func() error {
		ran = true
		return nil
	})

	assert.False(t, ran)
	assert.Contains(t, buffer.String(), "rejected after shutdown")
}
