/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	hlog "hdxloop/internal/log"
)

// Handle is one background job.
type Handle struct {
	ID   string
	Name string

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel asks the job to stop. It does not wait.
func (h *Handle) Cancel() { h.cancel() }

// Done closes when the job has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the job result, valid after Done.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Jobs runs background work under one parent context.
type Jobs struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	wg     sync.WaitGroup
	mtx    sync.Mutex
	active map[string]*Handle
}

func NewJobs(logger *slog.Logger) *Jobs {
	ctx, cancel := context.WithCancel(context.Background())
	return &Jobs{
		ctx:    ctx,
		cancel: cancel,
		log:    hlog.Or(logger),
		active: make(map[string]*Handle),
	}
}

// Go starts fn in its own goroutine. After CancelAll the job still runs,
// with an already cancelled context.
func (j *Jobs) Go(name string, fn func(ctx context.Context) error) *Handle {
	ctx, cancel := context.WithCancel(j.ctx)
	h := &Handle{
		ID:     uuid.NewString(),
		Name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	j.mtx.Lock()
	j.active[h.ID] = h
	j.mtx.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer cancel()

		h.err = fn(ctx)
		switch {
		case h.err == nil:
			j.log.Debug("job finished", "job", name, "id", h.ID)
		case errors.Is(h.err, context.Canceled):
			j.log.Debug("job cancelled", "job", name, "id", h.ID)
		default:
			j.log.Warn("job failed", "job", name, "id", h.ID, "err", h.err)
		}

		j.mtx.Lock()
		delete(j.active, h.ID)
		j.mtx.Unlock()
		close(h.done)
	}()

	return h
}

// Active is the number of jobs still running.
func (j *Jobs) Active() int {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	return len(j.active)
}

// Wait blocks until every started job has returned.
func (j *Jobs) Wait() { j.wg.Wait() }

// CancelAll cancels every job, running or future.
func (j *Jobs) CancelAll() { j.cancel() }
