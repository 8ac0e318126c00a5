/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"io"
	"runtime/debug"

	"github.com/actiontech/xtru/g"
	"github.com/pkg/errors"
)

// worker is a dispatch slot. A task runs on its own goroutine while holding one.
type worker struct {
	id int
}

// Dispatcher runs queued tasks with bounded parallelism.
type Dispatcher[T any] struct {
	Concurrency int
	Rtn         *Rtn
	Logger      g.LoggerType
}

func NewDispatcher[T any](concurrency int, rtn *Rtn, logger g.LoggerType) *Dispatcher[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = g.NewNullLogger()
	}
	return &Dispatcher[T]{
		Concurrency: concurrency,
		Rtn:         rtn,
		Logger:      logger,
	}
}

// Synchronize is a shortcut for NewDispatcher(concurrency, rtn, nil).Run(queue, action).
func Synchronize[T any](concurrency int, queue []T, action func(T) error, rtn *Rtn) error {
	return NewDispatcher[T](concurrency, rtn, nil).Run(queue, action)
}

// Run takes tasks from the front of queue, one at a time, and runs action on each
// as soon as a slot is free. At most Concurrency actions run at once.
//
// A task that implements io.Closer is closed by the goroutine that ran it, right after
// its action, whatever the outcome. Tasks never dispatched are closed before Run returns.
//
// Once an action fails, or Rtn is stopped, no further task is dispatched; tasks already
// running are waited for. The first recorded error (by completion order) is returned.
func (d *Dispatcher[T]) Run(queue []T, action func(T) error) (err error) {
	workers := make([]*worker, d.Concurrency)
	for i := range workers {
		workers[i] = &worker{id: i}
	}
	pool := NewPool(workers)
	errSlot := &ErrSlot{}

	func() {
		defer pool.Synchronize()
		for len(queue) > 0 {
			if errSlot.Err() != nil || !d.Rtn.Continue() {
				return
			}
			w := pool.Pop()
			if errSlot.Err() != nil || !d.Rtn.Continue() {
				pool.Push(w)
				return
			}

			task := queue[0]
			var zero T
			queue[0] = zero
			queue = queue[1:]

			go d.dispatch(pool, w, task, action, errSlot)
		}
	}()

	for i := range queue {
		closeTask(queue[i])
	}

	if err = errSlot.Err(); err != nil {
		return err
	}
	if len(queue) > 0 {
		d.Logger.Warn("dispatch stopped", "undispatched", len(queue))
		return ErrCancelled
	}
	return nil
}

func (d *Dispatcher[T]) dispatch(pool *Pool[*worker], w *worker, task T, action func(T) error, errSlot *ErrSlot) {
	defer pool.Push(w)
	defer closeTask(task)
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("task panic", "worker", w.id, "panic", r, "stack", string(debug.Stack()))
			errSlot.Set(errors.Errorf("task panic: %v", r))
		}
	}()

	d.Logger.Trace("task start", "worker", w.id)
	if err := action(task); err != nil {
		d.Logger.Debug("task failed", "worker", w.id, "err", err)
		if errSlot.Set(err) {
			d.Logger.Error("first task error recorded. no more tasks will be dispatched", "err", err)
		}
		return
	}
	d.Logger.Trace("task done", "worker", w.id)
}

func closeTask(task interface{}) {
	if c, ok := task.(io.Closer); ok {
		_ = c.Close()
	}
}
