/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"sync"
	"sync/atomic"
)

// Rtn is the run-wide "continue?" flag. Once stopped, dispatch loops stop
// scheduling and fetch loops stop at the next batch boundary. Work already
// running is never interrupted.
type Rtn struct {
	stopped    int32
	shutdownCh chan struct{}
	once       sync.Once
}

func NewRtn() *Rtn {
	return &Rtn{shutdownCh: make(chan struct{})}
}

// Continue reports whether the run may go on. A nil Rtn always continues.
func (r *Rtn) Continue() bool {
	if r == nil {
		return true
	}
	return atomic.LoadInt32(&r.stopped) == 0
}

func (r *Rtn) Stop() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		atomic.StoreInt32(&r.stopped, 1)
		close(r.shutdownCh)
	})
}

// ShutdownCh is closed by Stop.
func (r *Rtn) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}
