/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	spinRounds      = 64
	spinMaxBackoffU = 256 // microseconds
)

// SpinLock guards short critical sections such as appending a batch to a shared stream.
// Contended lockers spin a few rounds, then back off for a random, growing interval.
type SpinLock struct {
	state int32
}

func (l *SpinLock) TryLock() bool {
	return atomic.CompareAndSwapInt32(&l.state, 0, 1)
}

func (l *SpinLock) Lock() {
	backoff := 1
	for i := 0; !l.TryLock(); i++ {
		if i < spinRounds {
			runtime.Gosched()
			continue
		}
		time.Sleep(time.Duration(rand.Intn(backoff)+1) * time.Microsecond)
		if backoff < spinMaxBackoffU {
			backoff *= 2
		}
	}
}

func (l *SpinLock) Unlock() {
	if !atomic.CompareAndSwapInt32(&l.state, 1, 0) {
		panic("common.SpinLock: unlock of unlocked lock")
	}
}
