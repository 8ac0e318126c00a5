/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"sync"
)

// Pool is a fixed set of reusable resources handed out one at a time.
// It works as a counting semaphore whose tokens are the resources themselves;
// free resources are kept on a stack, so the most recently returned one is reused first.
type Pool[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	free     []T
	capacity int
}

func NewPool[T any](items []T) *Pool[T] {
	p := &Pool[T]{
		free:     make([]T, len(items), len(items)),
		capacity: len(items),
	}
	copy(p.free, items)
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pop blocks until a resource is free and checks it out.
func (p *Pool[T]) Pop() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) == 0 {
		p.cond.Wait()
	}
	return p.popLocked()
}

// TryPop checks out a resource if one is free, without blocking.
func (p *Pool[T]) TryPop() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return item, false
	}
	return p.popLocked(), true
}

func (p *Pool[T]) popLocked() T {
	n := len(p.free) - 1
	item := p.free[n]
	var zero T
	p.free[n] = zero
	p.free = p.free[:n]
	return item
}

// Push returns a checked out resource and wakes the waiters.
func (p *Pool[T]) Push(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.capacity {
		panic("common.Pool: push on a full pool")
	}
	p.free = append(p.free, item)
	// Pop waiters and Synchronize waiters share the cond.
	p.cond.Broadcast()
}

// Synchronize blocks until every checked out resource has been returned.
func (p *Pool[T]) Synchronize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) < p.capacity {
		p.cond.Wait()
	}
}

// Outstanding is the number of resources currently checked out.
func (p *Pool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.free)
}

func (p *Pool[T]) Capacity() int {
	return p.capacity
}
