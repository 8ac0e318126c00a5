/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrCancelled = errors.New("unload cancelled")
)

// InvalidParamValueError is a fatal configuration error: a malformed delimiter,
// an unknown output scheme or macro, an output that cannot be opened.
type InvalidParamValueError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidParamValueError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid value for %v: %q", e.Param, e.Value)
	}
	return fmt.Sprintf("invalid value for %v: %q: %v", e.Param, e.Value, e.Reason)
}

func NewInvalidParamValue(param string, value string, reason string) error {
	return &InvalidParamValueError{Param: param, Value: value, Reason: reason}
}

func IsInvalidParamValue(err error) bool {
	_, ok := errors.Cause(err).(*InvalidParamValueError)
	return ok
}

// ErrSlot keeps the first error stored into it. It is shared by concurrently
// running tasks; which failing task wins depends on completion order.
type ErrSlot struct {
	mu  sync.Mutex
	err error
}

// Set records err if no error was recorded before. Returns true if err was recorded.
func (s *ErrSlot) Set(err error) bool {
	if s == nil || err == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false
	}
	s.err = err
	return true
}

func (s *ErrSlot) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
