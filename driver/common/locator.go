/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/actiontech/xtru/g"
	"github.com/hashicorp/go-multierror"
	"github.com/leekchan/timeutil"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	SchemeFile      = "file"
	SchemeIpcPipe   = "ipc_pipe"
	SchemeNamedPipe = "named_pipe"
)

// Macros are the values substituted into an output spec.
type Macros struct {
	OutputDir string    // {O}
	Table     string    // {T}
	Partition string    // {P}
	Extension string    // {X}
	JobStart  time.Time // {D=fmt}
}

// Combined is the {C} macro: the table name, followed by the partition if any.
func (m *Macros) Combined() string {
	if m.Partition == "" {
		return m.Table
	}
	return m.Table + "_" + m.Partition
}

// Expand substitutes every {..} macro of spec.
func (m *Macros) Expand(spec string) (string, error) {
	var sb strings.Builder
	rest := spec
	for {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		sb.WriteString(rest[:i])
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			return "", NewInvalidParamValue("output", spec, "unterminated macro")
		}
		name := rest[i+1 : i+j]
		rest = rest[i+j+1:]

		v, err := m.expandOne(name)
		if err != nil {
			return "", NewInvalidParamValue("output", spec, err.Error())
		}
		sb.WriteString(v)
	}
}

func (m *Macros) expandOne(name string) (string, error) {
	switch name {
	case "O":
		return m.OutputDir, nil
	case "T":
		return m.Table, nil
	case "P":
		return m.Partition, nil
	case "C":
		return m.Combined(), nil
	case "X":
		return m.Extension, nil
	}
	if len(name) < 2 || name[1] != '=' {
		return "", errors.Errorf("unknown macro {%v}", name)
	}
	arg := name[2:]
	switch name[0] {
	case 'E':
		return os.Getenv(arg), nil
	case 'D':
		t := m.JobStart
		if t.IsZero() {
			t = time.Now()
		}
		return timeutil.Strftime(&t, arg), nil
	case 'W':
		t := time.Now()
		return timeutil.Strftime(&t, arg), nil
	default:
		return "", errors.Errorf("unknown macro {%v}", name)
	}
}

// SplitScheme separates "scheme://target". A spec without a scheme is a file path.
func SplitScheme(spec string) (scheme string, target string) {
	i := strings.Index(spec, "://")
	if i < 0 {
		return SchemeFile, spec
	}
	return spec[:i], spec[i+3:]
}

// Locator opens output streams from specs. Specs resolving to the same target
// share one Stream, so several tasks may append to one file. A file is truncated
// the first time it is opened by a Locator; later opens append.
type Locator struct {
	logger g.LoggerType

	mu      sync.Mutex
	streams map[string]*Stream
	seen    map[string]bool
}

func NewLocator(logger g.LoggerType) *Locator {
	if logger == nil {
		logger = g.NewNullLogger()
	}
	return &Locator{
		logger:  logger,
		streams: make(map[string]*Stream),
		seen:    make(map[string]bool),
	}
}

// Open resolves spec with macros and returns a stream. Every successful Open must be
// paired with a Close of the returned stream.
func (l *Locator) Open(spec string, macros *Macros) (*Stream, error) {
	expanded, err := macros.Expand(spec)
	if err != nil {
		return nil, err
	}
	scheme, target := SplitScheme(expanded)
	if target == "" {
		return nil, NewInvalidParamValue("output", spec, "empty target")
	}
	key := scheme + "://" + target

	switch scheme {
	case SchemeFile, SchemeIpcPipe, SchemeNamedPipe:
	default:
		return nil, NewInvalidParamValue("output", spec, "unknown scheme "+scheme)
	}

	l.mu.Lock()
	if s, ok := l.streams[key]; ok {
		s.refs++
		l.mu.Unlock()
		// another task may still be opening it
		<-s.ready
		if s.openErr != nil {
			return nil, s.openErr
		}
		return s, nil
	}
	s := &Stream{
		locator: l,
		key:     key,
		Scheme:  scheme,
		Target:  target,
		refs:    1,
		ready:   make(chan struct{}),
	}
	reopen := l.seen[key]
	l.streams[key] = s
	l.seen[key] = true
	l.mu.Unlock()

	// Opening a named pipe blocks until a reader attaches, so l.mu must not be held here.
	switch scheme {
	case SchemeFile:
		err = s.openFile(reopen)
	case SchemeIpcPipe:
		err = s.openIpcPipe()
	case SchemeNamedPipe:
		err = s.openNamedPipe()
	}
	if err != nil {
		s.openErr = NewInvalidParamValue("output", expanded, err.Error())
		l.mu.Lock()
		if l.streams[key] == s {
			delete(l.streams, key)
		}
		l.mu.Unlock()
		close(s.ready)
		return nil, s.openErr
	}
	close(s.ready)
	l.logger.Debug("stream opened", "target", key)
	return s, nil
}

// CloseAll closes streams left open, e.g. after a failed run.
func (l *Locator) CloseAll() error {
	l.mu.Lock()
	streams := make([]*Stream, 0, len(l.streams))
	for _, s := range l.streams {
		streams = append(streams, s)
	}
	l.mu.Unlock()

	var result error
	for _, s := range streams {
		<-s.ready
		if s.openErr != nil {
			continue
		}
		s.locator.mu.Lock()
		s.refs = 1
		s.locator.mu.Unlock()
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Stream is an output destination shared by one or more writers.
type Stream struct {
	Scheme string
	Target string

	locator *Locator
	key     string
	refs    int
	// ready is closed once the destination is open or failed to open
	ready   chan struct{}
	openErr error

	lock    SpinLock
	w       io.WriteCloser
	cmd     *exec.Cmd
	written int64
}

func (s *Stream) openFile(reopen bool) error {
	dir := filepath.Dir(s.Target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	flag := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	if reopen {
		flag = os.O_CREATE | os.O_APPEND | os.O_WRONLY
	}
	f, err := os.OpenFile(s.Target, flag, 0644)
	if err != nil {
		return err
	}
	s.w = f
	return nil
}

func (s *Stream) openIpcPipe() error {
	cmd := exec.Command("sh", "-c", s.Target)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.cmd = cmd
	s.w = stdin
	return nil
}

func (s *Stream) openNamedPipe() error {
	err := unix.Mkfifo(s.Target, 0644)
	if err != nil && err != unix.EEXIST {
		return err
	}
	// Blocks until a reader opens the other end.
	f, err := os.OpenFile(s.Target, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	s.w = f
	return nil
}

// Write appends p as one unit. Concurrent writers never interleave inside p.
func (s *Stream) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

// Written is the number of bytes written so far.
func (s *Stream) Written() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.written
}

// Close drops one reference. The last reference closes the destination. With
// XTRU_REMOVE_EMPTY_FILE set, a file that got no byte is removed.
func (s *Stream) Close() error {
	l := s.locator
	l.mu.Lock()
	s.refs--
	if s.refs > 0 {
		l.mu.Unlock()
		return nil
	}
	delete(l.streams, s.key)
	l.mu.Unlock()

	var result error
	if err := s.w.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "close %v", s.key))
	}
	if s.cmd != nil {
		if err := s.cmd.Wait(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "wait %v", s.key))
		}
	}
	if s.Scheme == SchemeFile && s.written == 0 && g.EnvIsTrue(g.ENV_REMOVE_EMPTY_FILE) {
		l.logger.Debug("removing empty file", "file", s.Target)
		_ = os.Remove(s.Target)
	}
	l.logger.Debug("stream closed", "target", s.key, "bytes", s.written)
	return result
}
