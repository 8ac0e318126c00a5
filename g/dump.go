/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package g

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Reporter writes a plain text progress report, e.g. the row counters of a running job.
type Reporter func(w io.Writer) error

// Dumper writes a diagnostic snapshot of the process: goroutines, heap,
// /proc status and the report of the running job.
type Dumper struct {
	// Dir is the parent of the dump directories. Defaults to os.TempDir().
	Dir     string
	Report  Reporter
	Logger  LoggerType
	nowFunc func() time.Time
}

// DumpLoop writes a snapshot on every SIGTTIN until stopCh is closed.
func (d *Dumper) DumpLoop(stopCh <-chan struct{}) {
	c := make(chan os.Signal, 10)
	signal.Notify(c, syscall.SIGTTIN)
	defer signal.Stop(c)

	for {
		select {
		case <-stopCh:
			return
		case <-c:
			go func() {
				path, err := d.Dump()
				if err != nil {
					d.logger().Error("dump failed", "error", err)
					return
				}
				d.logger().Info("dump written", "path", path)
			}()
		}
	}
}

func (d *Dumper) logger() LoggerType {
	if d.Logger == nil {
		return NewNullLogger()
	}
	return d.Logger
}

// Dump writes one snapshot and returns its directory. A failing section is
// logged and does not stop the others.
func (d *Dumper) Dump() (string, error) {
	now := time.Now
	if d.nowFunc != nil {
		now = d.nowFunc
	}
	dir := StringElse(d.Dir, os.TempDir())
	path := filepath.Join(dir, fmt.Sprintf("%s_dump_%s", ProgramName, now().Format("2006_01_02_15_04_05")))
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrap(err, "create dump dir")
	}

	sections := map[string]func(io.Writer) error{
		"goroutine": func(w io.Writer) error { return pprof.Lookup("goroutine").WriteTo(w, 1) },
		"heap":      func(w io.Writer) error { return pprof.Lookup("heap").WriteTo(w, 1) },
		"status":    recordProcessStatus,
	}
	if d.Report != nil {
		sections["progress"] = d.Report
	}
	for name, write := range sections {
		if err := writeSection(path, name, write); err != nil {
			d.logger().Warn("dump section failed", "section", name, "error", err)
		}
	}
	return path, nil
}

func writeSection(dir string, name string, write func(io.Writer) error) error {
	f, err := os.OpenFile(filepath.Join(dir, name+".out"), os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0640)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordProcessStatus(w io.Writer) error {
	pid := unix.Getpid()
	status, err := os.ReadFile(fmt.Sprintf("/proc/%v/status", pid))
	if err != nil {
		return errors.Wrapf(err, "read status of %v", pid)
	}
	_, err = w.Write(status)
	return err
}
