/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actiontech/xtru/g"
	metrics "github.com/armon/go-metrics"
)

// TableStat counts what has been unloaded for one table (all of its tasks together).
type TableStat struct {
	Table   string
	Rows    int64
	Bytes   int64
	Batches int64
}

// Stat collects unload counters of a run. It is updated concurrently by the fetch loops.
type Stat struct {
	StartTime time.Time

	rows    int64
	bytes   int64
	batches int64

	mu     sync.Mutex
	tables map[string]*TableStat
}

func NewStat() *Stat {
	return &Stat{
		StartTime: time.Now(),
		tables:    make(map[string]*TableStat),
	}
}

func (s *Stat) table(name string) *TableStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tables[name]
	if !ok {
		ts = &TableStat{Table: name}
		s.tables[name] = ts
	}
	return ts
}

// AddBatch records one written batch.
func (s *Stat) AddBatch(table string, rows int, bytes int) {
	if s == nil {
		return
	}
	ts := s.table(table)
	atomic.AddInt64(&ts.Rows, int64(rows))
	atomic.AddInt64(&ts.Bytes, int64(bytes))
	atomic.AddInt64(&ts.Batches, 1)
	atomic.AddInt64(&s.rows, int64(rows))
	atomic.AddInt64(&s.bytes, int64(bytes))
	atomic.AddInt64(&s.batches, 1)

	labels := []metrics.Label{{Name: "table", Value: table}}
	metrics.IncrCounterWithLabels([]string{"unload", "rows"}, float32(rows), labels)
	metrics.IncrCounterWithLabels([]string{"unload", "bytes"}, float32(bytes), labels)
}

func (s *Stat) Rows() int64 {
	return atomic.LoadInt64(&s.rows)
}

func (s *Stat) Bytes() int64 {
	return atomic.LoadInt64(&s.bytes)
}

func (s *Stat) Batches() int64 {
	return atomic.LoadInt64(&s.batches)
}

// Tables returns a snapshot sorted by table name.
func (s *Stat) Tables() []TableStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make([]TableStat, 0, len(s.tables))
	for _, ts := range s.tables {
		r = append(r, TableStat{
			Table:   ts.Table,
			Rows:    atomic.LoadInt64(&ts.Rows),
			Bytes:   atomic.LoadInt64(&ts.Bytes),
			Batches: atomic.LoadInt64(&ts.Batches),
		})
	}
	sort.Slice(r, func(i, j int) bool {
		return r[i].Table < r[j].Table
	})
	return r
}

// Report writes the per table counters, one line per table, then the totals.
func (s *Stat) Report(w io.Writer) error {
	for _, ts := range s.Tables() {
		if _, err := fmt.Fprintf(w, "%s rows=%d bytes=%d batches=%d\n", ts.Table, ts.Rows, ts.Bytes, ts.Batches); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total rows=%d bytes=%d batches=%d elapsed=%s\n",
		s.Rows(), s.Bytes(), s.Batches(), g.PrettifyDurationOutput(time.Since(s.StartTime)))
	return err
}

// Emit publishes the run totals as gauges.
func (s *Stat) Emit() {
	metrics.SetGauge([]string{"unload", "total_rows"}, float32(s.Rows()))
	metrics.SetGauge([]string{"unload", "total_bytes"}, float32(s.Bytes()))
	metrics.SetGauge([]string{"unload", "elapsed_ms"}, float32(time.Since(s.StartTime).Milliseconds()))
}
