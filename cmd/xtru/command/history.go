/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/actiontech/xtru/config"
	"github.com/actiontech/xtru/driver/metastore"
	"github.com/actiontech/xtru/g"
)

type HistoryCommand struct {
	Meta
}

func (c *HistoryCommand) Help() string {
	helpText := `
Usage: xtru history [options] [run-id]

  Lists the recorded runs, newest first. With a run id, lists the
  tables unloaded by that run.

Options:

  -metastore=<path>
    The metastore file. Defaults to xtru_meta/xtru.db.

  -n=<count>
    Number of runs listed. Defaults to 20, 0 lists every run.

  -verbose
    Show the columns of every table.
`
	return strings.TrimSpace(helpText)
}

func (c *HistoryCommand) Synopsis() string {
	return "List recorded unload runs"
}

func (c *HistoryCommand) Run(args []string) int {
	var path string
	var n int
	var verbose bool
	flags := c.Meta.FlagSet("history")
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&path, "metastore", config.DefaultMetastore, "")
	flags.IntVar(&n, "n", 20, "")
	flags.BoolVar(&verbose, "verbose", false, "")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	args = flags.Args()
	if len(args) > 1 {
		c.Ui.Error(c.Help())
		return 1
	}

	store, err := metastore.Open(path)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error opening metastore: %s", err))
		return 1
	}
	defer store.Close()

	if len(args) == 0 {
		runs, err := store.Runs(n)
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error listing runs: %s", err))
			return 1
		}
		c.Ui.Output(formatRuns(runs))
		return 0
	}

	tables, err := store.Tables(args[0])
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error listing tables of %s: %s", args[0], err))
		return 1
	}
	if len(tables) == 0 {
		c.Ui.Error(fmt.Sprintf("No table recorded for run %s", args[0]))
		return 1
	}
	c.Ui.Output(formatTables(tables, verbose))
	return 0
}

func formatRuns(runs []*metastore.Run) string {
	if len(runs) == 0 {
		return "No runs recorded"
	}
	lines := make([]string, 0, len(runs)+1)
	lines = append(lines, "ID|Job|Status|Start|Elapsed|Rows|Bytes|SCN|Error")
	for _, r := range runs {
		elapsed := ""
		if !r.End.IsZero() {
			elapsed = g.PrettifyDurationOutput(r.End.Sub(r.Start))
		}
		lines = append(lines, fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%d|%s",
			r.ID, r.Job, r.Status, r.Start.Format(time.RFC3339), elapsed,
			r.Rows, r.Bytes, r.SCN, limit(r.Error, 60)))
	}
	return formatList(lines)
}

func formatTables(tables []*metastore.TableRecord, verbose bool) string {
	lines := make([]string, 0, len(tables)+1)
	lines = append(lines, "Table|Partition|Rows|Bytes|Elapsed|Data|Error")
	for _, t := range tables {
		lines = append(lines, fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s",
			t.Table, t.Partition, t.Rows, t.Bytes, g.PrettifyDurationOutput(t.Elapsed),
			t.Data, limit(t.Error, 60)))
	}
	out := formatList(lines)
	if !verbose {
		return out
	}
	var sb strings.Builder
	sb.WriteString(out)
	for _, t := range tables {
		fmt.Fprintf(&sb, "\n\n%s %s\n", t.Table, t.Partition)
		cols := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			cols = append(cols, fmt.Sprintf("%s|%s (%s, %d)", col.Name, col.Field, col.Codec, col.Width))
		}
		sb.WriteString(formatKV(cols))
	}
	return sb.String()
}
