/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package command

import (
	"bufio"
	"flag"
	"io"

	"github.com/actiontech/xtru/g"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"
)

// Meta holds what every command shares.
type Meta struct {
	Ui cli.Ui
}

// FlagSet returns a flag set that reports usage errors through the Ui.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.Usage = func() {}
	errR, errW := io.Pipe()
	errScanner := bufio.NewScanner(errR)
	go func() {
		for errScanner.Scan() {
			m.Ui.Error(errScanner.Text())
		}
	}()
	f.SetOutput(errW)
	return f
}

// Commands is the mapping of all the available commands.
func Commands(meta Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"unload": func() (cli.Command, error) {
			return &UnloadCommand{
				Meta: meta,
			}, nil
		},
		"init": func() (cli.Command, error) {
			return &InitCommand{
				Meta: meta,
			}, nil
		},
		"history": func() (cli.Command, error) {
			return &HistoryCommand{
				Meta: meta,
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{
				Version: g.Version,
				Commit:  g.GitCommit,
				Branch:  g.GitBranch,
				Ui:      meta.Ui,
			}, nil
		},
	}
}

// formatList aligns "|" separated lines into columns.
func formatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	return columnize.Format(in, columnConf)
}

// formatKV aligns "key|value" lines.
func formatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "
	return columnize.Format(in, columnConf)
}

// limit truncates s to length.
func limit(s string, length int) string {
	if len(s) < length {
		return s
	}
	return s[:length]
}
