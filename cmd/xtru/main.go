/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/actiontech/xtru/cmd/xtru/command"
	"github.com/actiontech/xtru/g"
	"github.com/mitchellh/cli"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	// godror and database/sql log through the std logger
	log.SetOutput(ioutil.Discard)

	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	c := &cli.CLI{
		Name:       g.ProgramName,
		Version:    command.VersionString(g.Version, g.GitBranch, g.GitCommit),
		Args:       args,
		Commands:   command.Commands(command.Meta{Ui: ui}),
		HelpFunc:   cli.BasicHelpFunc(g.ProgramName),
		HelpWriter: os.Stdout,
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", g.ProgramName, err)
		return 1
	}
	return exitCode
}
