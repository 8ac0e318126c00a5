/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package command

import (
	"fmt"

	"github.com/actiontech/xtru/g"
	"github.com/mitchellh/cli"
)

// VersionCommand prints the build version. "xtru -v" prints the same line.
type VersionCommand struct {
	Version string
	Branch  string
	Commit  string
	Ui      cli.Ui
}

// VersionString formats a build version. Unset values show as "unknown".
func VersionString(version, branch, commit string) string {
	return fmt.Sprintf("%s %s (git: %s %s)", g.ProgramName,
		g.StringElse(version, "unknown"), g.StringElse(branch, "unknown"), g.StringElse(commit, "unknown"))
}

func (c *VersionCommand) Run(_ []string) int {
	c.Ui.Output(VersionString(c.Version, c.Branch, c.Commit))
	return 0
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the xtru version"
}

func (c *VersionCommand) Help() string {
	return "Usage: xtru version\n\n  Prints the xtru version and the git revision it was built from."
}
