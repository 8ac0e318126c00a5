/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package command

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"
)

const (
	// DefaultInitName is the default name we use when
	// initializing the example file
	DefaultInitName = "example.hcl"
)

// InitCommand generates a new job template that you can customize to your
// liking, like vagrant init
type InitCommand struct {
	Meta
}

func (c *InitCommand) Help() string {
	helpText := `
Usage: xtru init [file]

  Creates an example job file that can be used as a starting
  point to customize further. The file defaults to example.hcl.
`
	return strings.TrimSpace(helpText)
}

func (c *InitCommand) Synopsis() string {
	return "Create an example job file"
}

func (c *InitCommand) Run(args []string) int {
	// Check for misuse
	if len(args) > 1 {
		c.Ui.Error(c.Help())
		return 1
	}
	name := DefaultInitName
	if len(args) == 1 {
		name = args[0]
	}

	// Check if the file already exists
	_, err := os.Stat(name)
	if err != nil && !os.IsNotExist(err) {
		c.Ui.Error(fmt.Sprintf("Failed to stat '%s': %v", name, err))
		return 1
	}
	if !os.IsNotExist(err) {
		c.Ui.Error(fmt.Sprintf("Job '%s' already exists", name))
		return 1
	}

	// Write out the example
	err = ioutil.WriteFile(name, []byte(defaultJob), 0660)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to write '%s': %v", name, err))
		return 1
	}

	// Success
	c.Ui.Output(fmt.Sprintf("Example job file written to %s", name))
	return 0
}

var defaultJob = strings.TrimSpace(`
# An xtru job unloads Oracle tables into delimited data files, each one
# described by a SQL*Loader control file.

# log_level = "INFO"
# log_file  = "/var/log/xtru/"

# Runs and unloaded tables are recorded here. "-" disables the record.
# metastore = "xtru_meta/xtru.db"

# Number of tables (or table pieces) unloaded at the same time.
parallel = 2

# Rows fetched per round trip.
bulk_size = 500

# Log the row count every n rows. 0 disables it.
# feedback = 100000

# Masks of the datetime columns, in Oracle format model syntax.
# date_format         = "YYYY-MM-DD HH24:MI:SS"
# timestamp_format    = "YYYY-MM-DD HH24:MI:SS.FF9"
# timestamp_tz_format = "YYYY-MM-DD HH24:MI:SS.FF9 TZH:TZM"

# Mask of NUMBER columns declared without precision, e.g. "9.99999EEEE".
# float_format = ""

# Read every table as of one SCN.
# consistent = true

# Write a sqlldr script next to each control file.
# loader_script = true

oracle {
  user         = "scott"
  password     = "tiger"
  host         = "127.0.0.1"
  port         = 1521
  service_name = "orcl"
  # connect = "tns_alias"
  # scn     = 0
}

delimiter {
  separator  = ","
  enclosure  = "\""
  terminator = "\\n"
  # length_prefix = 0
}

output {
  # {O} dir, {T} table, {P} partition, {C} table_partition, {X} extension,
  # {D=%Y%m%d} job start, {W=%H%M} now, {E=VAR} environment.
  # Schemes: file://, ipc_pipe:// (runs a shell command), named_pipe://
  dir     = "./unload"
  data    = "file://{O}/{C}.{X}"
  control = "file://{O}/{C}.ctl"
  # ddl   = "file://{O}/ddl.sql"
}

# Copy rows into another database instead of writing files.
# target {
#   driver    = "godror"
#   dsn       = "user=\"scott\" password=\"tiger\" connectString=\"dwh/orcl\""
#   table     = "{T}_COPY"
#   multi_row = true
# }

# metric {
#   prometheus_push_address = "127.0.0.1:9091"
# }

table "SCOTT.EMP" {
  # columns = ["EMPNO", "ENAME"]
  # where   = "DEPTNO = 10"

  # Unload these columns as CHAR of the given width instead of their own type.
  # define {
  #   SAL = 20
  # }
}

table "SCOTT.SALES" {
  split  = "partition"
}

table "SCOTT.BIG" {
  split  = "rowid"
  chunks = 8
}

# table "SCOTT.REPORT" {
#   query = "SELECT * FROM SCOTT.EMP WHERE DEPTNO = 10; SELECT * FROM SCOTT.EMP WHERE DEPTNO = 20"
# }
`)
