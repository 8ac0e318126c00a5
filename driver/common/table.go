/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"fmt"
	"strings"
)

const (
	SplitNone      = ""
	SplitPartition = "partition"
	SplitRowid     = "rowid"
)

// Table is one unload unit as configured by the user.
type Table struct {
	Owner string `mapstructure:"-"`
	Name  string `mapstructure:"-"`

	// Query replaces the generated SELECT. Several statements may be given,
	// separated by ';'. Each one becomes its own fetch.
	Query   string   `mapstructure:"query"`
	Where   string   `mapstructure:"where"`
	Columns []string `mapstructure:"columns"`
	Split   string   `mapstructure:"split"`
	Chunks  int      `mapstructure:"chunks"`
	// Define forces columns to CHAR of the given width, e.g. { SAL = 40 }.
	Define map[string]int `mapstructure:"define"`

	// Per table overrides of the output specs.
	Data    string `mapstructure:"data"`
	Control string `mapstructure:"control"`
}

// ParseTableName splits "OWNER.NAME". Unquoted names are upper cased as Oracle does.
func ParseTableName(s string) (owner string, name string, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", NewInvalidParamValue("table", s, "expect OWNER.NAME")
	}
	return normalizeIdent(parts[0]), normalizeIdent(parts[1]), nil
}

func normalizeIdent(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.ToUpper(s)
}

func (t *Table) FullName() string {
	return fmt.Sprintf("%v.%v", t.Owner, t.Name)
}

// QuotedName is the table name usable in generated SQL.
func (t *Table) QuotedName() string {
	return fmt.Sprintf(`"%v"."%v"`, t.Owner, t.Name)
}

// Statements returns the user statements, split on ';'. Empty when no query is configured.
func (t *Table) Statements() []string {
	var r []string
	for _, s := range strings.Split(t.Query, ";") {
		s = strings.TrimSpace(s)
		if s != "" {
			r = append(r, s)
		}
	}
	return r
}

// SelectList is the column list of the generated SELECT.
func (t *Table) SelectList() string {
	if len(t.Columns) == 0 {
		return "*"
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf(`"%v"`, normalizeIdent(c))
	}
	return strings.Join(cols, ", ")
}
